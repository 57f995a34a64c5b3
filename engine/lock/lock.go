// Package lock tracks the two suspension conditions that gate dispatch:
// an animation in flight and a logic event awaiting confirmation.
package lock

import "github.com/nathoo/backroom/types"

// Lock is owned by the scheduler. The zero value is unlocked.
type Lock struct {
	animating bool
	awaiting  int64 // message ID, 0 = none
}

// Animating reports whether a visual effect is still in flight.
func (l *Lock) Animating() bool {
	return l.animating
}

// SetAnimating marks an animation as started.
func (l *Lock) SetAnimating() {
	l.animating = true
}

// ClearAnimating marks the current animation as finished.
func (l *Lock) ClearAnimating() {
	l.animating = false
}

// Await records the message whose logic event must be confirmed.
func (l *Lock) Await(msgID int64) {
	l.awaiting = msgID
}

// Release clears the logic-event gate.
func (l *Lock) Release() {
	l.awaiting = 0
}

// Awaiting returns the gated message ID, if any.
func (l *Lock) Awaiting() (int64, bool) {
	return l.awaiting, l.awaiting != 0
}

// Permits reports whether a chunk of type t may be applied now.
// Nothing passes during an animation; while a logic event is pending only
// dice rolls pass.
func (l *Lock) Permits(t types.ChunkType) bool {
	if l.animating {
		return false
	}
	if l.awaiting != 0 {
		return t == types.ChunkDiceRoll
	}
	return true
}
