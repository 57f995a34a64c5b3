// Package reduce maps (messages, game state, chunk) to the next messages,
// game state, and lock directives. It never mutates its input unless the
// caller hands over the message slice with Input.Owned.
package reduce

import (
	"slices"

	"github.com/nathoo/backroom/types"
)

// Animation names the visual effect a chunk starts, if any.
type Animation int

const (
	AnimNone Animation = iota
	AnimText
	AnimDice
	AnimLevelHide
	AnimLevelReveal
)

func (a Animation) String() string {
	switch a {
	case AnimText:
		return "text"
	case AnimDice:
		return "dice"
	case AnimLevelHide:
		return "level-hide"
	case AnimLevelReveal:
		return "level-reveal"
	default:
		return "none"
	}
}

// Input is the state a chunk is applied to.
type Input struct {
	Messages []types.Message
	State    *types.GameState
	Awaiting int64 // gated message ID, 0 = none
	NextID   int64 // ID assigned if the chunk appends a message

	// Owned means the caller replaces its slice with Output.Messages, so
	// appends may fill spare capacity and patches may edit in place.
	Owned bool
}

// Output is the result of applying one chunk.
type Output struct {
	Messages []types.Message
	State    *types.GameState

	Animate Animation
	Await   int64 // non-zero: gate dispatch on this message ID

	Roll  *types.DiceRoll // start this dice animation now
	Cache *types.DiceRoll // hold this roll until the gate is confirmed

	// Incoming is set on a level change: the snapshot to swap in once the
	// hide phase completes. State still holds the previous snapshot.
	Incoming *types.GameState

	IDUsed  bool
	Dropped bool // patch with no target message
}

// Apply applies a single chunk.
func Apply(in Input, c types.Chunk) Output {
	out := Output{Messages: in.Messages, State: in.State}

	switch c.Type {
	case types.ChunkInit:
		out.Messages = appendMessage(in, types.Message{
			ID:     in.NextID,
			Sender: types.SenderInit,
			Text:   c.Text,
		})
		out.IDUsed = true
		if in.State != nil {
			out.Animate = AnimText
		}

	case types.ChunkMessage:
		m := types.Message{
			ID:         in.NextID,
			Sender:     c.Sender,
			Text:       c.Text,
			LogicEvent: c.LogicEvent,
			Options:    c.Options,
		}
		if m.Sender == "" {
			m.Sender = types.SenderDM
		}
		if m.LogicEvent != nil {
			m.LogicEventConfirmed = boolPtr(false)
			out.Await = m.ID
		}
		out.Messages = appendMessage(in, m)
		out.IDUsed = true
		if in.State != nil {
			out.Animate = AnimText
		}

	case types.ChunkSettlement:
		out.Messages = appendMessage(in, types.Message{
			ID:         in.NextID,
			Sender:     types.SenderSystem,
			Settlement: c.Delta,
		})
		out.IDUsed = true

	case types.ChunkDiceRoll:
		if c.Dice == nil {
			return out
		}
		if gateOpen(in) {
			out.Roll = c.Dice
			out.Animate = AnimDice
		} else {
			out.Cache = c.Dice
		}

	case types.ChunkState:
		if c.State == nil {
			return out
		}
		if in.State != nil && c.State.Level != in.State.Level {
			out.Incoming = c.State
			out.Animate = AnimLevelHide
			return out
		}
		out.State = c.State

	case types.ChunkInitContext:
		if c.State != nil {
			out.State = c.State
		}

	case types.ChunkSuggestions:
		msgs, ok := patchLast(in, func(m *types.Message) {
			m.Options = c.Options
		})
		out.Messages = msgs
		out.Dropped = !ok

	case types.ChunkLogicEvent:
		if c.Event == nil {
			out.Dropped = true
			return out
		}
		var id int64
		msgs, ok := patchLast(in, func(m *types.Message) {
			m.LogicEvent = c.Event
			m.LogicEventConfirmed = boolPtr(false)
			id = m.ID
		})
		out.Messages = msgs
		out.Dropped = !ok
		out.Await = id
	}

	return out
}

// gateOpen reports whether a dice roll may play immediately: nothing is
// awaited, or the awaited message has already been confirmed.
func gateOpen(in Input) bool {
	if in.Awaiting == 0 {
		return true
	}
	for i := len(in.Messages) - 1; i >= 0; i-- {
		m := in.Messages[i]
		if m.ID == in.Awaiting {
			return m.LogicEventConfirmed != nil && *m.LogicEventConfirmed
		}
	}
	return false
}

// FindOutcome returns the first band whose closed range contains roll.
func FindOutcome(ev *types.LogicEvent, roll int) (types.Outcome, bool) {
	if ev == nil {
		return types.Outcome{}, false
	}
	for _, o := range ev.Outcomes {
		if roll >= o.Range[0] && roll <= o.Range[1] {
			return o, true
		}
	}
	return types.Outcome{}, false
}

func appendMessage(in Input, m types.Message) []types.Message {
	if in.Owned {
		return append(in.Messages, m)
	}
	return append(slices.Clip(in.Messages), m)
}

func patchLast(in Input, fn func(m *types.Message)) ([]types.Message, bool) {
	msgs := in.Messages
	if len(msgs) == 0 {
		return msgs, false
	}
	if !in.Owned {
		msgs = slices.Clone(msgs)
	}
	fn(&msgs[len(msgs)-1])
	return msgs, true
}

func boolPtr(b bool) *bool {
	return &b
}
