// Package engine provides the scheduler that serializes streamed chunks into
// the message log and game state. It consumes chunks in arrival order,
// suspends while an animation plays or a logic event awaits confirmation,
// and lets a dice roll jump the queue when the gate is waiting for it.
//
// The engine is single-threaded: Enqueue, Confirm, and the completion
// callbacks must all be called from the same goroutine (the UI loop).
package engine

import (
	"errors"
	"slices"

	"go.uber.org/zap"

	"github.com/nathoo/backroom/engine/lock"
	"github.com/nathoo/backroom/engine/queue"
	"github.com/nathoo/backroom/engine/reduce"
	"github.com/nathoo/backroom/types"
)

var (
	ErrUnknownMessage = errors.New("engine: unknown message")
	ErrNoLogicEvent   = errors.New("engine: message has no logic event")
	ErrUnknownOption  = errors.New("engine: option not offered by message")
)

// ConnectionLostText is appended as a system message when a request fails.
const ConnectionLostText = "Error: the connection to the backend was lost."

// CueKind identifies a presentation effect the UI must play.
type CueKind int

const (
	// CueTypewriter plays the text of MessageID. Report completion with
	// AnimationComplete.
	CueTypewriter CueKind = iota
	// CueDice plays Roll. Report completion with DiceAnimationComplete.
	CueDice
	// CueLevelHide fades the view out before the snapshot for Level is
	// swapped in. Report completion with AnimationComplete.
	CueLevelHide
	// CueLevelReveal fades the view back in on Level. Report completion
	// with AnimationComplete.
	CueLevelReveal
)

func (k CueKind) String() string {
	switch k {
	case CueTypewriter:
		return "typewriter"
	case CueDice:
		return "dice"
	case CueLevelHide:
		return "level-hide"
	case CueLevelReveal:
		return "level-reveal"
	default:
		return "unknown"
	}
}

// Cue is emitted whenever the engine starts an animation.
type Cue struct {
	Kind      CueKind
	MessageID int64
	Roll      *types.DiceRoll
	Level     string
}

// Engine holds the message log, the current snapshot, and the scheduler
// state (pending queue, lock, cached dice roll).
type Engine struct {
	Messages  []types.Message
	State     *types.GameState
	SessionID string
	Loading   bool

	queue    *queue.Queue
	lock     lock.Lock
	anim     reduce.Animation
	cached   *types.DiceRoll
	rolling  *types.DiceRoll
	incoming *types.GameState
	nextID   int64
	cues     []Cue
	log      *zap.Logger
}

// New creates an engine bound to a session. A nil logger is allowed.
func New(sessionID string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		SessionID: sessionID,
		queue:     queue.New(),
		nextID:    1,
		log:       log,
	}
}

// Enqueue accepts one chunk from the network. Context snapshots are applied
// at once; suggestions and logic events amend the newest queued message when
// there is one. Everything else joins the queue, then dispatch is attempted.
func (e *Engine) Enqueue(c types.Chunk) {
	switch c.Type {
	case types.ChunkInitContext:
		if c.State != nil {
			e.State = c.State
			e.log.Debug("applied context snapshot", zap.String("level", c.State.Level))
		}
		return

	case types.ChunkSuggestions, types.ChunkLogicEvent:
		if e.queue.Patch(c) {
			e.log.Debug("merged patch into queued message", zap.String("type", string(c.Type)))
			return
		}
		// Target already rendered: patch it directly.
		e.apply(c)
		e.TryDispatch()
		return
	}

	e.queue.Push(c)
	e.TryDispatch()
}

// TryDispatch applies queued chunks until the lock blocks or the queue is
// empty. Calling it when nothing can advance is a no-op.
func (e *Engine) TryDispatch() {
	for e.step() {
	}
}

func (e *Engine) step() bool {
	if e.lock.Animating() {
		return false
	}
	if e.releaseCached() {
		return false
	}
	if e.queue.Len() == 0 {
		return false
	}

	idx := 0
	if _, ok := e.lock.Awaiting(); ok {
		// Only one roll is held at a time; later rolls stay queued.
		if e.cached != nil {
			return false
		}
		idx = e.queue.IndexOf(types.ChunkDiceRoll)
		if idx < 0 {
			return false
		}
	}

	next, _ := e.queue.Peek(idx)
	if !e.lock.Permits(next.Type) {
		return false
	}
	c, _ := e.queue.RemoveAt(idx)
	e.apply(c)
	return true
}

// releaseCached starts the held dice roll once its gate is confirmed.
func (e *Engine) releaseCached() bool {
	if e.cached == nil {
		return false
	}
	id, ok := e.lock.Awaiting()
	if !ok {
		return false
	}
	m := e.find(id)
	if m == nil || m.LogicEventConfirmed == nil || !*m.LogicEventConfirmed {
		return false
	}
	e.triggerDice(e.cached)
	return true
}

func (e *Engine) apply(c types.Chunk) {
	awaiting, _ := e.lock.Awaiting()
	out := reduce.Apply(reduce.Input{
		Messages: e.Messages,
		State:    e.State,
		Awaiting: awaiting,
		NextID:   e.nextID,
		Owned:    true,
	}, c)

	if out.IDUsed {
		e.nextID++
	}
	e.Messages = out.Messages
	e.State = out.State

	e.log.Debug("applied chunk",
		zap.String("type", string(c.Type)),
		zap.Int("queued", e.queue.Len()),
		zap.Stringer("animate", out.Animate),
	)

	if out.Dropped {
		e.log.Debug("dropped patch with no target message", zap.String("type", string(c.Type)))
	}
	if out.Await != 0 {
		e.lock.Await(out.Await)
	}
	if out.Cache != nil {
		e.cached = out.Cache
	}
	if out.Roll != nil {
		e.triggerDice(out.Roll)
		return
	}

	switch out.Animate {
	case reduce.AnimText:
		e.startAnimation(reduce.AnimText)
		e.cue(Cue{Kind: CueTypewriter, MessageID: e.Messages[len(e.Messages)-1].ID})
	case reduce.AnimLevelHide:
		e.incoming = out.Incoming
		e.startAnimation(reduce.AnimLevelHide)
		e.cue(Cue{Kind: CueLevelHide, Level: out.Incoming.Level})
	}
}

func (e *Engine) triggerDice(roll *types.DiceRoll) {
	owner, _ := e.lock.Awaiting()
	e.cached = nil
	e.rolling = roll
	e.startAnimation(reduce.AnimDice)
	e.cue(Cue{Kind: CueDice, MessageID: owner, Roll: roll})
}

func (e *Engine) startAnimation(a reduce.Animation) {
	e.anim = a
	e.lock.SetAnimating()
}

func (e *Engine) cue(c Cue) {
	e.cues = append(e.cues, c)
}

// Cues returns and clears the animations started since the last call.
func (e *Engine) Cues() []Cue {
	out := e.cues
	e.cues = nil
	return out
}

// AnimationComplete is called by the presentation layer when the current
// animation finishes. A level fade-out swaps the snapshot in and starts the
// fade-in without releasing the lock; everything else releases it.
func (e *Engine) AnimationComplete() {
	switch e.anim {
	case reduce.AnimNone:
		return
	case reduce.AnimDice:
		e.DiceAnimationComplete()
		return
	case reduce.AnimLevelHide:
		if e.incoming != nil {
			e.State = e.incoming
			e.incoming = nil
		}
		e.anim = reduce.AnimLevelReveal
		level := ""
		if e.State != nil {
			level = e.State.Level
		}
		e.cue(Cue{Kind: CueLevelReveal, Level: level})
		return
	}

	e.anim = reduce.AnimNone
	e.lock.ClearAnimating()
	e.TryDispatch()
}

// DiceAnimationComplete records the roll on the gated message, opens the
// gate, and resumes dispatch.
func (e *Engine) DiceAnimationComplete() {
	if e.anim != reduce.AnimDice {
		return
	}
	if id, ok := e.lock.Awaiting(); ok {
		if m := e.find(id); m != nil && m.LogicRollResult == nil && e.rolling != nil {
			result := e.rolling.Result
			m.LogicRollResult = &result
		}
		e.lock.Release()
	}
	e.rolling = nil
	e.anim = reduce.AnimNone
	e.lock.ClearAnimating()
	e.TryDispatch()
}

// Confirm records the user's confirmation of a message's logic event. A
// dice roll already held for that message starts immediately, or as soon as
// the animation in flight completes.
func (e *Engine) Confirm(msgID int64) error {
	m := e.find(msgID)
	if m == nil {
		return ErrUnknownMessage
	}
	if m.LogicEvent == nil {
		return ErrNoLogicEvent
	}
	if m.LogicEventConfirmed != nil && *m.LogicEventConfirmed {
		return nil
	}
	confirmed := true
	m.LogicEventConfirmed = &confirmed
	e.TryDispatch()
	return nil
}

// SelectOption records the option chosen on a message. Only the first
// choice counts; later calls report false.
func (e *Engine) SelectOption(msgID int64, option string) (bool, error) {
	m := e.find(msgID)
	if m == nil {
		return false, ErrUnknownMessage
	}
	if m.SelectedOption != nil {
		return false, nil
	}
	if !slices.Contains(m.Options, option) {
		return false, ErrUnknownOption
	}
	m.SelectedOption = &option
	return true, nil
}

// StartRequest builds the request for a user action. Unless hidden, the
// player's own line is appended to the log first. It reports false when the
// action cannot be sent because no snapshot has been received yet.
func (e *Engine) StartRequest(ev types.GameEvent, input string, hidden bool) (types.ChatRequest, bool) {
	if !hidden && input != "" {
		e.appendMessage(types.Message{Sender: types.SenderPlayer, Text: input})
	}
	if e.State == nil && ev.Type != types.EventInit {
		return types.ChatRequest{}, false
	}

	req := types.ChatRequest{
		Event:       ev,
		PlayerInput: input,
		SessionID:   e.SessionID,
	}
	if ev.Type != types.EventInit {
		req.CurrentState = e.State
	}
	e.Loading = true
	return req, true
}

// FinishRequest marks the in-flight request as done. On failure a single
// system message is appended; queue and lock are left untouched.
func (e *Engine) FinishRequest(err error) {
	e.Loading = false
	if err == nil {
		return
	}
	e.log.Error("request failed", zap.Error(err))
	e.appendMessage(types.Message{Sender: types.SenderSystem, Text: ConnectionLostText})
}

// Restore replaces the log and snapshot, e.g. after loading a transcript.
// Pending chunks and locks are discarded.
func (e *Engine) Restore(msgs []types.Message, state *types.GameState) {
	e.Messages = msgs
	e.State = state
	e.queue = queue.New()
	e.lock = lock.Lock{}
	e.anim = reduce.AnimNone
	e.cached, e.rolling, e.incoming = nil, nil, nil
	e.cues = nil
	e.nextID = 1
	for _, m := range msgs {
		if m.ID >= e.nextID {
			e.nextID = m.ID + 1
		}
	}
}

func (e *Engine) appendMessage(m types.Message) int64 {
	m.ID = e.nextID
	e.nextID++
	e.Messages = append(e.Messages, m)
	return m.ID
}

func (e *Engine) find(id int64) *types.Message {
	for i := len(e.Messages) - 1; i >= 0; i-- {
		if e.Messages[i].ID == id {
			return &e.Messages[i]
		}
	}
	return nil
}

// Message returns a copy of the message with the given ID.
func (e *Engine) Message(id int64) (types.Message, bool) {
	if m := e.find(id); m != nil {
		return *m, true
	}
	return types.Message{}, false
}

// Pending returns the types of the chunks still queued, in order.
func (e *Engine) Pending() []types.ChunkType {
	return e.queue.Types()
}

// Animating reports whether an animation holds the lock.
func (e *Engine) Animating() bool {
	return e.lock.Animating()
}

// Awaiting returns the message whose logic event gates dispatch, if any.
func (e *Engine) Awaiting() (int64, bool) {
	return e.lock.Awaiting()
}

// CachedRoll returns the dice roll held until confirmation, if any.
func (e *Engine) CachedRoll() *types.DiceRoll {
	return e.cached
}

// Rolling returns the dice roll currently animating, if any.
func (e *Engine) Rolling() *types.DiceRoll {
	return e.rolling
}

// InTransition reports whether a level fade is in progress.
func (e *Engine) InTransition() bool {
	return e.anim == reduce.AnimLevelHide || e.anim == reduce.AnimLevelReveal
}
