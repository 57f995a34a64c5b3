package engine

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/nathoo/backroom/engine/parser"
	"github.com/nathoo/backroom/engine/resolve"
	"github.com/nathoo/backroom/engine/state"
	"github.com/nathoo/backroom/types"
)

var (
	ErrNothingToConfirm = errors.New("there is no check waiting for you")
	ErrNoOptions        = errors.New("there are no choices to pick from")
)

// ActionKind says how the presentation layer should carry out an Action.
type ActionKind int

const (
	// ActionSend starts a request with Event and Input.
	ActionSend ActionKind = iota
	// ActionConfirm confirms the logic event on MessageID.
	ActionConfirm
	// ActionChoose selects Option on MessageID, then sends it as a hidden
	// message event.
	ActionChoose
)

// Action is what one line of player input asks for.
type Action struct {
	Kind      ActionKind
	Event     types.GameEvent
	Input     string
	MessageID int64
	Option    string
}

// Interpret turns a parsed intent into an Action against the current log
// and snapshot. Item names are resolved against the inventory.
func (e *Engine) Interpret(in types.Intent) (Action, error) {
	switch in.Verb {
	case parser.VerbConfirm:
		id, ok := e.confirmable()
		if !ok {
			return Action{}, ErrNothingToConfirm
		}
		return Action{Kind: ActionConfirm, MessageID: id}, nil

	case parser.VerbChoose:
		return e.choose(in.Object)

	case parser.VerbUse:
		it, err := resolve.Item(e.State, in.Object)
		if err != nil {
			return Action{}, err
		}
		return Action{
			Kind:  ActionSend,
			Event: types.GameEvent{Type: types.EventUse, ItemID: it.ID, Quantity: 1},
			Input: "use " + it.Name,
		}, nil

	case parser.VerbDrop:
		it, err := resolve.Item(e.State, in.Object)
		if err != nil {
			return Action{}, err
		}
		qty := state.DropQuantity(it, in.Mode)
		return Action{
			Kind:  ActionSend,
			Event: types.GameEvent{Type: types.EventDrop, ItemID: it.ID, Quantity: qty},
			Input: fmt.Sprintf("drop %d %s", qty, it.Name),
		}, nil

	default:
		return Action{
			Kind:  ActionSend,
			Event: types.GameEvent{Type: types.EventMessage},
			Input: in.Object,
		}, nil
	}
}

// confirmable returns the message whose check still needs confirming.
func (e *Engine) confirmable() (int64, bool) {
	if id, ok := e.lock.Awaiting(); ok {
		if m := e.find(id); m != nil && !confirmed(m) {
			return id, true
		}
	}
	for i := len(e.Messages) - 1; i >= 0; i-- {
		m := &e.Messages[i]
		if m.LogicEvent != nil && !confirmed(m) {
			return m.ID, true
		}
	}
	return 0, false
}

func confirmed(m *types.Message) bool {
	return m.LogicEventConfirmed != nil && *m.LogicEventConfirmed
}

// choose picks the n-th (1-based) option of the newest message offering
// options that has not been answered yet.
func (e *Engine) choose(arg string) (Action, error) {
	m := e.OpenOptions()
	if m == nil {
		return Action{}, ErrNoOptions
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(m.Options) {
		return Action{}, fmt.Errorf("pick a number from 1 to %d", len(m.Options))
	}
	return Action{Kind: ActionChoose, MessageID: m.ID, Option: m.Options[n-1]}, nil
}

// OpenOptions returns the newest message whose options are still
// unanswered, or nil. Options on older messages are stale once a newer
// message offers its own.
func (e *Engine) OpenOptions() *types.Message {
	for i := len(e.Messages) - 1; i >= 0; i-- {
		m := &e.Messages[i]
		if len(m.Options) == 0 {
			continue
		}
		if m.SelectedOption != nil {
			return nil
		}
		return m
	}
	return nil
}
