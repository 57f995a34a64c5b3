// Package narrator is the dev backend's stand-in for the game master. It
// turns one request into the ordered chunk sequence a real backend would
// stream: narration, logic events with their dice, settlements, the new
// snapshot and follow-up options.
package narrator

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nathoo/backroom/backend/effects"
	"github.com/nathoo/backroom/backend/scenario"
	"github.com/nathoo/backroom/engine/state"
	"github.com/nathoo/backroom/types"
)

// Minutes spent by item actions.
const (
	useMinutes  = 2
	dropMinutes = 1
)

// Narrator answers requests from a compiled scenario.
type Narrator struct {
	sc  *scenario.Scenario
	rng *RNG
	log *zap.Logger
}

// New creates a narrator. A nil logger is allowed.
func New(sc *scenario.Scenario, rng *RNG, log *zap.Logger) *Narrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Narrator{sc: sc, rng: rng, log: log}
}

// Scenario returns the narrator's content.
func (n *Narrator) Scenario() *scenario.Scenario {
	return n.sc
}

// Respond computes the chunks for one request and the snapshot they end
// on. current is the request's snapshot, or the stored one when the
// request carried none.
func (n *Narrator) Respond(req types.ChatRequest, current *types.GameState) ([]types.Chunk, *types.GameState) {
	if req.Event.Type == types.EventInit || current == nil {
		return n.intro()
	}
	switch req.Event.Type {
	case types.EventUse:
		return n.use(current, req.Event.ItemID)
	case types.EventDrop:
		return n.drop(current, req.Event.ItemID, req.Event.Quantity)
	default:
		return n.narrate(current, req.PlayerInput)
	}
}

func (n *Narrator) intro() ([]types.Chunk, *types.GameState) {
	st := n.sc.InitialState()
	out := []types.Chunk{{
		Type: types.ChunkInit,
		Text: fmt.Sprintf("%s: %s", strings.ToUpper(n.sc.Level), n.sc.Title),
	}}
	for _, line := range n.sc.Intro {
		out = append(out, message(line))
	}
	out = append(out, stateChunk(st))
	if len(n.sc.Options) > 0 {
		out = append(out, types.Chunk{Type: types.ChunkSuggestions, Options: n.sc.Options})
	}
	return out, st
}

func (n *Narrator) narrate(current *types.GameState, input string) ([]types.Chunk, *types.GameState) {
	trig, ok := n.sc.Match(input)
	if !ok {
		fb := n.sc.Fallback
		st := effects.Clone(current)
		effects.Advance(st, fb.Minutes)
		text := fb.Text
		if strings.Contains(text, "%s") {
			text = fmt.Sprintf(text, input)
		}
		out := []types.Chunk{message(text), stateChunk(st)}
		return withOptions(out, fb.Options), st
	}

	n.log.Debug("trigger matched", zap.String("trigger", trig.ID))
	out := []types.Chunk{message(trig.Text)}
	st := current

	// The logic event must directly follow its message so it patches the
	// right one; settlements append messages of their own.
	var outcome scenario.Outcome
	if trig.Check != nil {
		sides, _ := scenario.DieSides(trig.Check.DieType)
		roll := n.rng.Roll(sides)
		outcome, _ = trig.Check.Resolve(roll)
		n.log.Debug("check rolled",
			zap.String("check", trig.Check.Name),
			zap.String("die", trig.Check.DieType),
			zap.Int("result", roll),
		)
		out = append(out,
			types.Chunk{Type: types.ChunkLogicEvent, Event: trig.Check.LogicEvent()},
			types.Chunk{Type: types.ChunkDiceRoll, Dice: &types.DiceRoll{
				Type:   trig.Check.DieType,
				Result: roll,
				Reason: trig.Check.Name,
			}},
		)
	}

	if !trig.Effect.Empty() {
		res := effects.Apply(n.sc, st, trig.Effect)
		st = res.State
		out = appendSettlement(out, res)
	}

	if trig.Check != nil {
		res := effects.Apply(n.sc, st, outcome.Effect)
		st = res.State
		out = appendSettlement(out, res)
		if outcome.Content != "" {
			out = append(out, message(outcome.Content))
		}
	}

	if st == current {
		st = effects.Clone(current)
	}
	effects.Advance(st, trig.Minutes)
	out = append(out, stateChunk(st))
	return withOptions(out, trig.Options), st
}

func (n *Narrator) use(current *types.GameState, itemID string) ([]types.Chunk, *types.GameState) {
	res, ok := effects.Use(n.sc, current, itemID)
	if !ok {
		return []types.Chunk{message("You rummage through your pack, but it isn't there.")}, current
	}
	it, _ := state.FindItem(current, itemID)
	text := fmt.Sprintf("You use the %s.", it.Name)
	if def, ok := n.sc.Items[itemID]; ok && def.UseText != "" {
		text = def.UseText
	}
	effects.Advance(res.State, useMinutes)
	out := appendSettlement([]types.Chunk{message(text)}, res)
	return append(out, stateChunk(res.State)), res.State
}

func (n *Narrator) drop(current *types.GameState, itemID string, qty int) ([]types.Chunk, *types.GameState) {
	it, _ := state.FindItem(current, itemID)
	res, ok := effects.Drop(current, itemID, qty)
	if !ok {
		return []types.Chunk{message("You can't drop what you don't carry.")}, current
	}
	if qty < 1 {
		qty = 1
	}
	if have := state.Quantity(it); qty > have {
		qty = have
	}
	effects.Advance(res.State, dropMinutes)
	out := appendSettlement([]types.Chunk{message(fmt.Sprintf("You leave %d× %s on the damp carpet.", qty, it.Name))}, res)
	return append(out, stateChunk(res.State)), res.State
}

func message(text string) types.Chunk {
	return types.Chunk{Type: types.ChunkMessage, Sender: types.SenderDM, Text: text}
}

func stateChunk(st *types.GameState) types.Chunk {
	return types.Chunk{Type: types.ChunkState, State: st}
}

func appendSettlement(out []types.Chunk, res effects.Result) []types.Chunk {
	if !res.Changed() {
		return out
	}
	delta := res.Settlement
	return append(out, types.Chunk{Type: types.ChunkSettlement, Delta: &delta})
}

func withOptions(out []types.Chunk, options []string) []types.Chunk {
	if len(options) == 0 {
		return out
	}
	return append(out, types.Chunk{Type: types.ChunkSuggestions, Options: options})
}
