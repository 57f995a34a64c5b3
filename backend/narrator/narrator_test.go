package narrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/backroom/backend/scenario"
	"github.com/nathoo/backroom/engine"
	"github.com/nathoo/backroom/types"
)

func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Title:   "Test",
		Level:   "Level 0",
		Time:    480,
		Vitals:  types.Vitals{HP: 10, MaxHP: 20, Sanity: 50, MaxSanity: 100},
		Intro:   []string{"You wake up.", "It hums."},
		Options: []string{"Listen", "Walk"},
		Items: map[string]scenario.ItemDef{
			"w": {Item: types.Item{ID: "w", Name: "Almond Water", Category: "resource"}, Start: 3, UseText: "Sweet.", Use: scenario.Effect{HP: 2}},
			"k": {Item: types.Item{ID: "k", Name: "Key"}},
		},
		ItemOrder: []string{"w", "k"},
		Triggers: []scenario.Trigger{
			{
				ID: "listen", Keywords: []string{"listen"}, Text: "The hum swells.", Minutes: 10,
				Check: &scenario.Check{Name: "Perception", DieType: "d20", Outcomes: []scenario.Outcome{
					{Low: 1, High: 10, Content: "A key falls out of the wall.", Effect: scenario.Effect{Add: []string{"k"}}},
					{Low: 11, High: 20, Content: "A key glints in the carpet.", Effect: scenario.Effect{Add: []string{"k"}}},
				}},
				Options: []string{"Take the key"},
			},
			{
				ID: "walk", Keywords: []string{"walk"}, Text: "You walk until your legs ache.", Minutes: 30,
				Effect: scenario.Effect{HP: -1, Level: "Level 1"},
			},
		},
		Fallback: scenario.Fallback{Text: "You said %s.", Options: []string{"Again"}, Minutes: 5},
	}
}

func chunkTypes(chunks []types.Chunk) []types.ChunkType {
	out := make([]types.ChunkType, len(chunks))
	for i, c := range chunks {
		out[i] = c.Type
	}
	return out
}

func request(ev types.EventType, input string) types.ChatRequest {
	return types.ChatRequest{Event: types.GameEvent{Type: ev}, PlayerInput: input, SessionID: "s"}
}

func TestRespond_Init(t *testing.T) {
	n := New(testScenario(), NewRNG(1), nil)

	chunks, st := n.Respond(request(types.EventInit, ""), nil)
	assert.Equal(t, []types.ChunkType{
		types.ChunkInit, types.ChunkMessage, types.ChunkMessage, types.ChunkState, types.ChunkSuggestions,
	}, chunkTypes(chunks))
	assert.Equal(t, "LEVEL 0: Test", chunks[0].Text)
	assert.Equal(t, []string{"Listen", "Walk"}, chunks[4].Options)
	assert.Equal(t, 3, st.Inventory[0].Quantity)
}

func TestRespond_MissingStateRestarts(t *testing.T) {
	n := New(testScenario(), NewRNG(1), nil)
	chunks, _ := n.Respond(request(types.EventMessage, "listen"), nil)
	assert.Equal(t, types.ChunkInit, chunks[0].Type)
}

func TestRespond_Check(t *testing.T) {
	n := New(testScenario(), NewRNG(1), nil)
	start := testScenario().InitialState()

	chunks, st := n.Respond(request(types.EventMessage, "I listen"), start)
	require.Equal(t, []types.ChunkType{
		types.ChunkMessage, types.ChunkLogicEvent, types.ChunkDiceRoll,
		types.ChunkSettlement, types.ChunkMessage, types.ChunkState, types.ChunkSuggestions,
	}, chunkTypes(chunks))

	ev := chunks[1].Event
	dice := chunks[2].Dice
	assert.Equal(t, "Perception", ev.Name)
	assert.Equal(t, "d20", dice.Type)
	assert.Equal(t, "Perception", dice.Reason)
	assert.GreaterOrEqual(t, dice.Result, 1)
	assert.LessOrEqual(t, dice.Result, 20)

	assert.Equal(t, []string{"Key"}, chunks[3].Delta.ItemsAdded)
	assert.Equal(t, 490, st.Time)
	assert.Equal(t, "Key", st.Inventory[1].Name)
	assert.Nil(t, start.Inventory[1], "request snapshot untouched")
}

func TestRespond_CheckIsDeterministic(t *testing.T) {
	a := New(testScenario(), NewRNG(42), nil)
	b := New(testScenario(), NewRNG(42), nil)
	st := testScenario().InitialState()
	for i := 0; i < 5; i++ {
		ca, _ := a.Respond(request(types.EventMessage, "listen"), st)
		cb, _ := b.Respond(request(types.EventMessage, "listen"), st)
		assert.Equal(t, ca[2].Dice.Result, cb[2].Dice.Result)
	}
}

func TestRespond_EffectAndLevel(t *testing.T) {
	n := New(testScenario(), NewRNG(1), nil)

	chunks, st := n.Respond(request(types.EventAction, "walk"), testScenario().InitialState())
	assert.Equal(t, []types.ChunkType{types.ChunkMessage, types.ChunkSettlement, types.ChunkState}, chunkTypes(chunks))
	assert.Equal(t, -1, chunks[1].Delta.HPChange)
	assert.Equal(t, "Level 1", chunks[1].Delta.LevelTransition)
	assert.Equal(t, "Level 1", st.Level)
	assert.Equal(t, 510, st.Time)
}

func TestRespond_Fallback(t *testing.T) {
	n := New(testScenario(), NewRNG(1), nil)

	chunks, st := n.Respond(request(types.EventMessage, "dance"), testScenario().InitialState())
	assert.Equal(t, []types.ChunkType{types.ChunkMessage, types.ChunkState, types.ChunkSuggestions}, chunkTypes(chunks))
	assert.Equal(t, "You said dance.", chunks[0].Text)
	assert.Equal(t, 485, st.Time)
}

func TestRespond_UseAndDrop(t *testing.T) {
	n := New(testScenario(), NewRNG(1), nil)
	start := testScenario().InitialState()

	req := request(types.EventUse, "")
	req.Event.ItemID = "w"
	chunks, st := n.Respond(req, start)
	assert.Equal(t, []types.ChunkType{types.ChunkMessage, types.ChunkSettlement, types.ChunkState}, chunkTypes(chunks))
	assert.Equal(t, "Sweet.", chunks[0].Text)
	assert.Equal(t, 2, chunks[1].Delta.HPChange)
	assert.Equal(t, 2, st.Inventory[0].Quantity)

	req = request(types.EventDrop, "")
	req.Event.ItemID = "w"
	req.Event.Quantity = 5
	chunks, st = n.Respond(req, st)
	assert.Equal(t, "You leave 2× Almond Water on the damp carpet.", chunks[0].Text)
	assert.Nil(t, st.Inventory[0])

	req.Event.ItemID = "ghost"
	chunks, same := n.Respond(req, st)
	assert.Equal(t, []types.ChunkType{types.ChunkMessage}, chunkTypes(chunks))
	assert.Same(t, st, same)
}

// The narrator's sequences must drive the client engine to a settled log.
func TestRespond_DrivesEngine(t *testing.T) {
	n := New(testScenario(), NewRNG(3), nil)
	e := engine.New("s", nil)

	feed := func(chunks []types.Chunk) {
		for _, c := range chunks {
			e.Enqueue(c)
		}
	}
	settle := func() {
		for i := 0; i < 100; i++ {
			if id, ok := e.Awaiting(); ok {
				if m, _ := e.Message(id); m.LogicEventConfirmed != nil && !*m.LogicEventConfirmed {
					require.NoError(t, e.Confirm(id))
				}
			}
			cues := e.Cues()
			if len(cues) == 0 && !e.Animating() {
				return
			}
			for _, c := range cues {
				if c.Kind == engine.CueDice {
					e.DiceAnimationComplete()
				} else {
					e.AnimationComplete()
				}
			}
		}
		t.Fatal("engine did not settle")
	}

	chunks, _ := n.Respond(request(types.EventInit, ""), nil)
	feed(chunks)
	settle()

	chunks, _ = n.Respond(request(types.EventMessage, "listen"), e.State)
	feed(chunks)
	settle()

	assert.Empty(t, e.Pending())
	_, awaiting := e.Awaiting()
	assert.False(t, awaiting)

	var gated *types.Message
	for i := range e.Messages {
		if e.Messages[i].LogicEvent != nil {
			gated = &e.Messages[i]
		}
	}
	require.NotNil(t, gated)
	assert.Equal(t, "The hum swells.", gated.Text)
	require.NotNil(t, gated.LogicRollResult)

	last := e.Messages[len(e.Messages)-1]
	assert.Equal(t, []string{"Take the key"}, last.Options)
	assert.Equal(t, "Key", e.State.Inventory[1].Name)
}
