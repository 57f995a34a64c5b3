package engine

import (
	"errors"
	"strings"
	"testing"

	"github.com/nathoo/backroom/engine/decode"
	"github.com/nathoo/backroom/types"
)

func testState(level string) *types.GameState {
	return &types.GameState{
		Level:      level,
		Time:       480,
		Attributes: types.Attributes{STR: 12, DEX: 14, CON: 13, INT: 16, WIS: 10, CHA: 8},
		Vitals:     types.Vitals{HP: 18, MaxHP: 20, Sanity: 85, MaxSanity: 100},
		Inventory:  make([]*types.Item, types.InventorySize),
	}
}

func dm(text string) types.Chunk {
	return types.Chunk{Type: types.ChunkMessage, Sender: types.SenderDM, Text: text}
}

func dice(result int) types.Chunk {
	return types.Chunk{Type: types.ChunkDiceRoll, Dice: &types.DiceRoll{Type: "d20", Result: result}}
}

func logic(name string) types.Chunk {
	return types.Chunk{Type: types.ChunkLogicEvent, Event: &types.LogicEvent{
		Name:    name,
		DieType: "d20",
		Outcomes: []types.Outcome{
			{Range: [2]int{1, 10}, Content: "fail"},
			{Range: [2]int{11, 20}, Content: "pass"},
		},
	}}
}

// loadedEngine returns an engine that already holds a snapshot, so text
// chunks animate.
func loadedEngine() *Engine {
	e := New("session-test", nil)
	e.Enqueue(types.Chunk{Type: types.ChunkState, State: testState("Level 0")})
	return e
}

// finishAnimations plays every animation to completion, as a UI would.
func finishAnimations(e *Engine) {
	for i := 0; e.Animating() && i < 1000; i++ {
		if e.Rolling() != nil {
			e.DiceAnimationComplete()
		} else {
			e.AnimationComplete()
		}
	}
}

func texts(e *Engine) []string {
	var out []string
	for _, m := range e.Messages {
		out = append(out, m.Text)
	}
	return out
}

func TestArrivalOrderWithoutLogicEvents(t *testing.T) {
	e := loadedEngine()
	e.Enqueue(types.Chunk{Type: types.ChunkInit, Text: "banner"})
	e.Enqueue(dm("one"))
	e.Enqueue(types.Chunk{Type: types.ChunkSettlement, Delta: &types.Settlement{HPChange: -1}})
	e.Enqueue(dm("two"))
	e.Enqueue(dice(4))
	e.Enqueue(dm("three"))

	if len(e.Messages) != 1 {
		t.Fatalf("only the banner should render before its animation ends, got %v", texts(e))
	}

	finishAnimations(e)

	got := strings.Join(texts(e), "|")
	if got != "banner|one||two|three" {
		t.Errorf("messages = %q", got)
	}
	if len(e.Pending()) != 0 {
		t.Errorf("queue should drain, pending %v", e.Pending())
	}
}

func TestLogicGateScenario(t *testing.T) {
	e := New("s", nil)

	e.Enqueue(dm("You see a door."))
	e.Enqueue(logic("Open"))
	e.Enqueue(dm("Success!"))
	e.Enqueue(dice(20))
	e.Enqueue(types.Chunk{Type: types.ChunkSettlement, Delta: &types.Settlement{HPChange: 10}})
	finishAnimations(e)

	if len(e.Messages) != 1 {
		t.Fatalf("expected only the door message before confirmation, got %v", texts(e))
	}
	door := e.Messages[0]
	if door.LogicEvent == nil || door.LogicEvent.Name != "Open" {
		t.Fatalf("door message should carry the logic event: %+v", door)
	}
	if door.LogicEventConfirmed == nil || *door.LogicEventConfirmed {
		t.Error("logic event should start unconfirmed")
	}
	if id, ok := e.Awaiting(); !ok || id != door.ID {
		t.Errorf("awaiting = %d, %v; want %d", id, ok, door.ID)
	}
	if e.CachedRoll() == nil || e.CachedRoll().Result != 20 {
		t.Fatalf("dice roll should be cached, got %+v", e.CachedRoll())
	}
	if e.Rolling() != nil {
		t.Error("dice animation must not start before confirmation")
	}
	if got := e.Pending(); len(got) != 2 || got[0] != types.ChunkMessage || got[1] != types.ChunkSettlement {
		t.Errorf("pending = %v, want [message settlement]", got)
	}
	e.Cues()

	if err := e.Confirm(door.ID); err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	cues := e.Cues()
	if len(cues) != 1 || cues[0].Kind != CueDice || cues[0].Roll.Result != 20 || cues[0].MessageID != door.ID {
		t.Fatalf("confirmation should start the cached roll at once, cues = %+v", cues)
	}
	if len(e.Messages) != 1 {
		t.Error("nothing else may render while the dice animates")
	}

	e.DiceAnimationComplete()
	finishAnimations(e)

	if len(e.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %v", texts(e))
	}
	if e.Messages[1].Text != "Success!" {
		t.Errorf("second message = %q", e.Messages[1].Text)
	}
	if s := e.Messages[2].Settlement; s == nil || s.HPChange != 10 {
		t.Errorf("third message settlement = %+v", s)
	}
	if r := e.Messages[0].LogicRollResult; r == nil || *r != 20 {
		t.Errorf("roll result should be written to the door message, got %v", r)
	}
	if _, ok := e.Awaiting(); ok {
		t.Error("gate should be released")
	}
}

func TestDiceJumpsQueuedNarrative(t *testing.T) {
	e := loadedEngine()
	e.Enqueue(types.Chunk{
		Type: types.ChunkMessage, Text: "Roll for it.", Sender: types.SenderDM,
		LogicEvent: logic("Climb").Event,
	})
	gate := e.Messages[0].ID
	e.AnimationComplete()

	e.Enqueue(dm("narrative after the roll"))
	e.Enqueue(types.Chunk{Type: types.ChunkState, State: testState("Level 0")})
	e.Enqueue(dice(3))

	if e.CachedRoll() == nil {
		t.Fatal("dice roll should be pulled past queued narrative and cached")
	}
	if got := e.Pending(); len(got) != 2 || got[0] != types.ChunkMessage || got[1] != types.ChunkState {
		t.Errorf("relative order of non-dice chunks changed: %v", got)
	}

	if err := e.Confirm(gate); err != nil {
		t.Fatal(err)
	}
	if e.Rolling() == nil {
		t.Fatal("expected roll to start")
	}
	e.DiceAnimationComplete()
	finishAnimations(e)

	if len(e.Messages) != 2 || e.Messages[1].Text != "narrative after the roll" {
		t.Errorf("messages = %v", texts(e))
	}
}

func TestUngatedDiceRollPlaysImmediately(t *testing.T) {
	e := loadedEngine()
	e.Enqueue(dice(6))

	cues := e.Cues()
	if len(cues) != 1 || cues[0].Kind != CueDice || cues[0].MessageID != 0 {
		t.Fatalf("cues = %+v", cues)
	}
	if !e.Animating() {
		t.Error("dice animation should hold the lock")
	}
	e.DiceAnimationComplete()
	if e.Animating() || e.Rolling() != nil {
		t.Error("dice completion should release the lock")
	}
	if len(e.Messages) != 0 {
		t.Error("spectacle rolls do not create messages")
	}
}

func TestConfirmBeforeDiceArrives(t *testing.T) {
	e := New("s", nil)
	e.Enqueue(dm("A shadow moves."))
	e.Enqueue(logic("Notice"))
	id := e.Messages[0].ID

	if err := e.Confirm(id); err != nil {
		t.Fatal(err)
	}
	if e.Rolling() != nil {
		t.Fatal("nothing to roll yet")
	}

	e.Enqueue(dice(11))
	if e.Rolling() == nil || e.Rolling().Result != 11 {
		t.Fatalf("confirmed gate should let the roll play on arrival, rolling = %+v", e.Rolling())
	}
}

func TestConfirmDuringTextAnimation(t *testing.T) {
	e := loadedEngine()
	e.Enqueue(dm("A lock."))
	e.Enqueue(logic("Pick"))
	id := e.Messages[0].ID
	e.Enqueue(dice(9))

	if e.CachedRoll() != nil || e.Rolling() != nil {
		t.Fatal("dice must wait behind the text animation")
	}
	if err := e.Confirm(id); err != nil {
		t.Fatal(err)
	}
	if e.Rolling() != nil {
		t.Fatal("dice must not interrupt the text animation")
	}

	e.AnimationComplete()
	if e.Rolling() == nil || e.Rolling().Result != 9 {
		t.Fatalf("dice should start once the text animation completes, rolling = %+v", e.Rolling())
	}
}

func TestSecondDiceRollStaysQueued(t *testing.T) {
	e := New("s", nil)
	e.Enqueue(dm("Two checks."))
	e.Enqueue(logic("First"))
	e.Enqueue(dice(1))
	e.Enqueue(dice(2))

	if e.CachedRoll() == nil || e.CachedRoll().Result != 1 {
		t.Fatalf("first roll should be cached, got %+v", e.CachedRoll())
	}
	if got := e.Pending(); len(got) != 1 || got[0] != types.ChunkDiceRoll {
		t.Fatalf("second roll must stay queued, pending = %v", got)
	}

	e.Confirm(e.Messages[0].ID)
	e.DiceAnimationComplete()
	if e.Rolling() == nil || e.Rolling().Result != 2 {
		t.Errorf("second roll should play ungated after the gate opens, rolling = %+v", e.Rolling())
	}
	if r := e.Messages[0].LogicRollResult; r == nil || *r != 1 {
		t.Errorf("gate result = %v, want 1", r)
	}
}

func TestRollResultNeverOverwritten(t *testing.T) {
	e := New("s", nil)
	e.Enqueue(dm("Check."))
	e.Enqueue(logic("Once"))
	id := e.Messages[0].ID
	e.Enqueue(dice(7))
	e.Confirm(id)
	e.DiceAnimationComplete()

	// A second logic event on the same message re-gates it; its roll must
	// not replace the recorded result.
	e.Enqueue(logic("Again"))
	e.Confirm(id)
	e.Enqueue(dice(19))
	e.DiceAnimationComplete()

	if r := e.Messages[0].LogicRollResult; r == nil || *r != 7 {
		t.Errorf("roll result = %v, want 7", r)
	}
}

func TestPatchMergeProducesNoStandaloneMessage(t *testing.T) {
	e := loadedEngine()
	e.Enqueue(dm("first")) // animating: later chunks queue up
	e.Enqueue(dm("second"))
	e.Enqueue(types.Chunk{Type: types.ChunkSuggestions, Options: []string{"left", "right"}})
	e.Enqueue(types.Chunk{Type: types.ChunkInit, Text: "banner"})
	e.Enqueue(types.Chunk{Type: types.ChunkSettlement, Delta: &types.Settlement{}})

	if got := e.Pending(); len(got) != 3 {
		t.Fatalf("suggestions must merge into the queued message, pending = %v", got)
	}

	finishAnimations(e)

	if len(e.Messages) != 4 {
		t.Fatalf("expected one message per message/init/settlement chunk, got %d", len(e.Messages))
	}
	if opts := e.Messages[1].Options; len(opts) != 2 {
		t.Errorf("second message should carry the options, got %v", opts)
	}
	if e.Messages[0].Options != nil {
		t.Error("first message should be untouched")
	}
}

func TestPatchAppliesToRenderedMessage(t *testing.T) {
	e := New("s", nil)
	e.Enqueue(dm("rendered"))
	e.Enqueue(types.Chunk{Type: types.ChunkSuggestions, Options: []string{"a"}})

	if len(e.Messages) != 1 || len(e.Messages[0].Options) != 1 {
		t.Errorf("suggestions should patch the rendered message: %+v", e.Messages)
	}

	// No target at all: silently dropped.
	empty := New("s", nil)
	empty.Enqueue(types.Chunk{Type: types.ChunkSuggestions, Options: []string{"a"}})
	empty.Enqueue(logic("Orphan"))
	if len(empty.Messages) != 0 || len(empty.Pending()) != 0 {
		t.Error("orphan patches should be dropped")
	}
	if _, ok := empty.Awaiting(); ok {
		t.Error("orphan logic event must not gate dispatch")
	}
}

func TestSelectOptionFirstChoiceWins(t *testing.T) {
	e := New("s", nil)
	e.Enqueue(types.Chunk{Type: types.ChunkMessage, Text: "Which way?", Options: []string{"north", "east"}})
	id := e.Messages[0].ID

	ok, err := e.SelectOption(id, "east")
	if err != nil || !ok {
		t.Fatalf("first selection: ok=%v err=%v", ok, err)
	}
	for i := 0; i < 3; i++ {
		ok, err = e.SelectOption(id, "north")
		if err != nil || ok {
			t.Errorf("repeat selection should be a no-op: ok=%v err=%v", ok, err)
		}
	}
	if got := *e.Messages[0].SelectedOption; got != "east" {
		t.Errorf("selected = %q, want east", got)
	}

	if _, err := e.SelectOption(999, "x"); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("unknown message: %v", err)
	}
	e.Enqueue(types.Chunk{Type: types.ChunkMessage, Text: "Again?", Options: []string{"yes"}})
	if _, err := e.SelectOption(e.Messages[1].ID, "no"); !errors.Is(err, ErrUnknownOption) {
		t.Errorf("unknown option: %v", err)
	}
}

func TestConfirmErrors(t *testing.T) {
	e := New("s", nil)
	if err := e.Confirm(1); !errors.Is(err, ErrUnknownMessage) {
		t.Errorf("expected ErrUnknownMessage, got %v", err)
	}
	e.Enqueue(dm("plain"))
	if err := e.Confirm(e.Messages[0].ID); !errors.Is(err, ErrNoLogicEvent) {
		t.Errorf("expected ErrNoLogicEvent, got %v", err)
	}
}

func TestLevelTransitionOrdering(t *testing.T) {
	e := loadedEngine()
	e.Enqueue(types.Chunk{Type: types.ChunkState, State: testState("Level 1")})

	if !e.Animating() || !e.InTransition() {
		t.Fatal("level change should take the lock")
	}
	if e.State.Level != "Level 0" {
		t.Fatal("snapshot must not swap before the fade-out completes")
	}
	cues := e.Cues()
	if len(cues) != 1 || cues[0].Kind != CueLevelHide || cues[0].Level != "Level 1" {
		t.Fatalf("cues = %+v", cues)
	}

	e.Enqueue(dm("arrived"))
	e.AnimationComplete()

	if e.State.Level != "Level 1" {
		t.Fatal("snapshot should swap between the phases")
	}
	if !e.Animating() {
		t.Fatal("lock must be held across the reveal")
	}
	if len(e.Messages) != 0 {
		t.Fatal("no chunk may dispatch between lock set and lock cleared")
	}
	cues = e.Cues()
	if len(cues) != 1 || cues[0].Kind != CueLevelReveal {
		t.Fatalf("cues = %+v", cues)
	}

	e.AnimationComplete()
	if e.InTransition() {
		t.Error("transition should be over")
	}
	if len(e.Messages) != 1 || e.Messages[0].Text != "arrived" {
		t.Errorf("queued message should dispatch after the reveal, got %v", texts(e))
	}
}

func TestInitContextBypassesQueue(t *testing.T) {
	e := loadedEngine()
	e.Enqueue(dm("typing...")) // holds the lock
	e.Enqueue(dm("queued"))

	ctxState := testState("Level 3")
	e.Enqueue(types.Chunk{Type: types.ChunkInitContext, State: ctxState})

	if e.State != ctxState {
		t.Error("context snapshot should apply synchronously")
	}
	if len(e.Pending()) != 1 {
		t.Errorf("context snapshot must not be queued, pending = %v", e.Pending())
	}
	if len(e.Cues()) != 1 {
		t.Error("context snapshot must not start a transition")
	}
}

func TestMessageIDsStrictlyIncrease(t *testing.T) {
	e := New("s", nil)
	req, ok := e.StartRequest(types.GameEvent{Type: types.EventInit}, "", true)
	if !ok || req.CurrentState != nil {
		t.Fatalf("init request = %+v, %v", req, ok)
	}
	for i := 0; i < 50; i++ {
		e.Enqueue(dm("x"))
	}
	e.FinishRequest(errors.New("boom"))
	for i := 1; i < len(e.Messages); i++ {
		if e.Messages[i].ID <= e.Messages[i-1].ID {
			t.Fatalf("IDs not increasing at %d: %d <= %d", i, e.Messages[i].ID, e.Messages[i-1].ID)
		}
	}
}

func TestStartRequest(t *testing.T) {
	e := New("session-abc", nil)

	if _, ok := e.StartRequest(types.GameEvent{Type: types.EventMessage}, "hello", false); ok {
		t.Error("non-init request needs a snapshot")
	}
	if len(e.Messages) != 1 || e.Messages[0].Sender != types.SenderPlayer {
		t.Errorf("player line should be appended optimistically: %+v", e.Messages)
	}

	e.Enqueue(types.Chunk{Type: types.ChunkState, State: testState("Level 0")})
	req, ok := e.StartRequest(types.GameEvent{Type: types.EventUse, ItemID: "2", Quantity: 1}, "use Flashlight", false)
	if !ok {
		t.Fatal("expected request")
	}
	if req.SessionID != "session-abc" || req.CurrentState != e.State || req.Event.ItemID != "2" {
		t.Errorf("request = %+v", req)
	}
	if !e.Loading {
		t.Error("loading should be set")
	}

	e.StartRequest(types.GameEvent{Type: types.EventMessage}, "hidden", true)
	if len(e.Messages) != 2 {
		t.Error("hidden sends must not append a player line")
	}
}

func TestFailureLeavesQueueAndLock(t *testing.T) {
	e := New("s", nil)
	e.Enqueue(dm("Check."))
	e.Enqueue(logic("Hold"))
	e.Enqueue(dm("blocked"))
	e.StartRequest(types.GameEvent{Type: types.EventInit}, "", true)

	e.FinishRequest(errors.New("connection refused"))

	if e.Loading {
		t.Error("loading should clear on failure")
	}
	last := e.Messages[len(e.Messages)-1]
	if last.Sender != types.SenderSystem || last.Text != ConnectionLostText {
		t.Errorf("last message = %+v", last)
	}
	if _, ok := e.Awaiting(); !ok {
		t.Error("gate should survive the failure")
	}
	if len(e.Pending()) != 1 {
		t.Errorf("queue should survive the failure, pending = %v", e.Pending())
	}
}

func TestDecodedStreamDrivesEngine(t *testing.T) {
	e := New("s", nil)
	d := decode.New(decode.NDJSON, nil)
	stream := `{"type":"state","state":{"level":"Level 0","time":480}}` + "\n" +
		"{bad json\n" +
		`{"type":"message","text":"You wake up.","sender":"dm"}` + "\n"

	for _, c := range d.Feed([]byte(stream)) {
		e.Enqueue(c)
	}
	finishAnimations(e)

	if e.State == nil || e.State.Level != "Level 0" {
		t.Fatalf("state chunk should apply, got %+v", e.State)
	}
	if len(e.Messages) != 1 || e.Messages[0].Text != "You wake up." {
		t.Errorf("message chunk should apply after the bad line, got %v", texts(e))
	}
}

func TestRestore(t *testing.T) {
	e := loadedEngine()
	e.Enqueue(dm("a"))
	e.Enqueue(dm("b"))

	msgs := []types.Message{{ID: 40, Sender: types.SenderDM, Text: "saved"}}
	e.Restore(msgs, testState("Level 2"))

	if e.Animating() || len(e.Pending()) != 0 {
		t.Error("restore should reset the scheduler")
	}
	e.FinishRequest(errors.New("x"))
	if got := e.Messages[1].ID; got != 41 {
		t.Errorf("next ID after restore = %d, want 41", got)
	}
}
