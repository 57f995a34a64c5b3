package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

func TestCompileCheck(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	require.NoError(t, L.DoString(`
		return Check("Perception", "D20", {
			Outcome(1, 10, "miss"),
			Outcome(11, 20, "hit", { hp = -2, sanity = 3, add = {"a", "b"}, remove = "c", level = "Level 2" }),
		})
	`))
	c, err := compileCheck(L.CheckTable(-1))
	require.NoError(t, err)

	assert.Equal(t, "Perception", c.Name)
	assert.Equal(t, "d20", c.DieType)
	require.Len(t, c.Outcomes, 2)
	assert.True(t, c.Outcomes[0].Effect.Empty())
	assert.Equal(t, Effect{HP: -2, Sanity: 3, Add: []string{"a", "b"}, Remove: []string{"c"}, Level: "Level 2"}, c.Outcomes[1].Effect)

	ev := c.LogicEvent()
	assert.Equal(t, [2]int{11, 20}, ev.Outcomes[1].Range)
	assert.Equal(t, "hit", ev.Outcomes[1].Content)
}

func TestCompileCheck_BadOutcome(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	require.NoError(t, L.DoString(`return Check("x", "d6", { "not a table" })`))
	_, err := compileCheck(L.CheckTable(-1))
	assert.Error(t, err)
}

func TestCompile_Duplicates(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	require.NoError(t, L.DoString(`
		Scenario { title = "t" }
		Item "a" { name = "A" }
		Item "a" { name = "A again" }
	`))
	_, err := compile(coll)
	assert.ErrorContains(t, err, `item "a" defined twice`)
}

func TestCheckResolve(t *testing.T) {
	c := &Check{DieType: "d20", Outcomes: []Outcome{
		{Low: 1, High: 10, Content: "low"},
		{Low: 11, High: 20, Content: "high"},
	}}
	o, ok := c.Resolve(11)
	require.True(t, ok)
	assert.Equal(t, "high", o.Content)
	_, ok = c.Resolve(21)
	assert.False(t, ok)
}

func TestMatch(t *testing.T) {
	s := &Scenario{Triggers: []Trigger{
		{ID: "listen", Keywords: []string{"listen", "hum"}},
		{ID: "north", Keywords: []string{"north", "follow the draft"}},
	}}
	tests := []struct {
		input string
		want  string
	}{
		{"I listen carefully", "listen"},
		{"Walk NORTH!", "north"},
		{"follow the draft north and listen", "listen"},
		{"I follow the draft", "north"},
		{"humming", ""},
		{"", ""},
	}
	for _, tt := range tests {
		tr, ok := s.Match(tt.input)
		if tt.want == "" {
			assert.False(t, ok, tt.input)
			continue
		}
		require.True(t, ok, tt.input)
		assert.Equal(t, tt.want, tr.ID, tt.input)
	}
}

func TestNewItem(t *testing.T) {
	s := &Scenario{Items: map[string]ItemDef{"k": {Item: testItem("k", "Key"), Start: 0}}}
	it, ok := s.NewItem("k")
	require.True(t, ok)
	assert.Equal(t, 1, it.Quantity)
	_, ok = s.NewItem("missing")
	assert.False(t, ok)
}
