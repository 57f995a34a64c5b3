package scenario

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/backroom/types"
)

func TestDefault(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "The Lobby", s.Title)
	assert.Equal(t, "Level 0", s.Level)
	assert.Equal(t, 480, s.Time)
	assert.Len(t, s.Options, 4)
	assert.NotEmpty(t, s.Intro)
	assert.NotEmpty(t, s.Triggers)
	assert.Empty(t, s.Warnings)

	st := s.InitialState()
	assert.Len(t, st.Inventory, types.InventorySize)
	assert.Equal(t, "Almond Water", st.Inventory[0].Name)
	assert.Equal(t, 3, st.Inventory[0].Quantity)
	assert.Equal(t, types.Vitals{HP: 18, MaxHP: 20, Sanity: 85, MaxSanity: 100}, st.Vitals)
}

func TestLoad_Minimal(t *testing.T) {
	s, err := Load("testdata/minimal")
	require.NoError(t, err)

	assert.Equal(t, "Minimal", s.Title)
	assert.Equal(t, []string{"You are here."}, s.Intro)
	assert.Equal(t, 480, s.Time, "time defaults to 08:00")
	assert.Equal(t, []string{"w", "k"}, s.ItemOrder)
	assert.Equal(t, 3, s.Items["w"].Use.HP)

	require.Len(t, s.Triggers, 1)
	door := s.Triggers[0]
	require.NotNil(t, door.Check)
	assert.Equal(t, "d6", door.Check.DieType)
	assert.Equal(t, []string{"k"}, door.Check.Outcomes[1].Effect.Add)
	assert.Equal(t, "Level 1", door.Check.Outcomes[1].Effect.Level)
	assert.Equal(t, 10, door.Minutes)

	st := s.InitialState()
	assert.Equal(t, 2, st.Inventory[0].Quantity)
	assert.Nil(t, st.Inventory[1], "items without a start quantity are not carried")
}

func TestLoad_BadBands(t *testing.T) {
	_, err := Load("testdata/badbands")
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "leaves rolls 10..11 uncovered")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		files fstest.MapFS
		want  string
	}{
		{
			name:  "no lua files",
			files: fstest.MapFS{"readme.txt": {Data: []byte("hi")}},
			want:  "no .lua files",
		},
		{
			name:  "syntax error",
			files: fstest.MapFS{"scenario.lua": {Data: []byte("Scenario {")}},
			want:  "parsing scenario.lua",
		},
		{
			name:  "runtime error",
			files: fstest.MapFS{"scenario.lua": {Data: []byte("nope()")}},
			want:  "executing scenario.lua",
		},
		{
			name:  "missing scenario block",
			files: fstest.MapFS{"scenario.lua": {Data: []byte(`Fallback { text = "x" }`)}},
			want:  "no Scenario {} block",
		},
		{
			name: "sandboxed globals",
			files: fstest.MapFS{"scenario.lua": {Data: []byte(`dofile("/etc/passwd")`)}},
			want: "executing scenario.lua",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFS(tt.files)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_FileOrder(t *testing.T) {
	// scenario.lua runs first even though items.lua sorts before it, and
	// triggers keep source order across files.
	files := fstest.MapFS{
		"a_triggers.lua": {Data: []byte(`
			Trigger "one" { keywords = {"one"}, text = "1" }
			Trigger "two" { keywords = {"two"}, text = "2" }
		`)},
		"b_triggers.lua": {Data: []byte(`Trigger "three" { keywords = {"three"}, text = "3" }`)},
		"scenario.lua": {Data: []byte(`
			Scenario { title = "t", level = "L", intro = "i",
				vitals = { hp = 1, maxHp = 1, sanity = 1, maxSanity = 1 } }
			Fallback { text = "f" }
		`)},
	}
	s, err := LoadFS(files)
	require.NoError(t, err)
	ids := []string{}
	for _, tr := range s.Triggers {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"one", "two", "three"}, ids)
}

func TestSortedLuaFiles(t *testing.T) {
	got := sortedLuaFiles([]string{"z.lua", "items.lua", "scenario.lua", "a.lua"})
	assert.Equal(t, []string{"scenario.lua", "a.lua", "items.lua", "z.lua"}, got)
}
