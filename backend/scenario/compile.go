package scenario

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	lua "github.com/yuin/gopher-lua"

	"github.com/nathoo/backroom/types"
)

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	if s, ok := tbl.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getBool returns a bool field from a Lua table, or the default if missing.
func getBool(tbl *lua.LTable, key string, def bool) bool {
	if b, ok := tbl.RawGetString(key).(lua.LBool); ok {
		return bool(b)
	}
	return def
}

// getInt returns an integer field from a Lua table, or def if missing.
func getInt(tbl *lua.LTable, key string, def int) int {
	if n, ok := tbl.RawGetString(key).(lua.LNumber); ok {
		return int(n)
	}
	return def
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	if t, ok := tbl.RawGetString(key).(*lua.LTable); ok {
		return t
	}
	return nil
}

// getStrings returns the array part of a table field as strings. A bare
// string value is treated as a one-element list.
func getStrings(tbl *lua.LTable, key string) []string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return []string{string(s)}
	}
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	for i := 1; i <= t.MaxN(); i++ {
		if s, ok := t.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

func compile(coll *collector) (*Scenario, error) {
	if coll.scenario == nil {
		return nil, fmt.Errorf("no Scenario {} block defined")
	}

	s := compileScenario(coll.scenario)

	s.Items = make(map[string]ItemDef, len(coll.items))
	for _, raw := range coll.items {
		if _, dup := s.Items[raw.id]; dup {
			return nil, fmt.Errorf("item %q defined twice", raw.id)
		}
		s.Items[raw.id] = compileItem(raw)
		s.ItemOrder = append(s.ItemOrder, raw.id)
	}

	seen := map[string]bool{}
	for _, raw := range coll.triggers {
		if seen[raw.id] {
			return nil, fmt.Errorf("trigger %q defined twice", raw.id)
		}
		seen[raw.id] = true
		t, err := compileTrigger(raw)
		if err != nil {
			return nil, err
		}
		s.Triggers = append(s.Triggers, t)
	}
	sort.SliceStable(s.Triggers, func(i, j int) bool {
		return s.Triggers[i].Order < s.Triggers[j].Order
	})

	if coll.fallback != nil {
		s.Fallback = Fallback{
			Text:    getString(coll.fallback, "text"),
			Options: getStrings(coll.fallback, "options"),
			Minutes: getInt(coll.fallback, "minutes", 5),
		}
	}
	return s, nil
}

func compileScenario(tbl *lua.LTable) *Scenario {
	s := &Scenario{
		Title:   getString(tbl, "title"),
		Level:   getString(tbl, "level"),
		Time:    getInt(tbl, "time", 480),
		Intro:   getStrings(tbl, "intro"),
		Options: getStrings(tbl, "options"),
	}
	if a := getTable(tbl, "attributes"); a != nil {
		s.Attributes = types.Attributes{
			STR: getInt(a, "STR", 10),
			DEX: getInt(a, "DEX", 10),
			CON: getInt(a, "CON", 10),
			INT: getInt(a, "INT", 10),
			WIS: getInt(a, "WIS", 10),
			CHA: getInt(a, "CHA", 10),
		}
	}
	if v := getTable(tbl, "vitals"); v != nil {
		s.Vitals = types.Vitals{
			HP:        getInt(v, "hp", 0),
			MaxHP:     getInt(v, "maxHp", 0),
			Sanity:    getInt(v, "sanity", 0),
			MaxSanity: getInt(v, "maxSanity", 100),
		}
	}
	return s
}

func compileItem(raw rawItem) ItemDef {
	tbl := raw.table
	def := ItemDef{
		Item: types.Item{
			ID:          raw.id,
			Name:        getString(tbl, "name"),
			Icon:        getString(tbl, "icon"),
			Description: getString(tbl, "description"),
			Category:    getString(tbl, "category"),
		},
		Start:   getInt(tbl, "start", 0),
		UseText: getString(tbl, "use_text"),
		Keep:    getBool(tbl, "keep", false),
	}
	if use := getTable(tbl, "use"); use != nil {
		def.Use = compileEffect(use)
	}
	return def
}

func compileTrigger(raw rawTrigger) (Trigger, error) {
	tbl := raw.table
	t := Trigger{
		ID:      raw.id,
		Text:    getString(tbl, "text"),
		Options: getStrings(tbl, "options"),
		Minutes: getInt(tbl, "minutes", 10),
		Order:   raw.order,
	}
	for _, k := range getStrings(tbl, "keywords") {
		t.Keywords = append(t.Keywords, strings.ToLower(k))
	}
	if eff := getTable(tbl, "effect"); eff != nil {
		t.Effect = compileEffect(eff)
	}
	if chk := getTable(tbl, "check"); chk != nil {
		c, err := compileCheck(chk)
		if err != nil {
			return Trigger{}, fmt.Errorf("trigger %q: %w", raw.id, err)
		}
		t.Check = c
	}
	return t, nil
}

func compileCheck(tbl *lua.LTable) (*Check, error) {
	c := &Check{
		Name:    getString(tbl, "name"),
		DieType: strings.ToLower(getString(tbl, "die")),
	}
	outs := getTable(tbl, "outcomes")
	if outs == nil {
		return nil, fmt.Errorf("check %q has no outcomes", c.Name)
	}
	for i := 1; i <= outs.MaxN(); i++ {
		o, ok := outs.RawGetInt(i).(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("check %q outcome %d is not a table", c.Name, i)
		}
		out := Outcome{
			Low:     getInt(o, "low", 0),
			High:    getInt(o, "high", 0),
			Content: getString(o, "content"),
		}
		if eff := getTable(o, "effect"); eff != nil {
			out.Effect = compileEffect(eff)
		}
		c.Outcomes = append(c.Outcomes, out)
	}
	return c, nil
}

func compileEffect(tbl *lua.LTable) Effect {
	return Effect{
		HP:     getInt(tbl, "hp", 0),
		Sanity: getInt(tbl, "sanity", 0),
		Add:    getStrings(tbl, "add"),
		Remove: getStrings(tbl, "remove"),
		Level:  getString(tbl, "level"),
	}
}

// containsWord reports whether keyword appears in text on word
// boundaries, ignoring case. Multi-word keywords match as a phrase.
func containsWord(text, keyword string) bool {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	kw := strings.Fields(strings.ToLower(keyword))
	if len(kw) == 0 {
		return false
	}
	for i := 0; i+len(kw) <= len(fields); i++ {
		match := true
		for j, w := range kw {
			if fields[i+j] != w {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
