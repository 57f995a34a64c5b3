// Package scenario loads the dev backend's Lua content into Go structs.
// The Lua VM is discarded after loading; nothing runs Lua per request.
package scenario

import (
	"slices"

	"github.com/nathoo/backroom/types"
)

// Effect is a change applied to the game state when a trigger fires, an
// outcome lands, or an item is used.
type Effect struct {
	HP     int
	Sanity int
	Add    []string // item ids gained, one unit each
	Remove []string // item ids lost, one unit each
	Level  string   // level transition target
}

// Empty reports whether the effect changes nothing.
func (e Effect) Empty() bool {
	return e.HP == 0 && e.Sanity == 0 && len(e.Add) == 0 && len(e.Remove) == 0 && e.Level == ""
}

// Outcome is one closed roll band of a check.
type Outcome struct {
	Low, High int
	Content   string
	Effect    Effect
}

// Check is a judgment resolved by a die roll.
type Check struct {
	Name     string
	DieType  string
	Outcomes []Outcome
}

// LogicEvent converts the check to its wire form.
func (c *Check) LogicEvent() *types.LogicEvent {
	ev := &types.LogicEvent{Name: c.Name, DieType: c.DieType}
	for _, o := range c.Outcomes {
		ev.Outcomes = append(ev.Outcomes, types.Outcome{Range: [2]int{o.Low, o.High}, Content: o.Content})
	}
	return ev
}

// Resolve returns the outcome whose band contains roll.
func (c *Check) Resolve(roll int) (Outcome, bool) {
	for _, o := range c.Outcomes {
		if roll >= o.Low && roll <= o.High {
			return o, true
		}
	}
	return Outcome{}, false
}

// ItemDef is a catalog entry. Start is the quantity carried at the
// beginning of a run; zero means the item is only gained later.
type ItemDef struct {
	Item    types.Item
	Start   int
	UseText string
	Use     Effect
	// Keep marks reusable items that are not consumed by use.
	Keep bool
}

// Trigger matches player text by keyword and narrates a response.
type Trigger struct {
	ID       string
	Keywords []string
	Text     string
	Check    *Check
	Effect   Effect
	Options  []string
	Minutes  int
	Order    int
}

// Fallback answers input no trigger matched. Text may contain one %s for
// the player's words.
type Fallback struct {
	Text    string
	Options []string
	Minutes int
}

// Scenario is the compiled, immutable content of one run.
type Scenario struct {
	Title      string
	Level      string
	Time       int
	Attributes types.Attributes
	Vitals     types.Vitals
	Intro      []string
	Options    []string
	Items      map[string]ItemDef
	ItemOrder  []string
	Triggers   []Trigger
	Fallback   Fallback

	// Warnings are non-fatal findings from validation.
	Warnings []string
}

// InitialState builds the starting snapshot: carried items fill slots in
// declaration order, the rest stay empty.
func (s *Scenario) InitialState() *types.GameState {
	inv := make([]*types.Item, types.InventorySize)
	slot := 0
	for _, id := range s.ItemOrder {
		def := s.Items[id]
		if def.Start == 0 || slot >= len(inv) {
			continue
		}
		it := def.Item
		it.Quantity = def.Start
		inv[slot] = &it
		slot++
	}
	return &types.GameState{
		Level:      s.Level,
		Time:       s.Time,
		Attributes: s.Attributes,
		Vitals:     s.Vitals,
		Inventory:  inv,
	}
}

// NewItem returns a fresh one-unit copy of a catalog item.
func (s *Scenario) NewItem(id string) (*types.Item, bool) {
	def, ok := s.Items[id]
	if !ok {
		return nil, false
	}
	it := def.Item
	it.Quantity = 1
	return &it, true
}

// Match returns the first trigger, in source order, with a keyword
// contained in the lowercased input.
func (s *Scenario) Match(input string) (*Trigger, bool) {
	for i := range s.Triggers {
		t := &s.Triggers[i]
		if slices.ContainsFunc(t.Keywords, func(k string) bool { return containsWord(input, k) }) {
			return t, true
		}
	}
	return nil, false
}
