// Package effects implements the dev backend's state mutation. Every
// operation works on a copy of the snapshot and reports what changed as a
// Settlement, so the caller can stream both.
package effects

import (
	"github.com/nathoo/backroom/backend/scenario"
	"github.com/nathoo/backroom/engine/state"
	"github.com/nathoo/backroom/types"
)

// Result is the outcome of applying effects: the new snapshot, the summary
// delta, and any item that could not be stored.
type Result struct {
	State      *types.GameState
	Settlement types.Settlement
	Lost       []string // names of items that found no free slot
}

// Changed reports whether the settlement carries anything worth showing.
func (r Result) Changed() bool {
	s := r.Settlement
	return s.HPChange != 0 || s.SanityChange != 0 || len(s.ItemsAdded) > 0 ||
		len(s.ItemsRemoved) > 0 || s.LevelTransition != ""
}

// Clone deep-copies a snapshot. The inventory is padded or cut to
// InventorySize slots.
func Clone(st *types.GameState) *types.GameState {
	if st == nil {
		return nil
	}
	out := *st
	out.Inventory = make([]*types.Item, types.InventorySize)
	for i, it := range st.Inventory {
		if i >= types.InventorySize {
			break
		}
		if it != nil {
			cp := *it
			out.Inventory[i] = &cp
		}
	}
	return &out
}

// Apply applies one effect to a copy of st.
func Apply(sc *scenario.Scenario, st *types.GameState, eff scenario.Effect) Result {
	next := Clone(st)
	res := Result{State: next}

	res.Settlement.HPChange = adjust(&next.Vitals.HP, eff.HP, next.Vitals.MaxHP)
	res.Settlement.SanityChange = adjust(&next.Vitals.Sanity, eff.Sanity, next.Vitals.MaxSanity)

	for _, id := range eff.Add {
		it, ok := sc.NewItem(id)
		if !ok {
			continue
		}
		if addItem(next, it) {
			res.Settlement.ItemsAdded = append(res.Settlement.ItemsAdded, it.Name)
		} else {
			res.Lost = append(res.Lost, it.Name)
		}
	}
	for _, id := range eff.Remove {
		if name, ok := removeItem(next, id, 1); ok {
			res.Settlement.ItemsRemoved = append(res.Settlement.ItemsRemoved, name)
		}
	}

	if eff.Level != "" && eff.Level != next.Level {
		next.Level = eff.Level
		res.Settlement.LevelTransition = eff.Level
	}
	return res
}

// Use consumes one unit of the item (unless it is reusable) and applies
// its use effect. ok is false when the item is not carried.
func Use(sc *scenario.Scenario, st *types.GameState, itemID string) (Result, bool) {
	it, _ := state.FindItem(st, itemID)
	if it == nil {
		return Result{}, false
	}
	def, known := sc.Items[itemID]

	res := Apply(sc, st, def.Use)
	if !known || !def.Keep {
		if name, ok := removeItem(res.State, itemID, 1); ok {
			res.Settlement.ItemsRemoved = append(res.Settlement.ItemsRemoved, name)
		}
	}
	return res, true
}

// Drop removes qty units of the item; qty below 1 means one unit.
func Drop(st *types.GameState, itemID string, qty int) (Result, bool) {
	it, _ := state.FindItem(st, itemID)
	if it == nil {
		return Result{}, false
	}
	if qty < 1 {
		qty = 1
	}
	next := Clone(st)
	res := Result{State: next}
	name, _ := removeItem(next, itemID, qty)
	res.Settlement.ItemsRemoved = []string{name}
	return res, true
}

// Advance moves the clock forward by minutes, wrapping at midnight.
func Advance(st *types.GameState, minutes int) {
	st.Time = state.NormalizeClock(state.Clock(st) + minutes)
}

// adjust adds delta to *v clamped to [0, max] and returns the applied change.
func adjust(v *int, delta, max int) int {
	if delta == 0 {
		return 0
	}
	before := *v
	after := before + delta
	if after < 0 {
		after = 0
	}
	if max > 0 && after > max {
		after = max
	}
	*v = after
	return after - before
}

// addItem stacks onto a slot holding the same id, else takes the first
// empty slot.
func addItem(st *types.GameState, it *types.Item) bool {
	if existing, _ := state.FindItem(st, it.ID); existing != nil {
		existing.Quantity = state.Quantity(existing) + state.Quantity(it)
		return true
	}
	for i, slot := range st.Inventory {
		if slot == nil {
			st.Inventory[i] = it
			return true
		}
	}
	return false
}

// removeItem takes up to qty units and frees the slot when none remain.
func removeItem(st *types.GameState, id string, qty int) (string, bool) {
	it, slot := state.FindItem(st, id)
	if it == nil {
		return "", false
	}
	have := state.Quantity(it)
	if qty >= have {
		st.Inventory[slot] = nil
	} else {
		it.Quantity = have - qty
	}
	return it.Name, true
}
