// Package state provides read-only helpers over a GameState snapshot:
// clock formatting, item quantities, and the sorted inventory projection
// used for display. Snapshots are never mutated here.
package state

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nathoo/backroom/types"
)

// MinutesPerDay is the length of the game clock's cycle.
const MinutesPerDay = 24 * 60

// DefaultTime is the clock value shown when a snapshot carries none.
const DefaultTime = 480

// categoryOrder fixes the display order of item categories. Unknown or
// missing categories sort last.
var categoryOrder = map[string]int{
	"resource": 0,
	"weapon":   1,
	"tool":     2,
	"document": 3,
	"medical":  4,
	"special":  5,
}

// Drop modes accepted by DropQuantity.
const (
	DropOne  = "one"
	DropHalf = "half"
	DropAll  = "all"
)

// Quantity returns the item's count; a missing quantity means 1.
func Quantity(it *types.Item) int {
	if it == nil {
		return 0
	}
	if it.Quantity < 1 {
		return 1
	}
	return it.Quantity
}

// NormalizeClock wraps any minute count into [0, MinutesPerDay).
func NormalizeClock(minutes int) int {
	m := minutes % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return m
}

// FormatClock renders a minute count as HH:MM on a 24-hour clock.
func FormatClock(minutes int) string {
	m := NormalizeClock(minutes)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// Clock returns the snapshot's time, falling back to DefaultTime.
func Clock(s *types.GameState) int {
	if s == nil || s.Time == 0 {
		return DefaultTime
	}
	return NormalizeClock(s.Time)
}

// Items returns the occupied inventory slots in slot order.
func Items(s *types.GameState) []*types.Item {
	if s == nil {
		return nil
	}
	var out []*types.Item
	for _, it := range s.Inventory {
		if it != nil {
			out = append(out, it)
		}
	}
	return out
}

// FindItem returns the item with the given ID and its slot index.
func FindItem(s *types.GameState, id string) (*types.Item, int) {
	if s == nil {
		return nil, -1
	}
	for i, it := range s.Inventory {
		if it != nil && it.ID == id {
			return it, i
		}
	}
	return nil, -1
}

// SortedInventory returns the occupied slots ordered by category, then
// name. It is a display projection; slot positions in the snapshot are
// unchanged.
func SortedInventory(s *types.GameState) []*types.Item {
	items := Items(s)
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := categoryRank(items[i].Category), categoryRank(items[j].Category)
		if ci != cj {
			return ci < cj
		}
		return strings.ToLower(items[i].Name) < strings.ToLower(items[j].Name)
	})
	return items
}

func categoryRank(c string) int {
	if r, ok := categoryOrder[c]; ok {
		return r
	}
	return len(categoryOrder)
}

// DropQuantity returns how many units a drop mode removes from an item:
// one, half rounded up, or all.
func DropQuantity(it *types.Item, mode string) int {
	qty := Quantity(it)
	switch mode {
	case DropHalf:
		return (qty + 1) / 2
	case DropAll:
		return qty
	default:
		return 1
	}
}

// LevelChanged reports whether next moves the player to a different level.
func LevelChanged(prev, next *types.GameState) bool {
	return prev != nil && next != nil && prev.Level != next.Level
}

// Percent returns cur/max as an integer percentage clamped to [0, 100].
func Percent(cur, max int) int {
	if max <= 0 {
		return 0
	}
	p := cur * 100 / max
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
