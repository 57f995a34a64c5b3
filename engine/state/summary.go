package state

import (
	"fmt"
	"strings"

	"github.com/nathoo/backroom/types"
)

// SettlementSummary renders a settlement as one line, e.g.
// "HP -3, Sanity +5, gained Rusty Key, entered Level 1". An empty
// settlement renders as "No effect".
func SettlementSummary(d *types.Settlement) string {
	if d == nil {
		return "No effect"
	}
	var parts []string
	if d.HPChange != 0 {
		parts = append(parts, fmt.Sprintf("HP %+d", d.HPChange))
	}
	if d.SanityChange != 0 {
		parts = append(parts, fmt.Sprintf("Sanity %+d", d.SanityChange))
	}
	if len(d.ItemsAdded) > 0 {
		parts = append(parts, "gained "+strings.Join(d.ItemsAdded, ", "))
	}
	if len(d.ItemsRemoved) > 0 {
		parts = append(parts, "lost "+strings.Join(d.ItemsRemoved, ", "))
	}
	if d.LevelTransition != "" {
		parts = append(parts, "entered "+d.LevelTransition)
	}
	if len(parts) == 0 {
		return "No effect"
	}
	return strings.Join(parts, ", ")
}
