package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/nathoo/backroom/engine/state"
	"github.com/nathoo/backroom/types"
)

// lowVital is the percentage at which a vital is highlighted.
const lowVital = 25

func vital(label string, cur, max int) string {
	s := fmt.Sprintf("%s %d/%d", label, cur, max)
	if state.Percent(cur, max) <= lowVital {
		return styleVitalLow.Inherit(styleStatusBar).Render(s)
	}
	return s
}

// renderStatusBar produces a full-width status line showing level, clock,
// vitals, and inventory.
func (m Model) renderStatusBar() string {
	s := m.engine.State
	if s == nil {
		left := " Connecting"
		if m.engine.Loading {
			left += " " + m.spinner.View()
		}
		return styleStatusBar.Width(m.width).Render(left)
	}

	left := fmt.Sprintf(" %s | %s | %s | %s",
		s.Level,
		state.FormatClock(state.Clock(s)),
		vital("HP", s.Vitals.HP, s.Vitals.MaxHP),
		vital("SAN", s.Vitals.Sanity, s.Vitals.MaxSanity),
	)
	if m.engine.Loading {
		left += " " + m.spinner.View()
	}

	items := state.SortedInventory(s)
	right := fmt.Sprintf("Inv: %d/%d ", len(items), types.InventorySize)

	// Show inventory items if they fit, otherwise just count.
	if len(items) > 0 {
		names := make([]string, len(items))
		for i, it := range items {
			names[i] = it.Name
			if q := state.Quantity(it); q > 1 {
				names[i] = fmt.Sprintf("%s x%d", it.Name, q)
			}
		}
		candidate := "Inv: " + strings.Join(names, ", ") + " "
		if lipgloss.Width(left)+lipgloss.Width(candidate)+2 < m.width {
			right = candidate
		}
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + strings.Repeat(" ", gap) + right
	return styleStatusBar.Width(m.width).Render(bar)
}
