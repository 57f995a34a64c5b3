// Package tui provides a Bubble Tea terminal UI for the backroom client.
package tui

import (
	"slices"
	"strings"
)

// History recalls submitted input lines with Up/Down. A line entered again
// moves to the newest position instead of being stored twice, and the line
// being edited when recall starts comes back after the newest entry.
type History struct {
	lines  []string
	limit  int
	cursor int    // index into lines while recalling, -1 otherwise
	draft  string // input on screen when recall started
}

// NewHistory keeps at most limit lines.
func NewHistory(limit int) *History {
	return &History{limit: limit, cursor: -1}
}

// Record stores a submitted line. Blank lines are ignored.
func (h *History) Record(line string) {
	line = strings.TrimSpace(line)
	h.cursor = -1
	if line == "" {
		return
	}
	h.lines = slices.DeleteFunc(h.lines, func(l string) bool { return l == line })
	h.lines = append(h.lines, line)
	if over := len(h.lines) - h.limit; over > 0 {
		h.lines = slices.Delete(h.lines, 0, over)
	}
}

// Older steps back from the input currently on screen. It reports false
// when there is nothing to recall.
func (h *History) Older(current string) (string, bool) {
	if len(h.lines) == 0 {
		return "", false
	}
	switch {
	case h.cursor == -1:
		h.draft = current
		h.cursor = len(h.lines) - 1
	case h.cursor > 0:
		h.cursor--
	}
	return h.lines[h.cursor], true
}

// Newer steps forward. Past the newest line it returns the saved draft and
// ends recall. It reports false when recall is not active.
func (h *History) Newer() (string, bool) {
	if h.cursor == -1 {
		return "", false
	}
	h.cursor++
	if h.cursor >= len(h.lines) {
		h.cursor = -1
		return h.draft, true
	}
	return h.lines[h.cursor], true
}

// Len returns the number of stored lines.
func (h *History) Len() int {
	return len(h.lines)
}
