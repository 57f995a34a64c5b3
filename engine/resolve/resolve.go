// Package resolve maps item names from parsed intents to inventory items.
package resolve

import (
	"fmt"
	"strings"

	"github.com/nathoo/backroom/engine/state"
	"github.com/nathoo/backroom/types"
)

// AmbiguityError indicates multiple items matched a name.
type AmbiguityError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	names := strings.Join(e.Candidates, ", ")
	return fmt.Sprintf("which %s? (%s)", e.Name, names)
}

// NotFoundError indicates no item matched a name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("you aren't carrying %q", e.Name)
}

// Item resolves a name against the occupied inventory slots.
// An exact ID or full-name match wins outright; otherwise the query
// must match one whole word of exactly one item's name.
func Item(s *types.GameState, name string) (*types.Item, error) {
	query := strings.ToLower(strings.TrimSpace(name))
	if query == "" {
		return nil, &NotFoundError{Name: name}
	}
	items := state.Items(s)

	for _, it := range items {
		if strings.ToLower(it.ID) == query || strings.ToLower(it.Name) == query {
			return it, nil
		}
	}

	var matches []*types.Item
	for _, it := range items {
		if matchesWords(it.Name, query) {
			matches = append(matches, it)
		}
	}

	switch len(matches) {
	case 0:
		return nil, &NotFoundError{Name: name}
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = m.Name
		}
		return nil, &AmbiguityError{Name: name, Candidates: names}
	}
}

// matchesWords reports whether every word of the query appears as a whole
// word in the item name. "water" matches "Almond Water"; "aid kit"
// matches "First Aid Kit".
func matchesWords(itemName, query string) bool {
	nameWords := strings.Fields(strings.ToLower(itemName))
	for _, q := range strings.Fields(query) {
		found := false
		for _, w := range nameWords {
			if w == q || strings.TrimSuffix(q, "s") == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
