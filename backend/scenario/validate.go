package scenario

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/nathoo/backroom/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// DieSides returns the face count of a die type such as "d20".
func DieSides(dieType string) (int, bool) {
	switch strings.ToLower(dieType) {
	case "d4", "d6", "d8", "d10", "d12", "d20", "d100":
		n, _ := strconv.Atoi(dieType[1:])
		return n, true
	}
	return 0, false
}

// validate checks the compiled scenario for referential integrity and
// that every check's outcome bands tile its die exactly.
func validate(s *Scenario) error {
	ve := &ValidationError{}

	if s.Title == "" {
		ve.Errors = append(ve.Errors, "Scenario.title is required")
	}
	if s.Level == "" {
		ve.Errors = append(ve.Errors, "Scenario.level is required")
	}
	if s.Time < 0 || s.Time >= 24*60 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("Scenario.time %d is outside 0..1439", s.Time))
	}
	if s.Vitals.MaxHP <= 0 || s.Vitals.HP > s.Vitals.MaxHP {
		ve.Errors = append(ve.Errors, fmt.Sprintf("vitals hp %d/%d are invalid", s.Vitals.HP, s.Vitals.MaxHP))
	}
	if s.Vitals.MaxSanity <= 0 || s.Vitals.Sanity > s.Vitals.MaxSanity {
		ve.Errors = append(ve.Errors, fmt.Sprintf("vitals sanity %d/%d are invalid", s.Vitals.Sanity, s.Vitals.MaxSanity))
	}
	if len(s.Intro) == 0 {
		ve.Warnings = append(ve.Warnings, "Scenario.intro is empty")
	}

	carried := 0
	for _, id := range s.ItemOrder {
		def := s.Items[id]
		if def.Item.Name == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("item %q has no name", id))
		}
		if def.Start < 0 {
			ve.Errors = append(ve.Errors, fmt.Sprintf("item %q start quantity is negative", id))
		}
		if def.Start > 0 {
			carried++
		}
		validateEffect(s, fmt.Sprintf("item %q use", id), def.Use, ve)
	}
	if carried > types.InventorySize {
		ve.Errors = append(ve.Errors, fmt.Sprintf(
			"%d starting items exceed the %d inventory slots", carried, types.InventorySize))
	}

	claimed := map[string]string{}
	for _, t := range s.Triggers {
		where := fmt.Sprintf("trigger %q", t.ID)
		if len(t.Keywords) == 0 {
			ve.Errors = append(ve.Errors, where+" has no keywords")
		}
		if t.Text == "" {
			ve.Errors = append(ve.Errors, where+" has no text")
		}
		shadowed := len(t.Keywords) > 0
		for _, k := range t.Keywords {
			if prev, ok := claimed[k]; ok {
				ve.Warnings = append(ve.Warnings, fmt.Sprintf(
					"%s keyword %q is already claimed by trigger %q", where, k, prev))
				continue
			}
			claimed[k] = t.ID
			shadowed = false
		}
		if shadowed {
			ve.Warnings = append(ve.Warnings, where+" can never fire")
		}
		validateEffect(s, where, t.Effect, ve)
		if t.Check != nil {
			validateCheck(s, where, t.Check, ve)
		}
	}

	if s.Fallback.Text == "" {
		ve.Errors = append(ve.Errors, "Fallback.text is required")
	} else if strings.Count(s.Fallback.Text, "%s") > 1 {
		ve.Errors = append(ve.Errors, "Fallback.text may contain at most one %s")
	}

	s.Warnings = ve.Warnings
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateEffect(s *Scenario, where string, e Effect, ve *ValidationError) {
	for _, id := range append(append([]string{}, e.Add...), e.Remove...) {
		if _, ok := s.Items[id]; !ok {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s references undefined item %q", where, id))
		}
	}
}

// validateCheck requires the outcome bands to cover 1..sides with no gap
// and no overlap.
func validateCheck(s *Scenario, where string, c *Check, ve *ValidationError) {
	where = fmt.Sprintf("%s check %q", where, c.Name)
	if c.Name == "" {
		ve.Errors = append(ve.Errors, where+" has no name")
	}
	sides, ok := DieSides(c.DieType)
	if !ok {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s has unknown die %q", where, c.DieType))
		return
	}
	if len(c.Outcomes) == 0 {
		ve.Errors = append(ve.Errors, where+" has no outcomes")
		return
	}

	bands := make([]Outcome, len(c.Outcomes))
	copy(bands, c.Outcomes)
	sort.Slice(bands, func(i, j int) bool { return bands[i].Low < bands[j].Low })

	next := 1
	for _, b := range bands {
		if b.Low > b.High {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s band [%d,%d] is inverted", where, b.Low, b.High))
			return
		}
		switch {
		case b.Low < 1:
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s band [%d,%d] starts below 1", where, b.Low, b.High))
		case b.Low > next:
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s leaves rolls %d..%d uncovered", where, next, b.Low-1))
		case b.Low < next:
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s band [%d,%d] overlaps an earlier band", where, b.Low, b.High))
		}
		validateEffect(s, where, b.Effect, ve)
		if b.High+1 > next {
			next = b.High + 1
		}
	}
	if next <= sides {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s leaves rolls %d..%d uncovered", where, next, sides))
	}
	if next > sides+1 {
		ve.Errors = append(ve.Errors, fmt.Sprintf("%s bands exceed %s", where, c.DieType))
	}
}
