package parser

import (
	"testing"

	"github.com/nathoo/backroom/types"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  types.Intent
	}{
		// Empty / whitespace
		{
			name:  "empty string",
			input: "",
			want:  types.Intent{},
		},
		{
			name:  "whitespace only",
			input: "   ",
			want:  types.Intent{},
		},

		// Free text
		{
			name:  "free text keeps casing",
			input: "  I walk toward the Hum  ",
			want:  types.Intent{Verb: "say", Object: "I walk toward the Hum"},
		},
		{
			name:  "bare verb is free text",
			input: "drop",
			want:  types.Intent{Verb: "say", Object: "drop"},
		},
		{
			name:  "multi-digit number is not an option when mixed",
			input: "12 doors",
			want:  types.Intent{Verb: "say", Object: "12 doors"},
		},

		// Confirm / choose
		{
			name:  "roll confirms",
			input: "roll",
			want:  types.Intent{Verb: "confirm"},
		},
		{
			name:  "r confirms",
			input: "R",
			want:  types.Intent{Verb: "confirm"},
		},
		{
			name:  "number chooses",
			input: "2",
			want:  types.Intent{Verb: "choose", Object: "2"},
		},
		{
			name:  "zero is free text",
			input: "0",
			want:  types.Intent{Verb: "say", Object: "0"},
		},

		// Use
		{
			name:  "use item",
			input: "use almond water",
			want:  types.Intent{Verb: "use", Object: "almond water"},
		},
		{
			name:  "drink → use, strip article",
			input: "drink the Almond Water",
			want:  types.Intent{Verb: "use", Object: "almond water"},
		},
		{
			name:  "eat → use",
			input: "eat a biscuit",
			want:  types.Intent{Verb: "use", Object: "biscuit"},
		},

		// Drop
		{
			name:  "drop defaults to one",
			input: "drop machete",
			want:  types.Intent{Verb: "drop", Object: "machete", Mode: "one"},
		},
		{
			name:  "drop all",
			input: "drop all almond water",
			want:  types.Intent{Verb: "drop", Object: "almond water", Mode: "all"},
		},
		{
			name:  "drop half of",
			input: "discard half of my biscuits",
			want:  types.Intent{Verb: "drop", Object: "biscuits", Mode: "half"},
		},
		{
			name:  "trailing mode",
			input: "drop water all",
			want:  types.Intent{Verb: "drop", Object: "water", Mode: "all"},
		},
		{
			name:  "item named like a mode",
			input: "drop all",
			want:  types.Intent{Verb: "drop", Object: "all", Mode: "one"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.input)
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}
