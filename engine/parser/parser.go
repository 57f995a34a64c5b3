// Package parser converts a line of player input into an Intent.
// Intentionally dumb: a handful of item verbs and confirmation words are
// recognized, everything else is free text for the narrator.
package parser

import (
	"strconv"
	"strings"

	"github.com/nathoo/backroom/types"
)

// Verbs produced by Parse.
const (
	VerbSay     = "say"
	VerbUse     = "use"
	VerbDrop    = "drop"
	VerbChoose  = "choose"
	VerbConfirm = "confirm"
)

var verbAliases = map[string]string{
	// Use
	"use":     VerbUse,
	"eat":     VerbUse,
	"drink":   VerbUse,
	"consume": VerbUse,
	"apply":   VerbUse,
	"equip":   VerbUse,
	"read":    VerbUse,

	// Drop
	"drop":    VerbDrop,
	"discard": VerbDrop,
	"toss":    VerbDrop,
}

var confirmWords = map[string]bool{
	"confirm": true,
	"roll":    true,
	"r":       true,
}

var dropModes = map[string]string{
	"one":   "one",
	"1":     "one",
	"half":  "half",
	"all":   "all",
	"every": "all",
}

var articles = map[string]bool{
	"the": true, "a": true, "an": true, "my": true, "some": true,
}

// Parse converts a raw input string into an Intent. Free text keeps its
// original casing; item names are lowercased.
func Parse(input string) types.Intent {
	input = strings.TrimSpace(input)
	if input == "" {
		return types.Intent{}
	}

	words := strings.Fields(strings.ToLower(input))

	if len(words) == 1 {
		if confirmWords[words[0]] {
			return types.Intent{Verb: VerbConfirm}
		}
		if n, err := strconv.Atoi(words[0]); err == nil && n > 0 {
			return types.Intent{Verb: VerbChoose, Object: words[0]}
		}
	}

	verb, ok := verbAliases[words[0]]
	if !ok || len(words) == 1 {
		return types.Intent{Verb: VerbSay, Object: input}
	}

	rest := words[1:]
	if verb == VerbUse {
		return types.Intent{Verb: VerbUse, Object: joinObject(rest)}
	}

	mode := "one"
	// Leading mode: "drop all water", "drop half of the biscuits".
	if m, ok := dropModes[rest[0]]; ok && len(rest) > 1 {
		mode = m
		rest = rest[1:]
		if rest[0] == "of" && len(rest) > 1 {
			rest = rest[1:]
		}
	} else if m, ok := dropModes[rest[len(rest)-1]]; ok && len(rest) > 1 {
		// Trailing mode: "drop water all".
		mode = m
		rest = rest[:len(rest)-1]
	}
	return types.Intent{Verb: VerbDrop, Object: joinObject(rest), Mode: mode}
}

// joinObject strips articles and joins the remaining words.
func joinObject(words []string) string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if !articles[w] {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}
