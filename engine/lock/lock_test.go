package lock

import (
	"testing"

	"github.com/nathoo/backroom/types"
)

func TestPermits(t *testing.T) {
	all := []types.ChunkType{
		types.ChunkInit, types.ChunkMessage, types.ChunkDiceRoll, types.ChunkState,
		types.ChunkSuggestions, types.ChunkLogicEvent, types.ChunkSettlement,
	}

	tests := []struct {
		name      string
		animating bool
		awaiting  int64
		allowed   map[types.ChunkType]bool
	}{
		{"unlocked", false, 0, map[types.ChunkType]bool{
			types.ChunkInit: true, types.ChunkMessage: true, types.ChunkDiceRoll: true, types.ChunkState: true,
			types.ChunkSuggestions: true, types.ChunkLogicEvent: true, types.ChunkSettlement: true,
		}},
		{"animating", true, 0, map[types.ChunkType]bool{}},
		{"awaiting logic", false, 3, map[types.ChunkType]bool{types.ChunkDiceRoll: true}},
		{"animating and awaiting", true, 3, map[types.ChunkType]bool{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l Lock
			if tt.animating {
				l.SetAnimating()
			}
			if tt.awaiting != 0 {
				l.Await(tt.awaiting)
			}
			for _, ct := range all {
				if got := l.Permits(ct); got != tt.allowed[ct] {
					t.Errorf("Permits(%s) = %v, want %v", ct, got, tt.allowed[ct])
				}
			}
		})
	}
}

func TestAwaitRelease(t *testing.T) {
	var l Lock
	if _, ok := l.Awaiting(); ok {
		t.Fatal("zero lock should not await")
	}
	l.Await(9)
	if id, ok := l.Awaiting(); !ok || id != 9 {
		t.Fatalf("Awaiting() = %d, %v", id, ok)
	}
	l.Release()
	if _, ok := l.Awaiting(); ok {
		t.Error("Release should clear the gate")
	}
}

func TestAnimatingToggle(t *testing.T) {
	var l Lock
	l.SetAnimating()
	if !l.Animating() {
		t.Fatal("expected animating")
	}
	l.ClearAnimating()
	if l.Animating() {
		t.Error("expected not animating")
	}
}
