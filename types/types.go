// Package types defines the shared data structures for the backroom client.
// This package contains only type definitions: no logic, no methods.
package types

import "encoding/json"

// ChunkType is the discriminator carried in every streamed chunk.
type ChunkType string

const (
	ChunkInit        ChunkType = "init"
	ChunkMessage     ChunkType = "message"
	ChunkDiceRoll    ChunkType = "dice_roll"
	ChunkState       ChunkType = "state"
	ChunkSuggestions ChunkType = "suggestions"
	ChunkLogicEvent  ChunkType = "logic_event"
	ChunkSettlement  ChunkType = "settlement"
	ChunkInitContext ChunkType = "init_context"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderDM     Sender = "dm"
	SenderPlayer Sender = "player"
	SenderSystem Sender = "system"
	SenderInit   Sender = "init"
)

// Chunk is one discrete unit of the backend's streamed response.
// Which optional fields are meaningful depends on Type.
type Chunk struct {
	Type ChunkType `json:"type"`

	// init, message
	Text   string `json:"text,omitempty"`
	Sender Sender `json:"sender,omitempty"`

	// message (inline), suggestions
	LogicEvent *LogicEvent `json:"logicEvent,omitempty"`
	Options    []string    `json:"options,omitempty"`

	// logic_event
	Event *LogicEvent `json:"event,omitempty"`

	// dice_roll
	Dice *DiceRoll `json:"dice,omitempty"`

	// state, init_context
	State *GameState `json:"state,omitempty"`

	// settlement
	Delta *Settlement `json:"delta,omitempty"`
}

// Outcome maps a closed roll range [low, high] to descriptive content.
type Outcome struct {
	Range   [2]int `json:"range"`
	Content string `json:"content"`
}

// LogicEvent is a named judgment resolved by a die roll.
type LogicEvent struct {
	Name     string    `json:"name"`
	DieType  string    `json:"die_type"`
	Outcomes []Outcome `json:"outcomes"`
}

// DiceRoll is a die result computed by the backend.
type DiceRoll struct {
	Type   string `json:"type"`
	Result int    `json:"result"`
	Reason string `json:"reason,omitempty"`
}

// Settlement is the summarized delta of a resolved event.
type Settlement struct {
	HPChange        int      `json:"hp_change"`
	SanityChange    int      `json:"sanity_change"`
	ItemsAdded      []string `json:"items_added"`
	ItemsRemoved    []string `json:"items_removed"`
	LevelTransition string   `json:"level_transition,omitempty"`
}

// Message is one entry of the append-only session log.
type Message struct {
	ID                  int64       `json:"id"`
	Sender              Sender      `json:"sender"`
	Text                string      `json:"text"`
	LogicEvent          *LogicEvent `json:"logicEvent,omitempty"`
	LogicEventConfirmed *bool       `json:"logicEventConfirmed,omitempty"`
	LogicRollResult     *int        `json:"logicRollResult,omitempty"`
	Options             []string    `json:"options,omitempty"`
	SelectedOption      *string     `json:"selectedOption,omitempty"`
	Settlement          *Settlement `json:"settlement,omitempty"`
}

// Attributes are the six bounded attribute scores.
type Attributes struct {
	STR int `json:"STR"`
	DEX int `json:"DEX"`
	CON int `json:"CON"`
	INT int `json:"INT"`
	WIS int `json:"WIS"`
	CHA int `json:"CHA"`
}

// Vitals holds current and maximum health and sanity.
type Vitals struct {
	HP        int `json:"hp"`
	MaxHP     int `json:"maxHp"`
	Sanity    int `json:"sanity"`
	MaxSanity int `json:"maxSanity"`
}

// Item is an inventory entry. A zero Quantity means 1.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// InventorySize is the fixed slot capacity of the inventory.
const InventorySize = 36

// GameState is the authoritative snapshot computed by the backend.
// Time is minutes since midnight (0–1439).
type GameState struct {
	Level      string     `json:"level"`
	Time       int        `json:"time"`
	Attributes Attributes `json:"attributes"`
	Vitals     Vitals     `json:"vitals"`
	Inventory  []*Item    `json:"inventory"`
}

// EventType is the kind of user action sent to the backend.
type EventType string

const (
	EventInit    EventType = "init"
	EventAction  EventType = "action"
	EventMessage EventType = "message"
	EventUse     EventType = "use"
	EventDrop    EventType = "drop"
)

// GameEvent describes the action being requested.
type GameEvent struct {
	Type     EventType `json:"type"`
	ItemID   string    `json:"item_id,omitempty"`
	Quantity int       `json:"quantity,omitempty"`
}

// ChatRequest is the request body for one user action.
// CurrentState is nil only on the init event.
type ChatRequest struct {
	Event        GameEvent  `json:"event"`
	PlayerInput  string     `json:"player_input"`
	SessionID    string     `json:"session_id"`
	CurrentState *GameState `json:"current_state"`
}

// FrameKind tags a WebSocket frame.
type FrameKind string

const (
	FrameChunk FrameKind = "chunk"
	FrameDone  FrameKind = "done"
	FrameError FrameKind = "error"
)

// Frame is one WebSocket message. A response is any number of chunk frames
// closed by a done or error frame. Chunk frames may also arrive unprompted
// (the context snapshot sent on connect).
type Frame struct {
	Kind  FrameKind       `json:"kind"`
	Chunk json.RawMessage `json:"chunk,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Intent is the parsed representation of a line of player input.
type Intent struct {
	Verb   string // "say", "use", "drop", "choose", "confirm"
	Object string // free text, item name, or option number
	Mode   string // drop mode: "one", "half", "all"
}
