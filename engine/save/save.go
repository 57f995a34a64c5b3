// Package save implements JSON serialization of a play transcript: the
// message log plus the last authoritative snapshot.
package save

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nathoo/backroom/types"
)

// FormatVersion is written into every transcript.
const FormatVersion = 1

// ErrEmptySession is returned when a transcript carries no session id.
var ErrEmptySession = errors.New("transcript has no session id")

// SaveData is the JSON-serializable transcript format.
type SaveData struct {
	Version   int              `json:"version"`
	SessionID string           `json:"session_id"`
	SavedAt   time.Time        `json:"saved_at"`
	State     *types.GameState `json:"state"`
	Messages  []types.Message  `json:"messages"`
}

// Save serializes a transcript to JSON bytes.
func Save(sessionID string, msgs []types.Message, st *types.GameState, now time.Time) ([]byte, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	data := SaveData{
		Version:   FormatVersion,
		SessionID: sessionID,
		SavedAt:   now.UTC(),
		State:     st,
		Messages:  msgs,
	}
	return json.MarshalIndent(data, "", "  ")
}

// Load deserializes JSON bytes into SaveData. Message IDs must be strictly
// increasing, as the engine requires of its log.
func Load(data []byte) (*SaveData, error) {
	var sd SaveData
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	if sd.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported transcript version %d", sd.Version)
	}
	if sd.SessionID == "" {
		return nil, ErrEmptySession
	}
	var last int64
	for i, m := range sd.Messages {
		if i > 0 && m.ID <= last {
			return nil, fmt.Errorf("message %d: id %d is not after %d", i, m.ID, last)
		}
		last = m.ID
	}
	// Ensure the message slice is never nil after load.
	if sd.Messages == nil {
		sd.Messages = []types.Message{}
	}
	return &sd, nil
}
