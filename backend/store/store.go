// Package store keeps the dev backend's per-session snapshots in redis, so a
// reconnecting client can be handed its last state before it sends anything.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/nathoo/backroom/types"
)

const (
	// Key pattern: backroom:session:{id}
	keyPrefix  = "backroom:session:"
	DefaultTTL = 24 * time.Hour
)

var (
	ErrNotFound     = errors.New("store: session not found")
	ErrEmptySession = errors.New("store: session id is required")
)

// Snapshot is what the backend remembers about a session.
type Snapshot struct {
	SessionID string           `json:"session_id"`
	State     *types.GameState `json:"state"`
	Turns     int              `json:"turns"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Config holds the store's dependencies.
type Config struct {
	Client redis.Cmdable
	TTL    time.Duration
	Now    func() time.Time
}

// Validate ensures all required dependencies are provided.
func (c *Config) Validate() error {
	if c.Client == nil {
		return errors.New("store: redis client is required")
	}
	if c.TTL < 0 {
		return fmt.Errorf("store: negative ttl %s", c.TTL)
	}
	return nil
}

// Store reads and writes snapshots.
type Store struct {
	client redis.Cmdable
	ttl    time.Duration
	now    func() time.Time
}

// New creates a store from a validated config.
func New(cfg *Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Store{client: cfg.Client, ttl: ttl, now: now}, nil
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

// Get returns the snapshot for a session, or ErrNotFound.
func (s *Store) Get(ctx context.Context, sessionID string) (*Snapshot, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	raw, err := s.client.Get(ctx, key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &snap, nil
}

// Put records the state a session ended a turn on and refreshes its TTL.
// The turn counter carries over from the previous snapshot.
func (s *Store) Put(ctx context.Context, sessionID string, st *types.GameState) (*Snapshot, error) {
	if sessionID == "" {
		return nil, ErrEmptySession
	}
	snap := &Snapshot{SessionID: sessionID, State: st, UpdatedAt: s.now().UTC()}
	prev, err := s.Get(ctx, sessionID)
	switch {
	case err == nil:
		snap.Turns = prev.Turns + 1
	case errors.Is(err, ErrNotFound):
		snap.Turns = 1
	default:
		return nil, err
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode session %s: %w", sessionID, err)
	}
	if err := s.client.Set(ctx, key(sessionID), raw, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("store session %s: %w", sessionID, err)
	}
	return snap, nil
}

// Delete forgets a session. Deleting an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	if err := s.client.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Dial connects to redis at addr. An empty addr starts an in-process
// miniredis instead, which lives until the returned close func is called.
func Dial(addr string) (*redis.Client, func() error, error) {
	var mr *miniredis.Miniredis
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start in-process redis: %w", err)
		}
		addr = mr.Addr()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	closer := func() error {
		err := client.Close()
		if mr != nil {
			mr.Close()
		}
		return err
	}
	return client, closer, nil
}
