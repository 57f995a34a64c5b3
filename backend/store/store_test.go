package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathoo/backroom/types"
)

func newTestStore(t *testing.T, now time.Time) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s, err := New(&Config{Client: client, TTL: time.Hour, Now: func() time.Time { return now }})
	require.NoError(t, err)
	return s, mr
}

func TestConfigValidate(t *testing.T) {
	_, err := New(&Config{})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	_, err = New(&Config{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()}), TTL: -time.Second})
	assert.Error(t, err)
}

func TestPutGet(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s, mr := newTestStore(t, now)
	ctx := context.Background()

	_, err := s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	st := &types.GameState{Level: "Level 0", Time: 500}
	snap, err := s.Put(ctx, "a", st)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Turns)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Level 0", got.State.Level)
	assert.Equal(t, 500, got.State.Time)
	assert.True(t, now.Equal(got.UpdatedAt))

	snap, err = s.Put(ctx, "a", &types.GameState{Level: "Level 1"})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Turns)

	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"a"))
}

func TestExpiry(t *testing.T) {
	s, mr := newTestStore(t, time.Now())
	ctx := context.Background()

	_, err := s.Put(ctx, "a", &types.GameState{})
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)

	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ctx := context.Background()

	_, err := s.Put(ctx, "a", &types.GameState{})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Delete(ctx, "a"))

	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEmptySession(t *testing.T) {
	s, _ := newTestStore(t, time.Now())
	ctx := context.Background()

	_, err := s.Get(ctx, "")
	assert.ErrorIs(t, err, ErrEmptySession)
	_, err = s.Put(ctx, "", nil)
	assert.ErrorIs(t, err, ErrEmptySession)
	assert.ErrorIs(t, s.Delete(ctx, ""), ErrEmptySession)
}

func TestCorruptSnapshot(t *testing.T) {
	s, mr := newTestStore(t, time.Now())
	require.NoError(t, mr.Set(keyPrefix+"a", "{not json"))

	_, err := s.Get(context.Background(), "a")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestDialInProcess(t *testing.T) {
	client, closer, err := Dial("")
	require.NoError(t, err)
	defer func() { assert.NoError(t, closer()) }()

	s, err := New(&Config{Client: client})
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}
