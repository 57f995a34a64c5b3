// Package queue holds chunks that have arrived but have not been applied yet.
package queue

import "github.com/nathoo/backroom/types"

// Queue is an ordered buffer of pending chunks. Entries are pointers so that
// a later patch chunk can amend a queued message in place.
type Queue struct {
	items []*types.Chunk
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Len returns the number of pending chunks.
func (q *Queue) Len() int {
	return len(q.items)
}

// Push appends a chunk at the tail.
func (q *Queue) Push(c types.Chunk) {
	q.items = append(q.items, &c)
}

// Peek returns the chunk at index i without removing it.
func (q *Queue) Peek(i int) (*types.Chunk, bool) {
	if i < 0 || i >= len(q.items) {
		return nil, false
	}
	return q.items[i], true
}

// IndexOf returns the index of the first chunk of the given type, or -1.
func (q *Queue) IndexOf(t types.ChunkType) int {
	for i, c := range q.items {
		if c.Type == t {
			return i
		}
	}
	return -1
}

// RemoveAt removes and returns the chunk at index i, preserving the
// relative order of everything else.
func (q *Queue) RemoveAt(i int) (types.Chunk, bool) {
	if i < 0 || i >= len(q.items) {
		return types.Chunk{}, false
	}
	c := q.items[i]
	copy(q.items[i:], q.items[i+1:])
	q.items[len(q.items)-1] = nil
	q.items = q.items[:len(q.items)-1]
	return *c, true
}

// Patch merges a suggestions or logic_event chunk into the newest queued
// message chunk. It reports false when no message is queued, in which case
// the caller must handle the patch against rendered state.
func (q *Queue) Patch(c types.Chunk) bool {
	if c.Type != types.ChunkLogicEvent && c.Type != types.ChunkSuggestions {
		return false
	}
	for i := len(q.items) - 1; i >= 0; i-- {
		target := q.items[i]
		if target.Type != types.ChunkMessage {
			continue
		}
		if c.Type == types.ChunkLogicEvent {
			target.LogicEvent = c.Event
		} else {
			target.Options = c.Options
		}
		return true
	}
	return false
}

// Types returns the chunk types in queue order.
func (q *Queue) Types() []types.ChunkType {
	out := make([]types.ChunkType, len(q.items))
	for i, c := range q.items {
		out[i] = c.Type
	}
	return out
}
