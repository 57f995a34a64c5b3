package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nathoo/backroom/types"
)

// chunkMsg carries one streamed chunk into the Update loop.
type chunkMsg struct {
	chunk types.Chunk
}

// streamDoneMsg ends a request; err is nil on success.
type streamDoneMsg struct {
	err error
}

// send starts a request in the background. Chunks arrive through m.stream
// one at a time, so the engine only ever runs on the Update goroutine.
func (m *Model) send(ev types.GameEvent, input string, hidden bool) tea.Cmd {
	if m.engine.Loading {
		m.addNote(true, "Still waiting for the last reply.")
		return nil
	}
	req, ok := m.engine.StartRequest(ev, input, hidden)
	if !ok {
		m.addNote(true, "The game has not started yet.")
		return nil
	}
	m.refreshViewport()

	ch := make(chan tea.Msg, 16)
	ctx, sender := m.ctx, m.sender
	go func() {
		defer close(ch)
		err := sender.Send(ctx, req, func(c types.Chunk) {
			select {
			case ch <- chunkMsg{chunk: c}:
			case <-ctx.Done():
			}
		})
		select {
		case ch <- streamDoneMsg{err: err}:
		case <-ctx.Done():
		}
	}()
	m.stream = ch
	return tea.Batch(waitForStream(ch), m.spinner.Tick)
}

// waitForStream reads the next message of a request.
func waitForStream(ch <-chan tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
