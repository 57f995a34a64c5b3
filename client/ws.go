package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/nathoo/backroom/engine/decode"
	"github.com/nathoo/backroom/types"
)

// ErrBackend wraps an error frame sent by the backend.
var ErrBackend = errors.New("backend error")

// WSTransport keeps one WebSocket open and exchanges Frames over it.
type WSTransport struct {
	URL string

	mu   sync.Mutex
	conn *websocket.Conn
	log  *zap.Logger
}

// NewWSTransport derives the ws:// URL from an http(s) base URL.
func NewWSTransport(baseURL, sessionID string, log *zap.Logger) *WSTransport {
	if log == nil {
		log = zap.NewNop()
	}
	u := baseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	u += WSPath
	if sessionID != "" {
		u += "?session=" + url.QueryEscape(sessionID)
	}
	return &WSTransport{URL: u, log: log}
}

func (t *WSTransport) dial(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn != nil {
		return t.conn, nil
	}
	conn, _, err := websocket.Dial(ctx, t.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", t.URL, err)
	}
	conn.SetReadLimit(1 << 20)
	t.conn = conn
	t.log.Debug("websocket connected", zap.String("url", t.URL))
	return conn, nil
}

// drop forgets a broken connection so the next Send redials.
func (t *WSTransport) drop(conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == conn {
		t.conn = nil
	}
	conn.CloseNow()
}

// Send implements Transport. Chunk frames already buffered from the
// connection handshake are emitted ahead of the response.
func (t *WSTransport) Send(ctx context.Context, req types.ChatRequest, emit func(types.Chunk)) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		t.drop(conn)
		return fmt.Errorf("write request: %w", err)
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.drop(conn)
			return fmt.Errorf("read frame: %w", err)
		}
		var f types.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.log.Warn("skipping undecodable frame", zap.String("frame", string(data)), zap.Error(err))
			continue
		}
		switch f.Kind {
		case types.FrameChunk:
			c, err := decode.Unmarshal(f.Chunk)
			if err != nil {
				t.log.Warn("skipping undecodable chunk", zap.String("chunk", string(f.Chunk)), zap.Error(err))
				continue
			}
			emit(c)
		case types.FrameDone:
			return nil
		case types.FrameError:
			return fmt.Errorf("%w: %s", ErrBackend, f.Error)
		default:
			t.log.Warn("skipping unknown frame", zap.String("kind", string(f.Kind)))
		}
	}
}

// Close implements Transport.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close(websocket.StatusNormalClosure, "bye")
	t.conn = nil
	return err
}
