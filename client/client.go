// Package client sends player actions to the backend and streams the
// response chunks back. Three transports share one contract: POST with an
// NDJSON body, POST with an SSE body, or a persistent WebSocket.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nathoo/backroom/types"
)

// ErrRequestInFlight is returned when Send is called while another request
// is still streaming.
var ErrRequestInFlight = errors.New("client: a request is already in flight")

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.Code)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.Code, e.Body)
}

// Transport delivers one request and streams its response. emit is called
// for every decoded chunk, in order, on the calling goroutine.
type Transport interface {
	Send(ctx context.Context, req types.ChatRequest, emit func(types.Chunk)) error
	Close() error
}

// Client enforces a single outstanding request over a Transport.
type Client struct {
	transport Transport
	inFlight  atomic.Bool
	log       *zap.Logger
}

// New wraps a transport.
func New(t Transport, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{transport: t, log: log}
}

// Send streams one request. It fails fast with ErrRequestInFlight when a
// previous Send has not returned.
func (c *Client) Send(ctx context.Context, req types.ChatRequest, emit func(types.Chunk)) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		return ErrRequestInFlight
	}
	defer c.inFlight.Store(false)

	c.log.Debug("sending request",
		zap.String("event", string(req.Event.Type)),
		zap.String("session", req.SessionID),
	)
	n := 0
	err := c.transport.Send(ctx, req, func(ch types.Chunk) {
		n++
		emit(ch)
	})
	if err != nil {
		return fmt.Errorf("send %s: %w", req.Event.Type, err)
	}
	c.log.Debug("request complete", zap.Int("chunks", n))
	return nil
}

// InFlight reports whether a request is streaming.
func (c *Client) InFlight() bool {
	return c.inFlight.Load()
}

// Close releases the transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// Dial builds the transport named by kind ("ndjson", "sse" or "ws") for the
// backend at baseURL. The WebSocket transport connects lazily.
func Dial(kind, baseURL, sessionID string, log *zap.Logger) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	var t Transport
	switch kind {
	case "ndjson", "":
		t = NewHTTPTransport(baseURL, NDJSON, log)
	case "sse":
		t = NewHTTPTransport(baseURL, SSE, log)
	case "ws":
		t = NewWSTransport(baseURL, sessionID, log)
	default:
		return nil, fmt.Errorf("unknown transport %q", kind)
	}
	return New(t, log), nil
}
