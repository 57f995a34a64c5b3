package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/nathoo/backroom/engine/decode"
	"github.com/nathoo/backroom/types"
)

// Stream formats served over HTTP.
const (
	NDJSON = decode.NDJSON
	SSE    = decode.SSE
)

// Endpoint paths on the backend.
const (
	ChatPath = "/api/chat"
	SSEPath  = "/api/chat/sse"
	WSPath   = "/ws"
)

// maxErrorBody bounds how much of a failed response is kept for StatusError.
const maxErrorBody = 512

// HTTPTransport POSTs each request and decodes the streamed body.
type HTTPTransport struct {
	BaseURL string
	Framing decode.Framing
	HTTP    *http.Client
	log     *zap.Logger
}

// NewHTTPTransport returns a transport for baseURL. Streams have no client
// timeout; cancel the context instead.
func NewHTTPTransport(baseURL string, framing decode.Framing, log *zap.Logger) *HTTPTransport {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPTransport{
		BaseURL: baseURL,
		Framing: framing,
		HTTP:    &http.Client{},
		log:     log,
	}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req types.ChatRequest, emit func(types.Chunk)) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	path, accept := ChatPath, "application/x-ndjson"
	if t.Framing == decode.SSE {
		path, accept = SSEPath, "text/event-stream"
	}

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", accept)

	resp, err := t.HTTP.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(msg))}
	}

	return decode.New(t.Framing, t.log).Stream(ctx, resp.Body, emit)
}

// Close implements Transport.
func (t *HTTPTransport) Close() error {
	t.HTTP.CloseIdleConnections()
	return nil
}
