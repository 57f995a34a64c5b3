package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"github.com/nathoo/backroom/types"
)

const writeTimeout = 3 * time.Second

// serveWS serves one connection. A known ?session= gets its stored
// snapshot as an init_context chunk before anything else; after that every
// text message is a ChatRequest answered by chunk frames and a done frame.
func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Debug("websocket accept", zap.Error(err))
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	conn.SetReadLimit(maxRequestBody)

	ctx := r.Context()
	sessionID := r.URL.Query().Get("session")
	if st := s.lookup(ctx, sessionID); st != nil {
		c := types.Chunk{Type: types.ChunkInitContext, State: st}
		if err := s.writeChunk(ctx, conn, c); err != nil {
			return
		}
		s.log.Debug("sent context", zap.String("session", sessionID))
	}

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				s.log.Debug("websocket read", zap.Error(err))
			}
			return
		}

		var req types.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil || req.Event.Type == "" {
			if err == nil {
				err = fmt.Errorf("missing event type")
			}
			if s.writeFrame(ctx, conn, types.Frame{Kind: types.FrameError, Error: "bad request: " + err.Error()}) != nil {
				return
			}
			continue
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}

		chunks := s.turn(ctx, req)
		err = s.pace(ctx, chunks, func(c types.Chunk) error {
			return s.writeChunk(ctx, conn, c)
		})
		if err != nil {
			return
		}
		if s.writeFrame(ctx, conn, types.Frame{Kind: types.FrameDone}) != nil {
			return
		}
	}
}

func (s *Server) writeChunk(ctx context.Context, conn *websocket.Conn, c types.Chunk) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return s.writeFrame(ctx, conn, types.Frame{Kind: types.FrameChunk, Chunk: raw})
}

func (s *Server) writeFrame(ctx context.Context, conn *websocket.Conn, f types.Frame) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
