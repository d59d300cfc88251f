// Package channel serves the method channel over WebSocket for hosts that
// embed a web view.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bnema/modebridge/internal/bridge"
	"github.com/bnema/modebridge/internal/logger"
)

// Path is the HTTP path of the channel endpoint.
const Path = "/channel"

const (
	maxMessageSize = 64 * 1024
	writeWait      = 5 * time.Second
)

// Handler answers one named-method call.
type Handler interface {
	Handle(method string, args any) bridge.Response
}

// Request is one inbound call frame.
type Request struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Method    string          `json:"method"`
	Arguments any             `json:"arguments,omitempty"`
}

// Reply is one outbound frame. Exactly one of Result, Error or
// NotImplemented is set.
type Reply struct {
	ID             json.RawMessage `json:"id,omitempty"`
	Result         any             `json:"result,omitempty"`
	Error          *bridge.Error   `json:"error,omitempty"`
	NotImplemented bool            `json:"notImplemented,omitempty"`
}

// NewReply converts a dispatcher response into a frame for id.
func NewReply(id json.RawMessage, resp bridge.Response) Reply {
	return Reply{
		ID:             id,
		Result:         resp.Result,
		Error:          resp.Err,
		NotImplemented: resp.NotImplemented,
	}
}

// Server exposes a Handler at Path.
type Server struct {
	handler  Handler
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewServer creates a channel server. Only same-host origins are accepted
// unless allowAnyOrigin is set.
func NewServer(handler Handler, allowAnyOrigin bool) *Server {
	s := &Server{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	if allowAnyOrigin {
		s.upgrader.CheckOrigin = func(*http.Request) bool { return true }
	}
	return s
}

// ServeHTTP upgrades the request and serves calls until the peer closes.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debugf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	logger.Debug("channel connected", "remote", r.RemoteAddr)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debugf("channel read error: %v", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		reply := s.serve(data)
		out, err := json.Marshal(reply)
		if err != nil {
			logger.Errorf("failed to encode channel reply: %v", err)
			out, _ = json.Marshal(NewReply(reply.ID, bridge.Failure(bridge.CodeDisplayError, "failed to encode response")))
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, out); err != nil {
			logger.Debugf("channel write error: %v", err)
			return
		}
	}
}

func (s *Server) serve(data []byte) Reply {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		logger.Debugf("invalid channel request: %v", err)
		return NewReply(nil, bridge.NotImplemented())
	}
	return NewReply(req.ID, s.handler.Handle(req.Method, req.Arguments))
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle(Path, s)
	s.http = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()

	logger.Infof("WebSocket channel listening on ws://%s%s", ln.Addr(), Path)
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
