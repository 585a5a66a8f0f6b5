package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Server relays a Hub's events as JSON frames over a local, opt-in
// WebSocket endpoint: each connection subscribes to the Hub and its handler
// writes every event to the socket until the write fails or the
// subscription ends. A headless caller never starts this; it subscribes to
// the Hub directly.
type Server struct {
	hub        *Hub
	addr       string
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer builds a Server relaying hub's events on addr (e.g. ":8089").
func NewServer(hub *Hub, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{hub: hub, addr: addr, logger: logger}
}

//nolint:gochecknoglobals
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// ListenAndServe starts the HTTP+WebSocket listener and blocks until it
// stops; after Shutdown it returns http.ErrServerClosed.
func (s *Server) ListenAndServe() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("event relay starting", "addr", s.addr)

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	defer conn.Close()

	ch, unsubscribe := s.hub.Subscribe()
	defer unsubscribe()

	for ev := range ch {
		data, err := json.Marshal(ev)
		if err != nil {
			s.logger.Error("failed to marshal event", "error", err)
			continue
		}

		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}

// Addr returns the configured listen address, for tests and logging.
func (s *Server) Addr() string {
	return s.addr
}
