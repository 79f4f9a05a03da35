// Package realtime exposes store live queries over a websocket.
package realtime

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/syntrixbase/storenotify/internal/notify"
	"github.com/syntrixbase/storenotify/internal/reactive"
	"github.com/syntrixbase/storenotify/internal/store"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// QueryObserver is the part of a store the gateway needs.
type QueryObserver interface {
	ObserveQuery(q model.Query) *reactive.Observable[notify.ChangeEvent[[]*store.Object]]
}

var _ QueryObserver = (*store.Context)(nil)

// Server upgrades watch requests and runs one Client per connection.
type Server struct {
	hub      *Hub
	store    QueryObserver
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer creates a gateway serving live queries of st.
func NewServer(st QueryObserver, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		hub:    NewHub(),
		store:  st,
		cfg:    cfg,
		logger: logger.With("component", "realtime"),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// RegisterRoutes registers the watch endpoint on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET "+WatchPath, s.HandleWS)
}

// HandleWS handles websocket requests from the peer.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	client := newClient(s.hub, s.store, conn, s.cfg.SendBufferSize, s.logger)
	if !s.hub.register(client) {
		client.close()
		return
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()
}

// Hub returns the client registry.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close disconnects every client.
func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(s.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, o := range s.cfg.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	s.logger.Warn("Rejected websocket origin", "origin", origin)
	return false
}
