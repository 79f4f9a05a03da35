package services

import (
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/syntrixbase/storenotify/internal/config"
	"github.com/syntrixbase/storenotify/internal/core/pubsub"
	"github.com/syntrixbase/storenotify/internal/realtime"
	"github.com/syntrixbase/storenotify/internal/relay"
	"github.com/syntrixbase/storenotify/internal/store"
)

type Options struct {
	// ListenHost overrides the gateway host from the configuration.
	ListenHost string
}

type Manager struct {
	cfg         *config.Config
	opts        Options
	logger      *slog.Logger
	servers     []*http.Server
	serverNames []string
	store       *store.Context
	provider    pubsub.Provider
	relay       *relay.Relay
	consumer    pubsub.Consumer
	rtServer    *realtime.Server
	group       *errgroup.Group
	done        <-chan struct{}
}

func NewManager(cfg *config.Config, opts Options) *Manager {
	return &Manager{
		cfg:    cfg,
		opts:   opts,
		logger: slog.Default().With("component", "services"),
	}
}

// Store returns the store context, or nil before Init.
func (m *Manager) Store() *store.Context {
	return m.store
}
