package services

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syntrixbase/storenotify/internal/config"
	"github.com/syntrixbase/storenotify/internal/core/pubsub"
	memorypubsub "github.com/syntrixbase/storenotify/internal/core/pubsub/memory"
	natspubsub "github.com/syntrixbase/storenotify/internal/core/pubsub/nats"
	"github.com/syntrixbase/storenotify/internal/realtime"
	"github.com/syntrixbase/storenotify/internal/relay"
	"github.com/syntrixbase/storenotify/internal/store"
	"github.com/syntrixbase/storenotify/internal/store/backend"
	"github.com/syntrixbase/storenotify/internal/store/mongo"
)

const natsClientName = "storenotify"

var backendFactory = func(ctx context.Context, cfg config.StoreConfig) (backend.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return backend.NewMemory(), nil
	case config.BackendMongo:
		return mongo.NewBackend(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

var providerFactory = func(ctx context.Context, cfg relay.Config) (pubsub.Provider, error) {
	switch cfg.Provider {
	case relay.ProviderMemory:
		return memorypubsub.New(), nil
	case relay.ProviderNATS:
		return natspubsub.NewProvider(cfg.URL, natsClientName), nil
	default:
		return nil, fmt.Errorf("unsupported relay provider: %s", cfg.Provider)
	}
}

func (m *Manager) Init(ctx context.Context) error {
	if err := m.initStore(ctx); err != nil {
		return err
	}
	if err := m.initRelay(ctx); err != nil {
		_ = m.store.Close(ctx)
		return err
	}
	m.initGateway()
	return nil
}

func (m *Manager) initStore(ctx context.Context) error {
	cfg := m.cfg.Store
	b, err := backendFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create store backend: %w", err)
	}
	st, err := store.New(
		store.WithName(cfg.Name),
		store.WithBackend(b),
		store.WithFetchTimeout(cfg.FetchTimeout),
		store.WithMetrics(cfg.Metrics),
		store.WithLogger(m.logger),
	)
	if err != nil {
		_ = b.Close(ctx)
		return fmt.Errorf("failed to create store: %w", err)
	}
	m.store = st
	m.logger.Info("Store initialized", "store", cfg.Name, "backend", cfg.Backend)
	return nil
}

// initRelay connects the save relay when a provider is configured.
func (m *Manager) initRelay(ctx context.Context) error {
	cfg := m.cfg.Relay
	if !cfg.Enabled() {
		return nil
	}
	p, err := providerFactory(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create relay provider: %w", err)
	}
	if c, ok := p.(pubsub.Connectable); ok {
		if err := c.Connect(ctx); err != nil {
			_ = p.Close()
			return fmt.Errorf("failed to connect relay provider: %w", err)
		}
	}
	r, err := relay.New(p, cfg.Provider, cfg, m.logger)
	if err != nil {
		_ = p.Close()
		return fmt.Errorf("failed to create relay: %w", err)
	}
	if cp, ok := p.(pubsub.ConsumerProvider); ok {
		c, err := cp.NewConsumer(pubsub.ConsumerOptions{FilterSubject: relay.FilterSubject(cfg.SubjectPrefix)})
		if err != nil {
			_ = r.Close()
			_ = p.Close()
			return fmt.Errorf("failed to create relay consumer: %w", err)
		}
		m.consumer = c
	}
	m.provider = p
	m.relay = r
	r.Attach(m.store)
	m.logger.Info("Relay attached", "provider", cfg.Provider, "stream", cfg.StreamName)
	return nil
}

func (m *Manager) initGateway() {
	cfg := m.cfg.Gateway
	m.rtServer = realtime.NewServer(m.store, cfg, m.logger)

	mux := http.NewServeMux()
	m.rtServer.RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if cfg.Metrics {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	addr := cfg.Addr()
	if m.opts.ListenHost != "" {
		addr = net.JoinHostPort(m.opts.ListenHost, strconv.Itoa(cfg.Port))
	}
	m.servers = append(m.servers, &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	})
	m.serverNames = append(m.serverNames, "Gateway")
}
