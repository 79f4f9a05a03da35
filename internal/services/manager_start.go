package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/syntrixbase/storenotify/internal/relay"
)

// Start runs the HTTP servers in the background. Done is closed once bgCtx
// is cancelled or a server fails.
func (m *Manager) Start(bgCtx context.Context) {
	g, gctx := errgroup.WithContext(bgCtx)
	m.group = g
	m.done = gctx.Done()

	for i, srv := range m.servers {
		s, name := srv, m.serverNames[i]
		g.Go(func() error {
			m.logger.Info("Server listening", "server", name, "addr", s.Addr)
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.logger.Error("Server failed", "server", name, "error", err)
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	if m.consumer != nil {
		g.Go(func() error {
			return relay.Listen(gctx, m.consumer, m.logger, func(subject string, s relay.Summary) {
				m.logger.Debug("Save relayed", "subject", subject,
					"inserted", len(s.Inserted), "updated", len(s.Updated), "deleted", len(s.Deleted))
			})
		})
	}
}

// Done returns a channel closed when the manager should shut down. It is
// nil before Start.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
