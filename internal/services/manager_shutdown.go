package services

import (
	"context"
)

// Shutdown stops the servers, disconnects realtime clients and closes the
// relay and the store. It returns the first server error, if any.
func (m *Manager) Shutdown(ctx context.Context) error {
	for i, srv := range m.servers {
		m.logger.Info("Stopping server", "server", m.serverNames[i])
		if err := srv.Shutdown(ctx); err != nil {
			m.logger.Error("Error shutting down server", "server", m.serverNames[i], "error", err)
		}
	}

	// Hijacked websocket connections outlive http.Server.Shutdown.
	if m.rtServer != nil {
		m.rtServer.Close()
	}

	var serveErr error
	if m.group != nil {
		done := make(chan error, 1)
		go func() {
			done <- m.group.Wait()
		}()
		select {
		case serveErr = <-done:
		case <-ctx.Done():
			m.logger.Warn("Timeout waiting for servers to stop")
		}
	}

	var errs []error
	if m.relay != nil {
		if err := m.relay.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.provider != nil {
		if err := m.provider.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if m.store != nil {
		if err := m.store.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, err := range errs {
		m.logger.Error("Error during shutdown", "error", err)
	}

	return serveErr
}
