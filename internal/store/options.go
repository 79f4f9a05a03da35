package store

import (
	"log/slog"
	"time"

	"github.com/syntrixbase/storenotify/internal/store/backend"
)

// Option configures a Context.
type Option func(*Context)

// WithName sets the store name used in logs, metrics and save summaries.
func WithName(name string) Option {
	return func(c *Context) {
		if name != "" {
			c.name = name
		}
	}
}

// WithBackend sets the persistence backend. The default keeps objects in
// memory.
func WithBackend(b backend.Backend) Option {
	return func(c *Context) {
		if b != nil {
			c.backend = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables or disables prometheus save metrics.
func WithMetrics(enabled bool) Option {
	return func(c *Context) {
		c.metrics = enabled
	}
}

// WithFetchTimeout bounds the backend load done by a live query's fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Context) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}
