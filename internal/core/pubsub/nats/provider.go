package nats

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/syntrixbase/storenotify/internal/core/pubsub"
)

// natsConnectFunc connects to NATS (injectable for testing)
type natsConnectFunc func(url string, opts ...nats.Option) (natsConnection, error)

// jetStreamFactory creates JetStream (injectable for testing)
type jetStreamFactory func(nc *nats.Conn) (JetStream, error)

// natsConnCaster recovers the *nats.Conn JetStream needs (injectable for testing)
type natsConnCaster func(nc natsConnection) (*nats.Conn, bool)

var defaultNatsConnect natsConnectFunc = func(url string, opts ...nats.Option) (natsConnection, error) {
	return nats.Connect(url, opts...)
}

var defaultJetStreamFactory jetStreamFactory = NewJetStream

var defaultNatsConnCaster natsConnCaster = func(nc natsConnection) (*nats.Conn, bool) {
	natsConn, ok := nc.(*nats.Conn)
	return natsConn, ok
}

// Provider implements pubsub.Provider on a NATS connection. Publishers without
// a stream name publish with core NATS; publishers with one use JetStream.
type Provider struct {
	url  string
	name string

	mu sync.Mutex
	nc natsConnection
	js JetStream

	natsConnect      natsConnectFunc  // injectable for testing
	jetStreamFactory jetStreamFactory // injectable for testing
	natsConnCaster   natsConnCaster   // injectable for testing
}

// Compile-time check that Provider implements pubsub.Provider
var _ pubsub.Provider = (*Provider)(nil)
var _ pubsub.Connectable = (*Provider)(nil)

// NewProvider creates a NATS provider for url. Call Connect before creating
// publishers.
func NewProvider(url, name string) *Provider {
	return &Provider{
		url:              url,
		name:             name,
		natsConnect:      defaultNatsConnect,
		jetStreamFactory: defaultJetStreamFactory,
		natsConnCaster:   defaultNatsConnCaster,
	}
}

// Connect establishes the NATS connection.
func (p *Provider) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var opts []nats.Option
	if p.name != "" {
		opts = append(opts, nats.Name(p.name))
	}

	nc, err := p.natsConnect(p.url, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", p.url, err)
	}

	p.mu.Lock()
	p.nc = nc
	p.mu.Unlock()

	slog.Info("Connected to NATS", "url", p.url)
	return nil
}

// NewPublisher creates a Publisher on the connection.
func (p *Provider) NewPublisher(opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.nc == nil {
		return nil, fmt.Errorf("NATS not connected, call Connect first")
	}
	if opts.StreamName == "" {
		return &corePublisher{nc: p.nc, opts: opts}, nil
	}

	if p.js == nil {
		natsConn, ok := p.natsConnCaster(p.nc)
		if !ok {
			return nil, fmt.Errorf("connection does not support JetStream")
		}
		js, err := p.jetStreamFactory(natsConn)
		if err != nil {
			return nil, fmt.Errorf("failed to create JetStream: %w", err)
		}
		p.js = js
	}
	return NewStreamPublisher(p.js, opts)
}

// Close closes the NATS connection. Publishers become unusable.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.nc != nil {
		slog.Info("Closing NATS connection...")
		p.nc.Close()
		p.nc = nil
		p.js = nil
	}
	return nil
}
