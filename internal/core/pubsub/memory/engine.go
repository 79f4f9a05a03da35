// Package memory is an in-process pubsub provider. Saves relayed through it
// reach consumers of the same process only.
package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/syntrixbase/storenotify/internal/core/pubsub"
)

var (
	// ErrEngineClosed is returned when operating on a closed engine.
	ErrEngineClosed = errors.New("engine is closed")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("publisher is closed")
)

var (
	_ pubsub.Provider         = (*Engine)(nil)
	_ pubsub.ConsumerProvider = (*Engine)(nil)
)

// Engine routes messages between publishers and consumers of one process.
// StreamName and storage options are ignored; nothing is retained for
// consumers that subscribe later.
type Engine struct {
	broker *broker
}

// New creates an engine.
func New() *Engine {
	return &Engine{broker: newBroker()}
}

// NewPublisher creates a publisher that prefixes subjects with
// opts.SubjectPrefix.
func (e *Engine) NewPublisher(opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	if e.broker.isClosed() {
		return nil, ErrEngineClosed
	}
	return &publisher{broker: e.broker, prefix: opts.SubjectPrefix, onPublish: opts.OnPublish}, nil
}

// NewConsumer creates a consumer. Zero options fall back to
// pubsub.DefaultConsumerOptions.
func (e *Engine) NewConsumer(opts pubsub.ConsumerOptions) (pubsub.Consumer, error) {
	if e.broker.isClosed() {
		return nil, ErrEngineClosed
	}
	defaults := pubsub.DefaultConsumerOptions()
	if opts.FilterSubject == "" {
		opts.FilterSubject = defaults.FilterSubject
	}
	if opts.ChannelBufSize <= 0 {
		opts.ChannelBufSize = defaults.ChannelBufSize
	}
	return &consumer{broker: e.broker, pattern: opts.FilterSubject, size: opts.ChannelBufSize}, nil
}

// Close closes every consumer channel. It is idempotent.
func (e *Engine) Close() error {
	e.broker.shutdown()
	return nil
}

// IsClosed reports whether Close was called.
func (e *Engine) IsClosed() bool {
	return e.broker.isClosed()
}

// SubscriberCount returns the number of open consumer channels.
func (e *Engine) SubscriberCount() int {
	return e.broker.count()
}

type publisher struct {
	broker    *broker
	prefix    string
	onPublish func(subject string, err error, latency time.Duration)
	closed    atomic.Bool
}

func (p *publisher) Publish(ctx context.Context, subject string, data []byte) error {
	if p.closed.Load() {
		return ErrPublisherClosed
	}
	full := pubsub.FullSubject(p.prefix, subject)
	start := time.Now()
	err := p.broker.deliver(ctx, full, data)
	if p.onPublish != nil {
		p.onPublish(full, err, time.Since(start))
	}
	return err
}

func (p *publisher) Close() error {
	p.closed.Store(true)
	return nil
}

type consumer struct {
	broker  *broker
	pattern string
	size    int
}

// Subscribe returns a channel closed once ctx is done or the engine closes.
func (c *consumer) Subscribe(ctx context.Context) (<-chan pubsub.Message, error) {
	s, remove, err := c.broker.join(c.pattern, c.size)
	if err != nil {
		return nil, err
	}
	context.AfterFunc(ctx, remove)
	return s.ch, nil
}
