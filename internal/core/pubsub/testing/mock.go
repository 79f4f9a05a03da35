// Package testing provides recording pubsub fakes for tests.
package testing

import (
	"context"
	"slices"
	"sync"

	"github.com/syntrixbase/storenotify/internal/core/pubsub"
)

// PublishedMessage is one recorded publish.
type PublishedMessage struct {
	Subject string
	Data    []byte
}

// MockPublisher records every successful publish.
type MockPublisher struct {
	mu       sync.Mutex
	messages []PublishedMessage
	err      error
	closed   bool
}

var _ pubsub.Publisher = (*MockPublisher)(nil)

// Publish records the message, or fails with ctx's error or the error set by
// SetError.
func (m *MockPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, PublishedMessage{Subject: subject, Data: slices.Clone(data)})
	return nil
}

func (m *MockPublisher) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Messages returns a copy of the recorded messages.
func (m *MockPublisher) Messages() []PublishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.messages)
}

// SetError makes subsequent publishes fail with err. Nil clears it.
func (m *MockPublisher) SetError(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *MockPublisher) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// MockProvider hands out a single shared MockPublisher.
type MockProvider struct {
	mu           sync.Mutex
	pub          *MockPublisher
	publisherErr error
	opts         []pubsub.PublisherOptions
	closed       bool
}

var _ pubsub.Provider = (*MockProvider)(nil)

func NewMockProvider() *MockProvider {
	return &MockProvider{pub: &MockPublisher{}}
}

// NewPublisher records opts and returns the shared publisher.
func (p *MockProvider) NewPublisher(opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opts = append(p.opts, opts)
	if p.publisherErr != nil {
		return nil, p.publisherErr
	}
	return p.pub, nil
}

func (p *MockProvider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// Publisher returns the shared publisher.
func (p *MockProvider) Publisher() *MockPublisher {
	return p.pub
}

// SetPublisherError makes NewPublisher fail with err.
func (p *MockProvider) SetPublisherError(err error) {
	p.mu.Lock()
	p.publisherErr = err
	p.mu.Unlock()
}

// PublisherOpts returns the options of every NewPublisher call.
func (p *MockProvider) PublisherOpts() []pubsub.PublisherOptions {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.opts)
}

func (p *MockProvider) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
