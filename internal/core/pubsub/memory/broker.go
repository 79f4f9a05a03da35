package memory

import (
	"context"
	"sync"
	"time"

	"github.com/syntrixbase/storenotify/internal/core/pubsub"
)

// envelope is a delivered message.
type envelope struct {
	subject string
	data    []byte
	at      time.Time
}

func (e envelope) Data() []byte         { return e.data }
func (e envelope) Subject() string      { return e.subject }
func (e envelope) Timestamp() time.Time { return e.at }

type subscriber struct {
	pattern string
	ch      chan pubsub.Message
	gone    chan struct{}
	once    sync.Once
}

func (s *subscriber) leave() {
	s.once.Do(func() { close(s.gone) })
}

// broker fans messages out to the subscribers whose pattern matches.
type broker struct {
	mu       sync.RWMutex
	subs     map[*subscriber]struct{}
	closed   bool
	stop     chan struct{}
	stopOnce sync.Once
}

func newBroker() *broker {
	return &broker{
		subs: make(map[*subscriber]struct{}),
		stop: make(chan struct{}),
	}
}

// deliver blocks while a matching subscriber's buffer is full, until ctx is
// done or that subscriber leaves.
func (b *broker) deliver(ctx context.Context, subject string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrEngineClosed
	}

	msg := envelope{subject: subject, data: data, at: time.Now()}
	for s := range b.subs {
		if !matchSubject(s.pattern, subject) {
			continue
		}
		select {
		case s.ch <- msg:
		case <-s.gone:
		case <-b.stop:
			return ErrEngineClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// join registers a subscriber. The returned func removes it and closes its
// channel; it is safe to call more than once.
func (b *broker) join(pattern string, size int) (*subscriber, func(), error) {
	s := &subscriber{
		pattern: pattern,
		ch:      make(chan pubsub.Message, size),
		gone:    make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, nil, ErrEngineClosed
	}
	b.subs[s] = struct{}{}

	remove := func() {
		// Release a publisher blocked on s before waiting for the write lock.
		s.leave()
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[s]; ok {
			delete(b.subs, s)
			close(s.ch)
		}
	}
	return s, remove, nil
}

func (b *broker) shutdown() {
	// Wake blocked deliveries so the write lock can be taken.
	b.stopOnce.Do(func() { close(b.stop) })

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
	}
	clear(b.subs)
}

func (b *broker) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}

func (b *broker) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
