package reactive

import (
	"context"
	"io"
	"sync"
)

// DefaultBufferSize is the stream buffer used when none is given.
const DefaultBufferSize = 64

// Stream bridges an Observable to pull-style consumption.
//
// Producers block while the buffer is full, so a slow reader slows down the
// store's dispatch instead of losing events.
type Stream[V any] struct {
	values chan V
	done   chan struct{}
	once   sync.Once

	mu  sync.Mutex
	err error

	sub     *Subscription
	stopCtx func() bool
}

// Stream subscribes to o and buffers up to bufSize values. The stream ends on
// Close, on cancellation of ctx, or when the observable fails.
func (o *Observable[V]) Stream(ctx context.Context, bufSize int) *Stream[V] {
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	s := &Stream[V]{
		values: make(chan V, bufSize),
		done:   make(chan struct{}),
	}

	s.sub = o.Subscribe(s.push, s.finish)

	if ctx != nil {
		s.stopCtx = context.AfterFunc(ctx, func() {
			s.finish(ctx.Err())
			s.sub.Dispose()
		})
	}
	return s
}

// Recv returns the next value. After the stream ended it keeps returning
// buffered values, then the terminal error: the observable's failure, the
// context error, or io.EOF after Close.
func (s *Stream[V]) Recv() (V, error) {
	select {
	case v := <-s.values:
		return v, nil
	case <-s.done:
		select {
		case v := <-s.values:
			return v, nil
		default:
		}
		var zero V
		return zero, s.Err()
	}
}

// Done is closed when the stream ends.
func (s *Stream[V]) Done() <-chan struct{} {
	return s.done
}

// Err returns the terminal error, or nil while the stream is open.
func (s *Stream[V]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close ends the stream and disposes the underlying subscription.
func (s *Stream[V]) Close() {
	s.finish(io.EOF)
	s.sub.Dispose()
	if s.stopCtx != nil {
		s.stopCtx()
	}
}

func (s *Stream[V]) push(v V) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.values <- v:
	case <-s.done:
	}
}

func (s *Stream[V]) finish(err error) {
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	})
}
