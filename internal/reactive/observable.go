// Package reactive exposes store notifications as cold observables and as
// channel-backed streams.
package reactive

import (
	"sync"
)

// SubscribeFunc starts producing values for one subscriber. It returns the
// teardown that releases whatever it registered.
type SubscribeFunc[V any] func(emit func(V), fail func(error)) (teardown func())

// Observable is a cold stream: every Subscribe runs the subscribe function
// again and gets its own underlying registration.
type Observable[V any] struct {
	subscribe SubscribeFunc[V]
}

// Create wraps fn as an Observable.
func Create[V any](fn SubscribeFunc[V]) *Observable[V] {
	return &Observable[V]{subscribe: fn}
}

// Subscribe starts a new subscription. next receives values in order until the
// subscription is disposed or fails. fail is called at most once; the
// subscription is terminal afterwards and its teardown runs.
func (o *Observable[V]) Subscribe(next func(V), fail func(error)) *Subscription {
	s := &Subscription{}
	if o == nil || o.subscribe == nil {
		return s
	}

	emit := func(v V) {
		if s.done() {
			return
		}
		if next != nil {
			next(v)
		}
	}
	failFn := func(err error) {
		if !s.terminate(err) {
			return
		}
		if fail != nil {
			fail(err)
		}
		s.Dispose()
	}

	s.setTeardown(o.subscribe(emit, failFn))
	return s
}

// Subscription is the handle to one running subscription.
type Subscription struct {
	mu         sync.Mutex
	teardown   func()
	disposed   bool
	terminated bool
	err        error
}

// Dispose ends the subscription and runs its teardown once. It is safe to call
// repeatedly, concurrently and after a failure.
func (s *Subscription) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	td := s.teardown
	s.teardown = nil
	s.mu.Unlock()

	if td != nil {
		td()
	}
}

// Disposed reports whether Dispose has run.
func (s *Subscription) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// Err returns the error that terminated the subscription, if any.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed || s.terminated
}

func (s *Subscription) terminate(err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || s.terminated {
		return false
	}
	s.terminated = true
	s.err = err
	return true
}

// setTeardown stores td, or runs it right away when the subscription ended
// while the subscribe function was still running.
func (s *Subscription) setTeardown(td func()) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		if td != nil {
			td()
		}
		return
	}
	s.teardown = td
	s.mu.Unlock()
}
