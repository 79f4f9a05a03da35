package notify

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/syntrixbase/storenotify/internal/metrics"
)

// NotificationFunc is called once per save of a source the token observes.
type NotificationFunc func(name string, source Source)

// Token is a handle to one observer registration. Stopping it unregisters the
// observer from every source it was registered with.
//
// The zero value is not usable; create tokens with NewToken or
// NewNotificationToken.
type Token struct {
	id      string
	kind    string
	handler func(Notification)
	stopped atomic.Bool

	mu      sync.Mutex
	sources []Source
}

// NewToken creates a token carrying fn. It does not subscribe.
// Notifications whose Object is not a Source are dropped.
func NewToken(fn NotificationFunc) *Token {
	t := &Token{id: uuid.NewString()}
	if fn != nil {
		t.handler = func(n Notification) {
			src, ok := n.Object.(Source)
			if !ok {
				metrics.ChangesDropped.WithLabelValues(metrics.ReasonPayload).Inc()
				return
			}
			fn(n.Name, src)
		}
	}
	return t
}

// NewNotificationToken creates a token that receives the raw notification,
// including its Info payload. It does not subscribe.
func NewNotificationToken(fn func(Notification)) *Token {
	return &Token{id: uuid.NewString(), handler: fn}
}

// ID returns the opaque registration id.
func (t *Token) ID() string {
	return t.id
}

// Stopped reports whether Stop has been called.
func (t *Token) Stopped() bool {
	return t.stopped.Load()
}

// Register adds the token as an observer of src and remembers src so that Stop
// can remove it again. Registering a stopped token is a no-op.
func (t *Token) Register(src Source) {
	if src == nil {
		return
	}
	t.mu.Lock()
	if t.stopped.Load() {
		t.mu.Unlock()
		return
	}
	t.sources = append(t.sources, src)
	t.mu.Unlock()

	src.AddObserver(t)

	// Stop may have run between the append and AddObserver.
	if t.stopped.Load() {
		src.RemoveObserver(t.id)
	}
}

// Deliver forwards n to the callback unless the token is stopped.
func (t *Token) Deliver(n Notification) {
	if t.stopped.Load() || t.handler == nil {
		return
	}
	metrics.EventsDelivered.WithLabelValues("save").Inc()
	t.handler(n)
}

// Stop ends the registration. It is idempotent and may be called from any
// goroutine, including from inside the token's own callback. A delivery that
// already passed its stopped check may finish; no new delivery starts.
func (t *Token) Stop() {
	t.mu.Lock()
	if t.stopped.Swap(true) {
		t.mu.Unlock()
		return
	}
	sources := t.sources
	t.sources = nil
	kind := t.kind
	t.mu.Unlock()

	for _, src := range sources {
		src.RemoveObserver(t.id)
	}
	if kind != "" {
		metrics.SubscriptionsActive.WithLabelValues(kind).Dec()
	}
}

// track counts the token as an active subscription of kind until it stops.
func (t *Token) track(kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped.Load() || t.kind != "" {
		return
	}
	t.kind = kind
	metrics.SubscriptionsActive.WithLabelValues(kind).Inc()
}
