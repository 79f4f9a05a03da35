package notify

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/syntrixbase/storenotify/internal/metrics"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// FetchNotification tracks one live query and reports every change to its
// ordered results as a ChangeEvent.
//
// Construction never fails: a rejected query or a failed first fetch is
// reported to the callback as a single error event and the returned value
// stays inert.
type FetchNotification[T any] struct {
	*Token

	query model.Query
	fn    func(ChangeEvent[[]T])

	mu    sync.Mutex
	live  LiveQuery[T]
	items []T
	err   error
}

// NewFetchNotification creates a live query for q through provider, installs
// itself as the query's delegate and performs the first fetch. On success the
// callback receives Initial with the fetched objects before this returns.
func NewFetchNotification[T any](provider QueryProvider[T], q model.Query, fn func(ChangeEvent[[]T])) *FetchNotification[T] {
	f := &FetchNotification[T]{
		Token: NewToken(nil),
		query: q.WithOrdering(),
		fn:    fn,
	}

	if provider == nil {
		f.fail(fmt.Errorf("%w: no query provider", ErrQueryConstruction))
		return f
	}

	live, err := provider.LiveQuery(f.query)
	if err != nil {
		f.fail(fmt.Errorf("%w: %w", ErrQueryConstruction, err))
		return f
	}

	f.mu.Lock()
	f.live = live
	f.mu.Unlock()

	live.SetDelegate(f.translate)
	if err := live.PerformFetch(); err != nil {
		live.SetDelegate(nil)
		f.mu.Lock()
		f.live = nil
		f.mu.Unlock()
		f.fail(fmt.Errorf("%w: %w", ErrFetchExecution, err))
		return f
	}

	items := live.FetchedObjects()
	f.setItems(items)
	f.emit(Initial(items))
	return f
}

// Query returns the normalized query.
func (f *FetchNotification[T]) Query() model.Query {
	return f.query
}

// Err returns the construction or first-fetch error, if any. A notification
// with a non-nil Err never delivers further events.
func (f *FetchNotification[T]) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Items returns a copy of the results carried by the last delivered event.
func (f *FetchNotification[T]) Items() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.items)
}

// Stop detaches from the live query and ends the registration.
func (f *FetchNotification[T]) Stop() {
	f.mu.Lock()
	live := f.live
	f.live = nil
	f.mu.Unlock()

	if live != nil {
		live.SetDelegate(nil)
	}
	f.Token.Stop()
}

func (f *FetchNotification[T]) translate(kind ChangeKind, oldPos, newPos *Position) {
	if f.Stopped() {
		return
	}

	f.mu.Lock()
	live := f.live
	f.mu.Unlock()
	if live == nil {
		return
	}

	ev, err := changeEvent(live.FetchedObjects(), kind, oldPos, newPos)
	if err != nil {
		metrics.ChangesDropped.WithLabelValues(metrics.ReasonTranslation).Inc()
		slog.Debug("Dropping live query change", "component", "notify", "entity", f.query.Entity, "error", err)
		return
	}

	f.setItems(ev.Items)
	f.emit(ev)
}

func changeEvent[T any](items []T, kind ChangeKind, oldPos, newPos *Position) (ChangeEvent[[]T], error) {
	switch kind {
	case KindInsert:
		if newPos == nil {
			return ChangeEvent[[]T]{}, fmt.Errorf("%w: insert without new position", ErrDelegateTranslation)
		}
		return Insert(items, *newPos), nil
	case KindDelete:
		if oldPos == nil {
			return ChangeEvent[[]T]{}, fmt.Errorf("%w: delete without old position", ErrDelegateTranslation)
		}
		return Delete(items, *oldPos), nil
	case KindUpdate:
		if oldPos == nil {
			return ChangeEvent[[]T]{}, fmt.Errorf("%w: update without old position", ErrDelegateTranslation)
		}
		return Update(items, *oldPos), nil
	case KindMove:
		if oldPos == nil || newPos == nil {
			return ChangeEvent[[]T]{}, fmt.Errorf("%w: move needs both positions", ErrDelegateTranslation)
		}
		return Move(items, *oldPos, *newPos), nil
	default:
		return ChangeEvent[[]T]{}, fmt.Errorf("%w: unknown change kind %d", ErrDelegateTranslation, int(kind))
	}
}

// setItems keeps a private copy so callbacks may mutate the event's Items.
func (f *FetchNotification[T]) setItems(items []T) {
	f.mu.Lock()
	f.items = slices.Clone(items)
	f.mu.Unlock()
}

func (f *FetchNotification[T]) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
	f.emit(Failure[[]T](err))
}

func (f *FetchNotification[T]) emit(ev ChangeEvent[[]T]) {
	if f.fn == nil || f.Stopped() {
		return
	}
	metrics.EventsDelivered.WithLabelValues(ev.Type.String()).Inc()
	f.fn(ev)
}
