package store

import (
	"runtime"
	"sync"
	"weak"
)

type weakEntry[T any] struct {
	id      string
	ref     weak.Pointer[T]
	cleanup runtime.Cleanup
}

// weakRegistry holds registrations in insertion order without keeping the
// registered values alive. Entries of collected values are pruned by a
// cleanup and on every snapshot.
type weakRegistry[T any] struct {
	mu      sync.Mutex
	entries []weakEntry[T]
}

func (r *weakRegistry[T]) add(id string, v *T) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.id == id {
			return false
		}
	}
	r.entries = append(r.entries, weakEntry[T]{
		id:      id,
		ref:     weak.Make(v),
		cleanup: runtime.AddCleanup(v, r.remove, id),
	})
	return true
}

func (r *weakRegistry[T]) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.id == id {
			e.cleanup.Stop()
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return
		}
	}
}

// snapshot returns the live values in registration order.
func (r *weakRegistry[T]) snapshot() []*T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*T, 0, len(r.entries))
	kept := r.entries[:0]
	for _, e := range r.entries {
		v := e.ref.Value()
		if v == nil {
			continue
		}
		kept = append(kept, e)
		out = append(out, v)
	}
	clear(r.entries[len(kept):])
	r.entries = kept
	return out
}

func (r *weakRegistry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
