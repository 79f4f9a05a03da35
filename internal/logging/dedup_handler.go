package logging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DedupHandler drops records identical to one already written within the
// window. Identity covers level, message and attributes, never the time.
// The first record after a suppressed run carries a "repeated" attribute with
// the number of records dropped.
//
// Warnings that repeat on every save (a relay whose broker is down, a slow
// websocket client) are the intended target.
type DedupHandler struct {
	handler slog.Handler
	state   *dedupState
	// prefix distinguishes handlers derived with WithAttrs/WithGroup.
	prefix uint64
}

type dedupState struct {
	mu      sync.Mutex
	window  time.Duration
	now     func() time.Time
	entries map[uint64]*dedupEntry
}

type dedupEntry struct {
	last       time.Time
	suppressed int
}

// NewDedupHandler wraps handler.
func NewDedupHandler(handler slog.Handler, window time.Duration) *DedupHandler {
	return &DedupHandler{
		handler: handler,
		state: &dedupState{
			window:  window,
			now:     time.Now,
			entries: make(map[uint64]*dedupEntry),
		},
	}
}

func (h *DedupHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *DedupHandler) Handle(ctx context.Context, r slog.Record) error {
	key := h.hashRecord(r)

	s := h.state
	s.mu.Lock()
	now := s.now()
	s.evict(now)
	e, ok := s.entries[key]
	if ok && now.Sub(e.last) < s.window {
		e.suppressed++
		s.mu.Unlock()
		return nil
	}
	repeated := 0
	if ok {
		repeated = e.suppressed
	}
	s.entries[key] = &dedupEntry{last: now}
	s.mu.Unlock()

	if repeated > 0 {
		r = r.Clone()
		r.AddAttrs(slog.Int("repeated", repeated))
	}
	return h.handler.Handle(ctx, r)
}

// evict forgets entries that are older than two windows. Caller holds mu.
func (s *dedupState) evict(now time.Time) {
	for k, e := range s.entries {
		if now.Sub(e.last) >= 2*s.window && e.suppressed == 0 {
			delete(s.entries, k)
		}
	}
}

func (h *DedupHandler) hashRecord(r slog.Record) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(h.prefix >> (8 * i))
	}
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(r.Level.String())
	_, _ = d.WriteString("|")
	_, _ = d.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		_, _ = d.WriteString("|")
		_, _ = d.WriteString(a.Key)
		_, _ = d.WriteString("=")
		_, _ = d.WriteString(a.Value.String())
		return true
	})
	return d.Sum64()
}

func (h *DedupHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	d := xxhash.New()
	_, _ = d.WriteString("attrs")
	for _, a := range attrs {
		_, _ = d.WriteString(a.String())
	}
	return &DedupHandler{handler: h.handler.WithAttrs(attrs), state: h.state, prefix: h.prefix ^ d.Sum64()}
}

func (h *DedupHandler) WithGroup(name string) slog.Handler {
	return &DedupHandler{handler: h.handler.WithGroup(name), state: h.state, prefix: h.prefix ^ xxhash.Sum64String("group:"+name)}
}
