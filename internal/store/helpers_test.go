package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/syntrixbase/storenotify/internal/notify"
	"github.com/syntrixbase/storenotify/internal/store/backend"
	"github.com/syntrixbase/storenotify/pkg/model"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Load(ctx context.Context, entity string) ([]backend.Record, error) {
	args := m.Called(ctx, entity)
	recs, _ := args.Get(0).([]backend.Record)
	return recs, args.Error(1)
}

func (m *mockBackend) Commit(ctx context.Context, muts []backend.Mutation) error {
	args := m.Called(ctx, muts)
	return args.Error(0)
}

func (m *mockBackend) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func newTestContext(t *testing.T, opts ...Option) *Context {
	t.Helper()
	c, err := New(append([]Option{WithName("test"), WithMetrics(false)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return c
}

func byName() model.Query {
	return model.Query{
		Entity:  "City",
		OrderBy: []model.Order{{Field: "name", Direction: model.Asc}},
	}
}

func insertCity(t *testing.T, c *Context, name string, extra ...model.Document) string {
	t.Helper()
	fields := model.Document{"name": name}
	for _, e := range extra {
		for k, v := range e {
			fields[k] = v
		}
	}
	id, err := c.Insert("City", fields)
	require.NoError(t, err)
	return id
}

func save(t *testing.T, c *Context) {
	t.Helper()
	require.NoError(t, c.Save(context.Background()))
}

func names(objs []*Object) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		n, _ := o.Field("name")
		s, _ := n.(string)
		out = append(out, s)
	}
	return out
}

type eventLog struct {
	mu     sync.Mutex
	events []notify.ChangeEvent[[]*Object]
}

func (l *eventLog) record(ev notify.ChangeEvent[[]*Object]) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) all() []notify.ChangeEvent[[]*Object] {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]notify.ChangeEvent[[]*Object], len(l.events))
	copy(out, l.events)
	return out
}

func (l *eventLog) reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
