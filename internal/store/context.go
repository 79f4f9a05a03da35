// Package store implements an in-process object context with change tracking.
//
// Objects are staged with Insert, Update and Delete and become visible on
// Save. Every successful save updates the context's live queries, reporting
// their atomic changes to the query delegates, and then posts a
// DidSaveNotification to the registered save observers.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/syntrixbase/storenotify/internal/metrics"
	"github.com/syntrixbase/storenotify/internal/notify"
	"github.com/syntrixbase/storenotify/internal/store/backend"
	"github.com/syntrixbase/storenotify/internal/store/predicate"
	"github.com/syntrixbase/storenotify/pkg/model"
)

const (
	defaultName         = "default"
	defaultFetchTimeout = 30 * time.Second
)

// Context is an object store with staged changes, save notifications and
// live queries. It is safe for concurrent use.
//
// Callbacks run synchronously inside Save, in commit order. They may read the
// context, stop tokens and start new subscriptions, but must not call Save.
type Context struct {
	name         string
	backend      backend.Backend
	logger       *slog.Logger
	compiler     *predicate.Compiler
	metrics      bool
	fetchTimeout time.Duration

	commitMu sync.Mutex // serializes Save, including dispatch
	loadMu   sync.Mutex // serializes backend loads

	mu           sync.RWMutex
	objects      map[string]*Object
	loaded       map[string]bool
	pending      map[string]*change
	pendingOrder []string
	seq          uint64
	gen          uint64
	closed       bool

	observers weakRegistry[notify.Token]
	queries   weakRegistry[liveQuery]
}

var _ notify.Source = (*Context)(nil)
var _ notify.QueryProvider[*Object] = (*Context)(nil)

type change struct {
	op     backend.Op
	entity string
	fields model.Document
}

// New creates a Context.
func New(opts ...Option) (*Context, error) {
	c := &Context{
		name:         defaultName,
		metrics:      true,
		fetchTimeout: defaultFetchTimeout,
		objects:      make(map[string]*Object),
		loaded:       make(map[string]bool),
		pending:      make(map[string]*change),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backend == nil {
		c.backend = backend.NewMemory()
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	c.logger = c.logger.With("component", "store", "store", c.name)

	compiler, err := predicate.NewCompiler()
	if err != nil {
		return nil, err
	}
	c.compiler = compiler
	return c, nil
}

// Name returns the store name.
func (c *Context) Name() string {
	return c.name
}

// Insert stages a new object of entity and returns its identifier.
func (c *Context) Insert(entity string, fields model.Document) (string, error) {
	if !model.CheckEntity(entity) {
		return "", fmt.Errorf("%w: invalid entity %q", model.ErrInvalidObject, entity)
	}
	if fields == nil {
		fields = model.Document{}
	}
	if err := fields.Validate(); err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrInvalidObject, err)
	}

	id := model.NewObjectID()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return "", ErrClosed
	}
	c.stage(id, &change{op: backend.OpInsert, entity: entity, fields: fields.Clone()})
	return id, nil
}

// Update stages a merge of patch into the object. A nil value in patch removes
// the field.
func (c *Context) Update(id string, patch model.Document) error {
	if err := patch.Validate(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrInvalidObject, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if ch, ok := c.pending[id]; ok {
		if ch.op == backend.OpDelete {
			return fmt.Errorf("%w: %s is staged for deletion", model.ErrNotFound, id)
		}
		ch.fields = ch.fields.Merge(patch)
		return nil
	}

	obj, ok := c.objects[id]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	c.stage(id, &change{op: backend.OpUpdate, entity: obj.Entity, fields: obj.Fields.Merge(patch)})
	return nil
}

// Delete stages the removal of the object. Deleting an object that was
// inserted but never saved just drops the insert.
func (c *Context) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	if ch, ok := c.pending[id]; ok {
		switch ch.op {
		case backend.OpInsert:
			c.unstage(id)
		case backend.OpUpdate:
			ch.op = backend.OpDelete
			ch.fields = nil
		case backend.OpDelete:
			return fmt.Errorf("%w: %s", model.ErrNotFound, id)
		}
		return nil
	}

	obj, ok := c.objects[id]
	if !ok {
		return fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	c.stage(id, &change{op: backend.OpDelete, entity: obj.Entity})
	return nil
}

// HasChanges reports whether anything is staged.
func (c *Context) HasChanges() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pendingOrder) > 0
}

// Rollback discards every staged change.
func (c *Context) Rollback() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[string]*change)
	c.pendingOrder = nil
}

func (c *Context) stage(id string, ch *change) {
	if _, ok := c.pending[id]; !ok {
		c.pendingOrder = append(c.pendingOrder, id)
	}
	c.pending[id] = ch
}

func (c *Context) unstage(id string) {
	delete(c.pending, id)
	if i := slices.Index(c.pendingOrder, id); i >= 0 {
		c.pendingOrder = slices.Delete(c.pendingOrder, i, i+1)
	}
}

// Get returns the committed object with id.
func (c *Context) Get(id string) (*Object, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	obj, ok := c.objects[id]
	return obj, ok
}

// commit is one save in flight.
type commit struct {
	gen       uint64
	mutations []backend.Mutation
	info      SaveInfo
	touched   map[string]map[string]*Object // entity -> id -> new object, nil when deleted
}

func (cm *commit) touch(entity, id string, obj *Object) {
	byID, ok := cm.touched[entity]
	if !ok {
		byID = make(map[string]*Object)
		cm.touched[entity] = byID
	}
	byID[id] = obj
}

// Save commits every staged change to the backend and applies it to the
// object graph. Live queries are updated and notified first, then the save
// observers in registration order. A failed commit keeps the changes staged.
func (c *Context) Save(ctx context.Context) error {
	start := time.Now()

	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if len(c.pendingOrder) == 0 {
		c.mu.Unlock()
		return nil
	}
	staged, order := c.pending, c.pendingOrder
	c.pending = make(map[string]*change)
	c.pendingOrder = nil
	cm := c.prepare(staged, order, start.UnixMilli())
	c.mu.Unlock()

	if err := c.backend.Commit(ctx, cm.mutations); err != nil {
		c.restore(staged, order)
		c.observeSave("error", start)
		c.logger.Warn("Save failed", "changes", len(cm.mutations), "error", err)
		return fmt.Errorf("failed to save %d changes: %w", len(cm.mutations), model.WrapError(err))
	}

	c.mu.Lock()
	c.gen++
	cm.gen = c.gen
	for _, obj := range cm.info.Inserted {
		c.objects[obj.ID] = obj
	}
	for _, obj := range cm.info.Updated {
		c.objects[obj.ID] = obj
	}
	for _, obj := range cm.info.Deleted {
		delete(c.objects, obj.ID)
	}
	c.mu.Unlock()

	c.logger.Debug("Saved changes",
		"inserted", len(cm.info.Inserted),
		"updated", len(cm.info.Updated),
		"deleted", len(cm.info.Deleted))

	c.dispatch(cm)
	c.observeSave("ok", start)
	return nil
}

// prepare builds the new object versions of a save. Caller holds c.mu.
func (c *Context) prepare(staged map[string]*change, order []string, now int64) *commit {
	cm := &commit{
		info:    SaveInfo{Store: c.name},
		touched: make(map[string]map[string]*Object),
	}
	for _, id := range order {
		ch := staged[id]
		switch ch.op {
		case backend.OpInsert:
			c.seq++
			obj := &Object{
				ID:        id,
				Entity:    ch.entity,
				Fields:    ch.fields,
				Version:   1,
				CreatedAt: now,
				UpdatedAt: now,
				seq:       c.seq,
			}
			cm.info.Inserted = append(cm.info.Inserted, obj)
			cm.touch(ch.entity, id, obj)
			cm.mutations = append(cm.mutations, backend.Mutation{Op: backend.OpInsert, Record: obj.record()})
		case backend.OpUpdate:
			old, ok := c.objects[id]
			if !ok {
				continue
			}
			obj := &Object{
				ID:        id,
				Entity:    old.Entity,
				Fields:    ch.fields,
				Version:   old.Version + 1,
				CreatedAt: old.CreatedAt,
				UpdatedAt: now,
				seq:       old.seq,
			}
			cm.info.Updated = append(cm.info.Updated, obj)
			cm.touch(obj.Entity, id, obj)
			cm.mutations = append(cm.mutations, backend.Mutation{Op: backend.OpUpdate, Record: obj.record()})
		case backend.OpDelete:
			old, ok := c.objects[id]
			if !ok {
				continue
			}
			cm.info.Deleted = append(cm.info.Deleted, old)
			cm.touch(old.Entity, id, nil)
			cm.mutations = append(cm.mutations, backend.Mutation{
				Op:     backend.OpDelete,
				Record: backend.Record{ID: id, Entity: old.Entity},
			})
		}
	}
	return cm
}

// restore puts the changes of a failed save back in front of anything staged
// since.
func (c *Context) restore(staged map[string]*change, order []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	restored := make([]string, 0, len(order)+len(c.pendingOrder))
	for _, id := range order {
		if _, ok := c.pending[id]; ok {
			continue
		}
		c.pending[id] = staged[id]
		restored = append(restored, id)
	}
	c.pendingOrder = append(restored, c.pendingOrder...)
}

func (c *Context) dispatch(cm *commit) {
	for _, q := range c.queries.snapshot() {
		q.apply(cm)
	}

	n := notify.Notification{Name: notify.DidSaveNotification, Object: c, Info: cm.info}
	for _, t := range c.observers.snapshot() {
		if t.Stopped() {
			c.observers.remove(t.ID())
			continue
		}
		t.Deliver(n)
	}
}

func (c *Context) observeSave(result string, start time.Time) {
	if !c.metrics {
		return
	}
	metrics.SavesTotal.WithLabelValues(c.name, result).Inc()
	metrics.SaveLatency.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
}

// Fetch returns the committed objects matching q, sorted by q.OrderBy. The
// entity is loaded from the backend on first use.
func (c *Context) Fetch(ctx context.Context, q model.Query) ([]*Object, error) {
	p, err := c.plan(q)
	if err != nil {
		return nil, err
	}
	objs, _, err := c.fetch(ctx, p)
	return objs, err
}

func (c *Context) fetch(ctx context.Context, p *plan) ([]*Object, uint64, error) {
	if err := c.ensureLoaded(ctx, p.query.Entity); err != nil {
		return nil, 0, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, 0, ErrClosed
	}
	var out []*Object
	for _, obj := range c.objects {
		if p.matches(obj) {
			out = append(out, obj)
		}
	}
	slices.SortFunc(out, p.compare)
	return out, c.gen, nil
}

func (c *Context) ensureLoaded(ctx context.Context, entity string) error {
	c.mu.RLock()
	loaded, closed := c.loaded[entity], c.closed
	c.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	if loaded {
		return nil
	}

	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	c.mu.RLock()
	loaded = c.loaded[entity]
	c.mu.RUnlock()
	if loaded {
		return nil
	}

	recs, err := c.backend.Load(ctx, entity)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", entity, model.WrapError(err))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range recs {
		if _, ok := c.objects[r.ID]; ok {
			continue
		}
		c.seq++
		c.objects[r.ID] = objectFromRecord(r, c.seq)
	}
	c.loaded[entity] = true
	c.logger.Debug("Loaded entity", "entity", entity, "count", len(recs))
	return nil
}

// plan is a validated, compiled query.
type plan struct {
	query   model.Query
	program cel.Program
}

func (c *Context) plan(q model.Query) (*plan, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	prg, err := c.compiler.CompileFilters(q.Filters)
	if err != nil {
		return nil, err
	}
	return &plan{query: q, program: prg}, nil
}

func (p *plan) matches(obj *Object) bool {
	if obj.Entity != p.query.Entity {
		return false
	}
	ok, err := predicate.Evaluate(p.program, obj.Fields)
	return err == nil && ok
}

func (p *plan) compare(a, b *Object) int {
	for _, o := range p.query.OrderBy {
		va, _ := a.Field(o.Field)
		vb, _ := b.Field(o.Field)
		r := compareValues(va, vb)
		if o.Descending() {
			r = -r
		}
		if r != 0 {
			return r
		}
	}
	switch {
	case a.seq < b.seq:
		return -1
	case a.seq > b.seq:
		return 1
	default:
		return 0
	}
}

// Close closes the context and its backend. Staged changes are discarded.
func (c *Context) Close(ctx context.Context) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.pending = make(map[string]*change)
	c.pendingOrder = nil
	c.mu.Unlock()

	return c.backend.Close(ctx)
}

func (c *Context) fetchContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), c.fetchTimeout)
}
