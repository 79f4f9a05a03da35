package store

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/syntrixbase/storenotify/internal/notify"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// LiveQuery creates a standing query over the committed objects. The query
// must carry an ordering; an empty OrderBy keeps insertion order.
//
// The live query reports changes only while a delegate is set and after a
// successful PerformFetch. The context does not keep it alive.
func (c *Context) LiveQuery(q model.Query) (notify.LiveQuery[*Object], error) {
	if q.OrderBy == nil {
		return nil, fmt.Errorf("%w: live queries require an ordering", model.ErrInvalidQuery)
	}
	p, err := c.plan(q)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	return &liveQuery{id: uuid.NewString(), owner: c, plan: p}, nil
}

type liveQuery struct {
	id    string
	owner *Context
	plan  *plan

	mu       sync.Mutex
	delegate notify.ChangeFunc
	fetched  []*Object
	gen      uint64
	ready    bool
}

func (q *liveQuery) SetDelegate(fn notify.ChangeFunc) {
	q.mu.Lock()
	q.delegate = fn
	q.mu.Unlock()

	if fn == nil {
		q.owner.queries.remove(q.id)
		return
	}
	q.owner.queries.add(q.id, q)
}

// PerformFetch loads the current results. It holds the query lock for the
// whole fetch so a concurrent save diffs against the fetched list.
func (q *liveQuery) PerformFetch() error {
	ctx, cancel := q.owner.fetchContext()
	defer cancel()

	q.mu.Lock()
	defer q.mu.Unlock()

	objs, gen, err := q.owner.fetch(ctx, q.plan)
	if err != nil {
		return err
	}
	q.fetched = objs
	q.gen = gen
	q.ready = true
	return nil
}

// FetchedObjects returns a copy of the current results. Callers may reorder
// it without affecting later diffs.
func (q *liveQuery) FetchedObjects() []*Object {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.fetched)
}

type atomicChange struct {
	kind   notify.ChangeKind
	oldPos *notify.Position
	newPos *notify.Position
}

// apply folds a commit into the results and reports the resulting changes to
// the delegate.
func (q *liveQuery) apply(cm *commit) {
	q.mu.Lock()
	if !q.ready || q.gen >= cm.gen {
		q.mu.Unlock()
		return
	}
	touched := cm.touched[q.plan.query.Entity]
	if len(touched) == 0 {
		q.gen = cm.gen
		q.mu.Unlock()
		return
	}

	next, changes := diff(q.fetched, touched, q.plan)
	q.fetched = next
	q.gen = cm.gen
	delegate := q.delegate
	q.mu.Unlock()

	if delegate == nil {
		return
	}
	for _, ch := range changes {
		delegate(ch.kind, ch.oldPos, ch.newPos)
	}
}

// diff computes the results after a commit and the atomic changes that turn
// old into them. Deletes come first by old position, then inserts by new
// position, then moves, then in-place updates.
func diff(old []*Object, touched map[string]*Object, p *plan) ([]*Object, []atomicChange) {
	next := make([]*Object, 0, len(old)+len(touched))
	oldIndex := make(map[string]int, len(old))
	for i, obj := range old {
		oldIndex[obj.ID] = i
		if _, changed := touched[obj.ID]; !changed {
			next = append(next, obj)
		}
	}
	for _, obj := range touched {
		if obj != nil && p.matches(obj) {
			next = append(next, obj)
		}
	}
	slices.SortFunc(next, p.compare)

	newIndex := make(map[string]int, len(next))
	for j, obj := range next {
		newIndex[obj.ID] = j
	}

	var deletes, inserts, moves, updates []atomicChange
	for i, obj := range old {
		if _, ok := newIndex[obj.ID]; !ok {
			deletes = append(deletes, atomicChange{kind: notify.KindDelete, oldPos: position(i)})
		}
	}
	for j, obj := range next {
		i, existed := oldIndex[obj.ID]
		if !existed {
			inserts = append(inserts, atomicChange{kind: notify.KindInsert, newPos: position(j)})
			continue
		}
		if _, changed := touched[obj.ID]; !changed {
			continue
		}
		if i != j {
			moves = append(moves, atomicChange{kind: notify.KindMove, oldPos: position(i), newPos: position(j)})
		} else {
			updates = append(updates, atomicChange{kind: notify.KindUpdate, oldPos: position(i), newPos: position(j)})
		}
	}

	changes := make([]atomicChange, 0, len(deletes)+len(inserts)+len(moves)+len(updates))
	changes = append(changes, deletes...)
	changes = append(changes, inserts...)
	changes = append(changes, moves...)
	changes = append(changes, updates...)
	return next, changes
}

func position(row int) *notify.Position {
	p := notify.At(row)
	return &p
}
