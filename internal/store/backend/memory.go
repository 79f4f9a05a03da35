package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/syntrixbase/storenotify/pkg/model"
)

// Memory is a Backend that keeps records in process memory.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
	closed  bool
}

var _ Backend = (*Memory)(nil)

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record)}
}

func (m *Memory) Load(ctx context.Context, entity string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.WrapError(err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var out []Record
	for _, id := range m.order {
		rec := m.records[id]
		if rec.Entity != entity {
			continue
		}
		rec.Fields = rec.Fields.Clone()
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) Commit(ctx context.Context, muts []Mutation) error {
	if err := ctx.Err(); err != nil {
		return model.WrapError(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	// Validate everything first so a failed commit changes nothing.
	seen := make(map[string]bool, len(muts))
	for _, mut := range muts {
		id := mut.Record.ID
		_, exists := m.records[id]
		if seen[id] {
			return fmt.Errorf("duplicate mutation for %s", id)
		}
		seen[id] = true
		switch mut.Op {
		case OpInsert:
			if exists {
				return fmt.Errorf("%w: %s", model.ErrExists, id)
			}
		case OpUpdate, OpDelete:
			if !exists {
				return fmt.Errorf("%w: %s", model.ErrNotFound, id)
			}
		default:
			return fmt.Errorf("unsupported mutation %s", mut.Op)
		}
	}

	deleted := false
	for _, mut := range muts {
		rec := mut.Record
		switch mut.Op {
		case OpInsert:
			rec.Fields = rec.Fields.Clone()
			m.records[rec.ID] = rec
			m.order = append(m.order, rec.ID)
		case OpUpdate:
			rec.Fields = rec.Fields.Clone()
			m.records[rec.ID] = rec
		case OpDelete:
			delete(m.records, rec.ID)
			deleted = true
		}
	}
	if deleted {
		order := m.order[:0]
		for _, id := range m.order {
			if _, ok := m.records[id]; ok {
				order = append(order, id)
			}
		}
		m.order = order
	}
	return nil
}

func (m *Memory) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
