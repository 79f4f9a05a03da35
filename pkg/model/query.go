package model

import (
	"fmt"
	"strings"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Order is one sort key of a query.
type Order struct {
	Field     string    `json:"field" yaml:"field"`
	Direction Direction `json:"direction,omitempty" yaml:"direction"` // "asc" (default) or "desc"
}

// Descending reports whether the order sorts from high to low.
func (o Order) Descending() bool {
	return strings.EqualFold(string(o.Direction), string(Desc))
}

// Query selects the objects of one entity that match every filter, in
// OrderBy order.
//
// A nil OrderBy means "unspecified". Live queries require a non-nil
// ordering; an empty slice keeps the store's insertion order.
type Query struct {
	Entity  string  `json:"entity" yaml:"entity"`
	Filters Filters `json:"filters,omitempty" yaml:"filters"`
	OrderBy []Order `json:"orderBy,omitempty" yaml:"order_by"`
}

// Validate checks the parts of a query that do not depend on a store.
func (q Query) Validate() error {
	if q.Entity == "" {
		return fmt.Errorf("%w: entity is required", ErrInvalidQuery)
	}
	if !CheckEntity(q.Entity) {
		return fmt.Errorf("%w: invalid entity name %q", ErrInvalidQuery, q.Entity)
	}
	for _, f := range q.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	for _, o := range q.OrderBy {
		if o.Field == "" {
			return fmt.Errorf("%w: order field is required", ErrInvalidQuery)
		}
		switch strings.ToLower(string(o.Direction)) {
		case "", string(Asc), string(Desc):
		default:
			return fmt.Errorf("%w: invalid direction %q for field %q", ErrInvalidQuery, o.Direction, o.Field)
		}
	}
	return nil
}

// WithOrdering returns a copy of q whose OrderBy is never nil.
func (q Query) WithOrdering() Query {
	if q.OrderBy == nil {
		q.OrderBy = []Order{}
	}
	return q
}
