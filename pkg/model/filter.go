package model

import "fmt"

// FilterOp is a comparison operator of a Filter.
type FilterOp string

const (
	OpEq       FilterOp = "=="
	OpNe       FilterOp = "!="
	OpGt       FilterOp = ">"
	OpGte      FilterOp = ">="
	OpLt       FilterOp = "<"
	OpLte      FilterOp = "<="
	OpIn       FilterOp = "in"       // field value is one of Value
	OpContains FilterOp = "contains" // field is a list holding Value
)

var filterOps = map[FilterOp]struct{}{
	OpEq: {}, OpNe: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {}, OpIn: {}, OpContains: {},
}

func (op FilterOp) IsValid() bool {
	_, ok := filterOps[op]
	return ok
}

// Filters is a conjunction.
type Filters []Filter

// Filter compares one object field with a constant.
type Filter struct {
	Field string   `json:"field" yaml:"field"`
	Op    FilterOp `json:"op" yaml:"op"`
	Value any      `json:"value" yaml:"value"`
}

func (f Filter) Validate() error {
	if f.Field == "" {
		return fmt.Errorf("%w: filter field is required", ErrInvalidQuery)
	}
	if !f.Op.IsValid() {
		return fmt.Errorf("%w: unknown operator %q on field %q", ErrInvalidQuery, f.Op, f.Field)
	}
	return nil
}
