// Package notify turns store save notifications and live query callbacks into
// subscription tokens and ordered ChangeEvents.
package notify

import (
	"fmt"
)

// ChangeType identifies the active variant of a ChangeEvent.
type ChangeType int

const (
	// ChangeInitial is the first successful load of a query.
	ChangeInitial ChangeType = iota
	// ChangeInsert reports one item added at At.
	ChangeInsert
	// ChangeDelete reports one item removed from At.
	ChangeDelete
	// ChangeUpdate reports one item changed in place at At.
	ChangeUpdate
	// ChangeMove reports one item moved From -> To.
	ChangeMove
	// ChangeError reports a failed fetch. Err is set, Items is empty.
	ChangeError
)

// String returns the string representation of the change type.
func (t ChangeType) String() string {
	switch t {
	case ChangeInitial:
		return "initial"
	case ChangeInsert:
		return "insert"
	case ChangeDelete:
		return "delete"
	case ChangeUpdate:
		return "update"
	case ChangeMove:
		return "move"
	case ChangeError:
		return "error"
	default:
		return "unknown"
	}
}

// Position locates a row in an ordered result list. Indices are zero-based.
// Flat lists always use section 0.
type Position struct {
	Section int `json:"section"`
	Row     int `json:"row"`
}

// At returns the position of row in section 0.
func At(row int) Position {
	return Position{Row: row}
}

func (p Position) String() string {
	return fmt.Sprintf("[%d,%d]", p.Section, p.Row)
}

// ChangeEvent is one discrete change to an ordered result list of type T.
//
// Exactly one variant is active, selected by Type:
//
//	ChangeInitial: Items
//	ChangeInsert, ChangeDelete, ChangeUpdate: Items, At
//	ChangeMove: Items, From, To
//	ChangeError: Err
//
// Items is always the complete list after the change, never a delta.
// Insert and Move destinations are positions in that list; Delete, Update and
// Move sources are positions in the list before the change.
type ChangeEvent[T any] struct {
	Type  ChangeType
	Items T
	At    Position
	From  Position
	To    Position
	Err   error
}

// Initial builds the first-load variant.
func Initial[T any](items T) ChangeEvent[T] {
	return ChangeEvent[T]{Type: ChangeInitial, Items: items}
}

// Insert builds an insertion at at.
func Insert[T any](items T, at Position) ChangeEvent[T] {
	return ChangeEvent[T]{Type: ChangeInsert, Items: items, At: at}
}

// Delete builds a removal from at.
func Delete[T any](items T, at Position) ChangeEvent[T] {
	return ChangeEvent[T]{Type: ChangeDelete, Items: items, At: at}
}

// Update builds an in-place change at at.
func Update[T any](items T, at Position) ChangeEvent[T] {
	return ChangeEvent[T]{Type: ChangeUpdate, Items: items, At: at}
}

// Move builds a relocation from from to to.
func Move[T any](items T, from, to Position) ChangeEvent[T] {
	return ChangeEvent[T]{Type: ChangeMove, Items: items, From: from, To: to}
}

// Failure builds the error variant.
func Failure[T any](err error) ChangeEvent[T] {
	return ChangeEvent[T]{Type: ChangeError, Err: err}
}

// IsError reports whether e is the error variant.
func (e ChangeEvent[T]) IsError() bool {
	return e.Type == ChangeError
}

func (e ChangeEvent[T]) String() string {
	switch e.Type {
	case ChangeInsert, ChangeDelete, ChangeUpdate:
		return fmt.Sprintf("%s at %s", e.Type, e.At)
	case ChangeMove:
		return fmt.Sprintf("move %s -> %s", e.From, e.To)
	case ChangeError:
		return fmt.Sprintf("error: %v", e.Err)
	default:
		return e.Type.String()
	}
}
