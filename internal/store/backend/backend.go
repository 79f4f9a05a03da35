// Package backend defines the persistence interface behind a store context.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/syntrixbase/storenotify/pkg/model"
)

// ErrClosed is returned by a backend after Close.
var ErrClosed = errors.New("backend closed")

// Record is the persisted form of one object.
type Record struct {
	// ID is the object identifier
	ID string `json:"id" bson:"_id"`

	// Entity is the object's entity name
	Entity string `json:"entity" bson:"entity"`

	// Fields is the user data
	Fields model.Document `json:"fields" bson:"fields"`

	// Version increments on every committed update
	Version int64 `json:"version" bson:"version"`

	// CreatedAt is the creation timestamp (Unix milliseconds)
	CreatedAt int64 `json:"createdAt" bson:"created_at"`

	// UpdatedAt is the timestamp of the last update (Unix milliseconds)
	UpdatedAt int64 `json:"updatedAt" bson:"updated_at"`
}

// Op is the kind of a mutation.
type Op int

const (
	OpInsert Op = iota + 1
	OpUpdate
	OpDelete
)

func (o Op) String() string {
	switch o {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(o))
	}
}

// Mutation is one staged change of a save. For OpDelete only Record.ID and
// Record.Entity are meaningful.
type Mutation struct {
	Op     Op
	Record Record
}

// Backend persists the objects of a store context.
type Backend interface {
	// Load returns every record of entity in insertion order.
	Load(ctx context.Context, entity string) ([]Record, error)

	// Commit applies all mutations or none of them. Inserting an existing ID
	// fails with model.ErrExists; updating or deleting a missing one fails
	// with model.ErrNotFound.
	Commit(ctx context.Context, muts []Mutation) error

	// Close releases the backend.
	Close(ctx context.Context) error
}
