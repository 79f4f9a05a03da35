package store

import (
	"github.com/syntrixbase/storenotify/internal/store/backend"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// Object is an immutable snapshot of one stored object. Every committed change
// produces a new *Object, so lists handed to subscribers never change under
// them. Callers must not modify Fields.
type Object struct {
	ID        string         `json:"id"`
	Entity    string         `json:"entity"`
	Fields    model.Document `json:"fields"`
	Version   int64          `json:"version"`
	CreatedAt int64          `json:"createdAt"`
	UpdatedAt int64          `json:"updatedAt"`

	// seq is the insertion sequence used to break sort ties.
	seq uint64
}

// Field resolves a dotted field path.
func (o *Object) Field(path string) (interface{}, bool) {
	return o.Fields.Lookup(path)
}

func (o *Object) String() string {
	return o.Entity + "/" + o.ID
}

func (o *Object) record() backend.Record {
	return backend.Record{
		ID:        o.ID,
		Entity:    o.Entity,
		Fields:    o.Fields,
		Version:   o.Version,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func objectFromRecord(r backend.Record, seq uint64) *Object {
	fields := r.Fields
	if fields == nil {
		fields = model.Document{}
	}
	return &Object{
		ID:        r.ID,
		Entity:    r.Entity,
		Fields:    fields,
		Version:   r.Version,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		seq:       seq,
	}
}

// SaveInfo describes one successful save. It is the Info payload of every
// DidSaveNotification a Context posts.
type SaveInfo struct {
	Store    string
	Inserted []*Object
	Updated  []*Object
	Deleted  []*Object
}

// Len returns the number of changed objects.
func (s SaveInfo) Len() int {
	return len(s.Inserted) + len(s.Updated) + len(s.Deleted)
}

// IDs returns the identifiers of objs in order.
func IDs(objs []*Object) []string {
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.ID)
	}
	return out
}
