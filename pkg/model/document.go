package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	idRegex     = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]{1,64}$`)
	entityRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,63}$`)
)

// CheckObjectID reports whether id is usable as an object identifier.
func CheckObjectID(id string) bool {
	return idRegex.MatchString(id)
}

// CheckEntity reports whether name is usable as an entity name.
func CheckEntity(name string) bool {
	return entityRegex.MatchString(name)
}

// NewObjectID returns a fresh random object identifier.
func NewObjectID() string {
	return uuid.New().String()
}

// Document holds the user fields of a stored object.
//
//	Keys are field names; nested maps are addressed with dotted paths.
//	"id" is reserved and never stored as a field.
type Document map[string]interface{}

// Clone returns a deep copy of the document. Nested maps and slices are
// copied so the result shares no mutable state with doc.
func (doc Document) Clone() Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return map[string]interface{}(Document(val).Clone())
	case Document:
		return val.Clone()
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

// Merge returns a copy of doc with every key of patch applied on top.
// A nil value in patch removes the key.
func (doc Document) Merge(patch Document) Document {
	out := doc.Clone()
	if out == nil {
		out = Document{}
	}
	for k, v := range patch {
		if v == nil {
			delete(out, k)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// Lookup resolves a dotted field path.
func (doc Document) Lookup(path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(doc)
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case Document:
		return m, true
	default:
		return nil, false
	}
}

func (doc Document) HasKey(key string) bool {
	_, exists := doc[key]
	return exists
}

// Validate rejects documents that cannot be stored.
func (doc Document) Validate() error {
	if doc == nil {
		return errors.New("fields cannot be nil")
	}
	if doc.HasKey("id") {
		return errors.New("field 'id' is reserved")
	}
	for k := range doc {
		if k == "" {
			return errors.New("field name cannot be empty")
		}
		if strings.Contains(k, ".") {
			return fmt.Errorf("invalid field name %q: must not contain '.'", k)
		}
	}
	return nil
}
