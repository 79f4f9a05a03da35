package notify

import (
	"github.com/syntrixbase/storenotify/pkg/model"
)

// DidSaveNotification is posted by a store after every successful save.
const DidSaveNotification = "StoreDidSave"

// Notification is one event posted by a Source to its observers.
type Notification struct {
	// Name identifies the event, e.g. DidSaveNotification.
	Name string
	// Object is the posting source.
	Object any
	// Info is an optional source-specific payload.
	Info any
}

// Source is a store that posts notifications to registered tokens.
//
// A Source must not keep tokens alive: registrations are dropped when the
// token is stopped or becomes unreachable.
type Source interface {
	AddObserver(t *Token)
	RemoveObserver(id string)
}

// ChangeKind is the kind of an atomic change reported by a live query.
type ChangeKind int

const (
	KindInsert ChangeKind = iota + 1
	KindDelete
	KindUpdate
	KindMove
)

func (k ChangeKind) String() string {
	switch k {
	case KindInsert:
		return "insert"
	case KindDelete:
		return "delete"
	case KindUpdate:
		return "update"
	case KindMove:
		return "move"
	default:
		return "unknown"
	}
}

// ChangeFunc receives the atomic changes of a live query, one call per change.
// oldPos is the position before the change (delete, update, move source),
// newPos the position after it (insert, move destination).
type ChangeFunc func(kind ChangeKind, oldPos, newPos *Position)

// LiveQuery is a standing query maintained by a store.
type LiveQuery[T any] interface {
	// SetDelegate installs fn as the single change receiver; nil clears it.
	SetDelegate(fn ChangeFunc)

	// PerformFetch evaluates the query now. Changes are reported to the
	// delegate only after a successful fetch.
	PerformFetch() error

	// FetchedObjects returns the current ordered results. The slice must
	// not alias the query's own state.
	FetchedObjects() []T
}

// QueryProvider creates live queries. It fails when the query definition is
// rejected.
type QueryProvider[T any] interface {
	LiveQuery(q model.Query) (LiveQuery[T], error)
}
