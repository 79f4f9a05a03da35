package reactive

import (
	"github.com/syntrixbase/storenotify/internal/notify"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// SaveEvents emits one value per save of src.
func SaveEvents(src notify.Source) *Observable[struct{}] {
	return Create(func(emit func(struct{}), _ func(error)) func() {
		tok := notify.Subscribe(src, func(string, notify.Source) {
			emit(struct{}{})
		})
		return tok.Stop
	})
}

// QueryChanges emits the change events of a live query. The error variant is
// not emitted as a value; it fails the subscription with its cause.
func QueryChanges[T any](provider notify.QueryProvider[T], q model.Query) *Observable[notify.ChangeEvent[[]T]] {
	return Create(func(emit func(notify.ChangeEvent[[]T]), fail func(error)) func() {
		f := notify.SubscribeQuery(provider, q, func(ev notify.ChangeEvent[[]T]) {
			if ev.IsError() {
				fail(ev.Err)
				return
			}
			emit(ev)
		})
		return f.Stop
	})
}
