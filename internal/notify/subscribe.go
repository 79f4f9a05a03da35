package notify

import (
	"github.com/syntrixbase/storenotify/internal/metrics"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// Subscribe registers fn as a save observer of src and returns its token.
func Subscribe(src Source, fn NotificationFunc) *Token {
	t := NewToken(fn)
	t.track(metrics.KindSave)
	t.Register(src)
	return t
}

// SubscribeNotifications is Subscribe for callbacks that need the raw
// notification payload.
func SubscribeNotifications(src Source, fn func(Notification)) *Token {
	t := NewNotificationToken(fn)
	t.track(metrics.KindSave)
	t.Register(src)
	return t
}

// SubscribeQuery starts a live query and reports its changes to fn.
func SubscribeQuery[T any](provider QueryProvider[T], q model.Query, fn func(ChangeEvent[[]T])) *FetchNotification[T] {
	f := NewFetchNotification(provider, q, fn)
	if f.Err() == nil {
		f.track(metrics.KindQuery)
	}
	return f
}
