package store

import (
	"github.com/syntrixbase/storenotify/internal/notify"
	"github.com/syntrixbase/storenotify/internal/reactive"
	"github.com/syntrixbase/storenotify/pkg/model"
)

// AddObserver registers t for save notifications. The context holds t weakly.
func (c *Context) AddObserver(t *notify.Token) {
	c.observers.add(t.ID(), t)
}

// RemoveObserver drops the registration with id.
func (c *Context) RemoveObserver(id string) {
	c.observers.remove(id)
}

// ObserverCount returns the number of registered save observers.
func (c *Context) ObserverCount() int {
	return c.observers.len()
}

// LiveQueryCount returns the number of live queries with a delegate.
func (c *Context) LiveQueryCount() int {
	return c.queries.len()
}

// Subscribe calls fn after every successful save until the token is stopped.
func (c *Context) Subscribe(fn notify.NotificationFunc) *notify.Token {
	return notify.Subscribe(c, fn)
}

// SubscribeSaves is Subscribe with the save summary.
func (c *Context) SubscribeSaves(fn func(SaveInfo)) *notify.Token {
	return notify.SubscribeNotifications(c, func(n notify.Notification) {
		if info, ok := n.Info.(SaveInfo); ok {
			fn(info)
		}
	})
}

// SubscribeQuery reports the changes of q's results to fn, starting with the
// initial results.
func (c *Context) SubscribeQuery(q model.Query, fn func(notify.ChangeEvent[[]*Object])) *notify.FetchNotification[*Object] {
	return notify.SubscribeQuery[*Object](c, q, fn)
}

// Observe emits once per successful save.
func (c *Context) Observe() *reactive.Observable[struct{}] {
	return reactive.SaveEvents(c)
}

// ObserveQuery emits the change events of q; a failed query fails the
// subscription.
func (c *Context) ObserveQuery(q model.Query) *reactive.Observable[notify.ChangeEvent[[]*Object]] {
	return reactive.QueryChanges[*Object](c, q)
}
