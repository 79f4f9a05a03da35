// Package relay publishes a summary of every store save to a message bus so
// that other processes can follow the store without holding subscriptions.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/syntrixbase/storenotify/internal/core/pubsub"
	"github.com/syntrixbase/storenotify/internal/metrics"
	"github.com/syntrixbase/storenotify/internal/notify"
	"github.com/syntrixbase/storenotify/internal/store"
)

// SubjectSuffix is appended to the store name to form the publish subject.
const SubjectSuffix = "saved"

// ObjectRef identifies one changed object in a Summary.
type ObjectRef struct {
	ID      string `json:"id"`
	Entity  string `json:"entity"`
	Version int64  `json:"version"`
}

// Summary is the message published for one save.
type Summary struct {
	Store     string      `json:"store"`
	Name      string      `json:"name"`
	Inserted  []ObjectRef `json:"inserted"`
	Updated   []ObjectRef `json:"updated"`
	Deleted   []ObjectRef `json:"deleted"`
	Timestamp int64       `json:"timestamp"`
}

// Relay forwards DidSave notifications of the stores it is attached to.
type Relay struct {
	pub      pubsub.Publisher
	provider string
	timeout  time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	tokens []*notify.Token
	closed bool
}

// New creates a relay publishing through a publisher created from p. The
// provider label is used for metrics.
func New(p pubsub.Provider, provider string, cfg Config, logger *slog.Logger) (*Relay, error) {
	if logger == nil {
		logger = slog.Default()
	}
	storage, err := pubsub.ParseStorage(cfg.StreamStorage)
	if err != nil {
		return nil, err
	}
	pub, err := p.NewPublisher(pubsub.PublisherOptions{
		StreamName:    cfg.StreamName,
		Storage:       storage,
		SubjectPrefix: cfg.SubjectPrefix,
		RetryAttempts: 2,
		OnPublish: func(_ string, err error, _ time.Duration) {
			result := "success"
			if err != nil {
				result = "error"
			}
			metrics.RelayPublished.WithLabelValues(provider, result).Inc()
		},
	})
	if err != nil {
		return nil, err
	}
	return &Relay{
		pub:      pub,
		provider: provider,
		timeout:  cfg.Timeout,
		logger:   logger.With("component", "relay", "provider", provider),
		now:      time.Now,
	}, nil
}

// Attach starts relaying the saves of src. The returned token stops relaying
// for that source only.
func (r *Relay) Attach(src notify.Source) *notify.Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		t := notify.NewNotificationToken(nil)
		t.Stop()
		return t
	}
	t := notify.SubscribeNotifications(src, r.handle)
	r.tokens = append(r.tokens, t)
	return t
}

func (r *Relay) handle(n notify.Notification) {
	info, ok := n.Info.(store.SaveInfo)
	if !ok {
		r.logger.Debug("Ignoring notification without save info", "name", n.Name)
		return
	}

	data, err := json.Marshal(r.summarize(n.Name, info))
	if err != nil {
		r.logger.Error("Failed to marshal save summary", "store", info.Store, "error", err)
		return
	}

	ctx := context.Background()
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	subject := info.Store + "." + SubjectSuffix
	if err := r.pub.Publish(ctx, subject, data); err != nil {
		r.logger.Warn("Failed to publish save summary", "subject", subject, "error", err)
		return
	}
	r.logger.Debug("Published save summary", "subject", subject, "changes", info.Len())
}

func (r *Relay) summarize(name string, info store.SaveInfo) Summary {
	return Summary{
		Store:     info.Store,
		Name:      name,
		Inserted:  refs(info.Inserted),
		Updated:   refs(info.Updated),
		Deleted:   refs(info.Deleted),
		Timestamp: r.now().UnixMilli(),
	}
}

func refs(objs []*store.Object) []ObjectRef {
	out := make([]ObjectRef, 0, len(objs))
	for _, o := range objs {
		out = append(out, ObjectRef{ID: o.ID, Entity: o.Entity, Version: o.Version})
	}
	return out
}

// Close stops every attached token and closes the publisher.
func (r *Relay) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	tokens := r.tokens
	r.tokens = nil
	r.mu.Unlock()

	for _, t := range tokens {
		t.Stop()
	}
	return r.pub.Close()
}
