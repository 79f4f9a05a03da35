package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/syntrixbase/storenotify/internal/core/pubsub"
)

// defaultFlushTimeout bounds the flush when the caller's context has no
// deadline.
const defaultFlushTimeout = 5 * time.Second

// corePublisher publishes with core NATS: fire-and-forget, flushed per
// message so errors surface to the caller.
type corePublisher struct {
	nc   natsConnection
	opts pubsub.PublisherOptions
}

// Publish sends a message to the specified subject.
func (p *corePublisher) Publish(ctx context.Context, subject string, data []byte) error {
	start := time.Now()
	fullSubject := pubsub.FullSubject(p.opts.SubjectPrefix, subject)

	err := p.nc.Publish(fullSubject, data)
	if err == nil {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
			defer cancel()
		}
		err = p.nc.FlushWithContext(ctx)
	}

	if p.opts.OnPublish != nil {
		p.opts.OnPublish(fullSubject, err, time.Since(start))
	}

	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", fullSubject, err)
	}
	return nil
}

// Close releases resources. The connection belongs to the provider.
func (p *corePublisher) Close() error {
	return nil
}

// streamPublisher implements pubsub.Publisher using NATS JetStream.
type streamPublisher struct {
	js   JetStream
	opts pubsub.PublisherOptions
}

// NewStreamPublisher creates a JetStream publisher and makes sure its stream
// exists.
func NewStreamPublisher(js JetStream, opts pubsub.PublisherOptions) (pubsub.Publisher, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream cannot be nil")
	}

	subjects := []string{opts.StreamName + ".>"}
	if opts.SubjectPrefix != "" && opts.SubjectPrefix != opts.StreamName {
		subjects = []string{opts.SubjectPrefix + ".>"}
	}

	storage := jetstream.MemoryStorage
	if opts.Storage == pubsub.StorageFile {
		storage = jetstream.FileStorage
	}

	_, err := js.CreateOrUpdateStream(context.Background(), jetstream.StreamConfig{
		Name:     opts.StreamName,
		Subjects: subjects,
		Storage:  storage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	return &streamPublisher{js: js, opts: opts}, nil
}

// Publish sends a message to the specified subject.
func (p *streamPublisher) Publish(ctx context.Context, subject string, data []byte) error {
	start := time.Now()
	fullSubject := pubsub.FullSubject(p.opts.SubjectPrefix, subject)

	var publishOpts []jetstream.PublishOpt
	if p.opts.RetryAttempts > 0 {
		publishOpts = append(publishOpts, jetstream.WithRetryAttempts(p.opts.RetryAttempts))
	}

	_, err := p.js.Publish(ctx, fullSubject, data, publishOpts...)

	if p.opts.OnPublish != nil {
		p.opts.OnPublish(fullSubject, err, time.Since(start))
	}

	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", fullSubject, err)
	}
	return nil
}

// Close releases resources.
func (p *streamPublisher) Close() error {
	return nil
}
