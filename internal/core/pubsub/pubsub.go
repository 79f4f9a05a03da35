// Package pubsub is the message bus abstraction the save relay publishes
// through. Implementations live in the memory and nats subpackages.
package pubsub

import (
	"context"
	"io"
	"time"
)

// Publisher sends messages to subjects.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Close() error
}

// Provider is one message bus.
type Provider interface {
	io.Closer
	NewPublisher(opts PublisherOptions) (Publisher, error)
}

// Connectable providers must Connect before NewPublisher.
type Connectable interface {
	Connect(ctx context.Context) error
}

// ConsumerProvider is implemented by providers that can also deliver
// messages back to the same process.
type ConsumerProvider interface {
	NewConsumer(opts ConsumerOptions) (Consumer, error)
}

// Message is one delivered message.
type Message interface {
	Data() []byte
	Subject() string
	Timestamp() time.Time
}

// Consumer delivers the messages matching its filter.
type Consumer interface {
	// Subscribe returns a channel that is closed when ctx is done or the
	// provider closes.
	Subscribe(ctx context.Context) (<-chan Message, error)
}
