package pubsub

import (
	"fmt"
	"time"
)

// StorageType selects where a stream keeps its messages.
type StorageType string

const (
	StorageMemory StorageType = "memory"
	StorageFile   StorageType = "file"
)

// ParseStorage maps a config value to a StorageType. Empty means memory.
func ParseStorage(s string) (StorageType, error) {
	switch StorageType(s) {
	case "", StorageMemory:
		return StorageMemory, nil
	case StorageFile:
		return StorageFile, nil
	default:
		return "", fmt.Errorf("unknown stream storage %q", s)
	}
}

// PublisherOptions configures a publisher.
type PublisherOptions struct {
	// StreamName is the persistent stream to publish into. Empty publishes
	// fire-and-forget without a stream.
	StreamName string

	// SubjectPrefix is prepended to every subject.
	SubjectPrefix string

	// RetryAttempts bounds retries of stream publishes.
	RetryAttempts int

	Storage StorageType

	// OnPublish is called after each publish attempt with the full subject.
	OnPublish func(subject string, err error, latency time.Duration)
}

// ConsumerOptions configures a consumer.
type ConsumerOptions struct {
	// FilterSubject is a subject pattern: "*" matches one token and a
	// trailing ">" one or more.
	FilterSubject string

	ChannelBufSize int
}

// DefaultConsumerOptions matches every subject with a buffer of 100.
func DefaultConsumerOptions() ConsumerOptions {
	return ConsumerOptions{
		FilterSubject:  ">",
		ChannelBufSize: 100,
	}
}

// FullSubject joins prefix and subject with a dot.
func FullSubject(prefix, subject string) string {
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}
