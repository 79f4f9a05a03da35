package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/syntrixbase/storenotify/internal/core/pubsub"
)

// SummaryFunc receives decoded save summaries.
type SummaryFunc func(subject string, s Summary)

// FilterSubject returns the consumer pattern matching every save summary
// published with the given prefix.
func FilterSubject(prefix string) string {
	return pubsub.FullSubject(prefix, "*."+SubjectSuffix)
}

// Decode parses a save summary.
func Decode(data []byte) (Summary, error) {
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("invalid save summary: %w", err)
	}
	if s.Store == "" {
		return Summary{}, fmt.Errorf("invalid save summary: missing store")
	}
	return s, nil
}

// Listen consumes save summaries until ctx is done or the consumer's channel
// closes. Messages that do not decode are skipped.
func Listen(ctx context.Context, c pubsub.Consumer, logger *slog.Logger, fn SummaryFunc) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "relay-listener")

	msgs, err := c.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to save summaries: %w", err)
	}
	for msg := range msgs {
		if !strings.HasSuffix(msg.Subject(), "."+SubjectSuffix) {
			continue
		}
		s, err := Decode(msg.Data())
		if err != nil {
			logger.Warn("Skipping save summary", "subject", msg.Subject(), "error", err)
			continue
		}
		fn(msg.Subject(), s)
	}
	return nil
}
