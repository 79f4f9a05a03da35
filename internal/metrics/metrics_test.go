package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Registration(t *testing.T) {
	assert.NotNil(t, SubscriptionsActive)
	assert.NotNil(t, EventsDelivered)
	assert.NotNil(t, ChangesDropped)
	assert.NotNil(t, SavesTotal)
	assert.NotNil(t, SaveLatency)
	assert.NotNil(t, RelayPublished)

	// Registering again must fail because init() already did it.
	err := prometheus.Register(EventsDelivered)
	var already prometheus.AlreadyRegisteredError
	assert.ErrorAs(t, err, &already)
}

func TestMetrics_Counters(t *testing.T) {
	before := testutil.ToFloat64(EventsDelivered.WithLabelValues("insert"))
	EventsDelivered.WithLabelValues("insert").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(EventsDelivered.WithLabelValues("insert")))

	SubscriptionsActive.WithLabelValues("metrics-test").Inc()
	SubscriptionsActive.WithLabelValues("metrics-test").Dec()
	assert.Equal(t, 0.0, testutil.ToFloat64(SubscriptionsActive.WithLabelValues("metrics-test")))

	SaveLatency.WithLabelValues("test").Observe(0.01)
	RelayPublished.WithLabelValues("memory", "ok").Inc()
}

func TestMetrics_Gather(t *testing.T) {
	ChangesDropped.WithLabelValues(ReasonTranslation).Add(0)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["storenotify_changes_dropped_total"])
}
