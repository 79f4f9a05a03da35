package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Subscriptions
	SubscriptionsActive = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "storenotify_subscriptions_active",
		Help: "The number of live subscriptions",
	}, []string{"kind"})

	// Delivery
	EventsDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storenotify_events_delivered_total",
		Help: "The total number of events delivered to subscribers",
	}, []string{"type"})

	ChangesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storenotify_changes_dropped_total",
		Help: "The total number of reported changes that were not delivered",
	}, []string{"reason"})

	// Store
	SavesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storenotify_saves_total",
		Help: "The total number of store saves",
	}, []string{"store", "result"})

	SaveLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "storenotify_save_latency_seconds",
		Help: "The latency of store saves including dispatch",
	}, []string{"store"})

	// Relay
	RelayPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storenotify_relay_published_total",
		Help: "The total number of save summaries published",
	}, []string{"provider", "result"})
)

// Subscription kinds.
const (
	KindSave  = "save"
	KindQuery = "query"
)

// Drop reasons.
const (
	ReasonTranslation = "translation"
	ReasonPayload     = "payload"
)

func init() {
	prometheus.MustRegister(SubscriptionsActive)
	prometheus.MustRegister(EventsDelivered)
	prometheus.MustRegister(ChangesDropped)
	prometheus.MustRegister(SavesTotal)
	prometheus.MustRegister(SaveLatency)
	prometheus.MustRegister(RelayPublished)
}
