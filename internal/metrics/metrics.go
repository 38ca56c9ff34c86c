// Package metrics exposes Prometheus counters for the collection store.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Write results.
const (
	ResultOK     = "ok"
	ResultNoop   = "noop"
	ResultFailed = "failed"
)

var (
	// collectionWrites counts collection mutations.
	// Labels: op (create, update, delete, rating, status, filters, sort), result (ok, noop, failed)
	collectionWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookly",
		Subsystem: "collection",
		Name:      "writes_total",
		Help:      "Collection and overlay mutations by operation and result",
	}, []string{"op", "result"})

	// busEvents counts published change notifications.
	// Labels: type
	busEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookly",
		Subsystem: "bus",
		Name:      "events_total",
		Help:      "Change notifications published on the bus",
	}, []string{"type"})

	// normalizerDropped counts records discarded while loading untrusted data.
	// Labels: source (userBooks, ratings, statuses, seed)
	normalizerDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bookly",
		Subsystem: "normalizer",
		Name:      "dropped_total",
		Help:      "Persisted records dropped by the normalizer",
	}, []string{"source"})

	// subscriberPanics counts recovered panics in bus subscribers.
	subscriberPanics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "bookly",
		Subsystem: "bus",
		Name:      "subscriber_panics_total",
		Help:      "Panics recovered while delivering notifications",
	})
)

// RecordWrite records the outcome of a mutation.
func RecordWrite(op, result string) {
	collectionWrites.WithLabelValues(op, result).Inc()
}

// RecordEvent records a published notification.
func RecordEvent(eventType string) {
	busEvents.WithLabelValues(eventType).Inc()
}

// RecordDropped records n discarded records from source.
func RecordDropped(source string, n int) {
	if n <= 0 {
		return
	}
	normalizerDropped.WithLabelValues(source).Add(float64(n))
}

// RecordSubscriberPanic records a recovered subscriber panic.
func RecordSubscriberPanic() {
	subscriberPanics.Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
