// Package observability holds the logger and prometheus metrics shared by
// the composer, the reload queue and the hot transport.
package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	compositions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hxview",
			Subsystem: "composer",
			Name:      "documents_total",
			Help:      "Composed documents by response status.",
		},
		[]string{"status"},
	)
	compositionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hxview",
			Subsystem: "composer",
			Name:      "duration_seconds",
			Help:      "Time spent composing a document.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	hotUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hxview",
			Subsystem: "hot",
			Name:      "updates_total",
			Help:      "Hot script imports by result.",
		},
		[]string{"result"},
	)
	fullReloads = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hxview",
			Subsystem: "hot",
			Name:      "reloads_total",
			Help:      "Full client reloads requested.",
		},
	)
	hotPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hxview",
			Subsystem: "broker",
			Name:      "published_total",
			Help:      "Payloads published by channel.",
		},
		[]string{"channel"},
	)
	hotDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "hxview",
			Subsystem: "broker",
			Name:      "dropped_total",
			Help:      "Payloads dropped for slow subscribers.",
		},
	)
	hotSubscribers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "hxview",
			Subsystem: "broker",
			Name:      "subscribers",
			Help:      "Connected hot streams.",
		},
	)
)

// RegisterMetrics registers every collector with the default registry.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			compositions,
			compositionDuration,
			hotUpdates,
			fullReloads,
			hotPublished,
			hotDropped,
			hotSubscribers,
		)
	})
}

func RecordComposition(status int, duration time.Duration) {
	code := strconv.Itoa(status)
	compositions.WithLabelValues(code).Inc()
	compositionDuration.WithLabelValues(code).Observe(duration.Seconds())
}

func RecordHotUpdate(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	hotUpdates.WithLabelValues(result).Inc()
}

func RecordFullReload() {
	fullReloads.Inc()
}

func RecordPublished(channel string) {
	hotPublished.WithLabelValues(channel).Inc()
}

func RecordDropped() {
	hotDropped.Inc()
}

func SubscriberConnected() {
	hotSubscribers.Inc()
}

func SubscriberDisconnected() {
	hotSubscribers.Dec()
}
