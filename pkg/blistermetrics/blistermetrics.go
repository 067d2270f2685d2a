// Package blistermetrics exposes blister's Prometheus metrics,
// grounded on the teacher's pkg/metrics: package-level collectors
// registered in init, plus a Timer helper for histogram observations.
package blistermetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsPersisted counts every event durably written to the log.
	EventsPersisted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blister_events_persisted_total",
			Help: "Total number of events persisted to the event log",
		},
	)

	// CommandsTotal counts dispatcher submissions by command name and
	// outcome ("accepted", "rejected", or "error" when the emit fails).
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blister_commands_total",
			Help: "Total number of commands submitted, by command and outcome",
		},
		[]string{"command", "outcome"},
	)

	// QueryDuration observes how long a query handler took to answer
	// a query, by query name.
	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blister_query_duration_seconds",
			Help:    "Query handling duration in seconds, by query",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// SubscriberLag counts event-bus subscriptions torn down for
	// falling behind their channel bound.
	SubscriberLag = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blister_subscriber_lag_total",
			Help: "Total number of event-bus subscriptions torn down for lagging",
		},
	)

	// WriteModelApplyDuration observes how long the write model took
	// to apply one event.
	WriteModelApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blister_write_model_apply_duration_seconds",
			Help:    "Time taken by the write model to apply one event, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ReadModelApplyDuration observes how long the read model took to
	// apply one event.
	ReadModelApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "blister_read_model_apply_duration_seconds",
			Help:    "Time taken by the read model to apply one event, in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(EventsPersisted)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(SubscriberLag)
	prometheus.MustRegister(WriteModelApplyDuration)
	prometheus.MustRegister(ReadModelApplyDuration)
}

// Handler returns the Prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer times an in-flight operation for later histogram observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the elapsed time to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}
