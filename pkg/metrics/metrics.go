// Package metrics holds the prometheus collectors for turns, routing,
// retrieval and event publishing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tabletalk"

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	turns          *prometheus.CounterVec
	turnFailures   *prometheus.CounterVec
	routerParse    *prometheus.CounterVec
	retrievalHits  prometheus.Histogram
	turnDuration   *prometheus.HistogramVec
	events         *prometheus.CounterVec
	indexAvailable prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer to
// expose them on the default /metrics handler.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by the handler route that answered them.",
		}, []string{"route"}),

		turnFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_failures_total",
			Help:      "Failed turns by the stage that failed.",
		}, []string{"stage"}),

		routerParse: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "router_parse_total",
			Help:      "Classifier outputs by the parse tier that accepted them.",
		}, []string{"tier"}),

		retrievalHits: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_hits",
			Help:      "Evidence hits retained per grounded turn.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),

		turnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End to end turn latency.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"route"}),

		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_events_total",
			Help:      "Turn events by publish outcome.",
		}, []string{"outcome"}),

		indexAvailable: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "evidence_index_available",
			Help:      "1 when an evidence index is loaded.",
		}),
	}
}

// ObserveTurn records a completed turn.
func (m *Metrics) ObserveTurn(route string, d time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(route).Inc()
	m.turnDuration.WithLabelValues(route).Observe(d.Seconds())
}

// TurnFailed records a turn that failed in stage.
func (m *Metrics) TurnFailed(stage string) {
	if m == nil {
		return
	}
	m.turnFailures.WithLabelValues(stage).Inc()
}

// RouterParsed records the tier that parsed a classifier output.
func (m *Metrics) RouterParsed(tier string) {
	if m == nil {
		return
	}
	m.routerParse.WithLabelValues(tier).Inc()
}

// RetrievalHits records how many hits a grounded turn kept.
func (m *Metrics) RetrievalHits(n int) {
	if m == nil {
		return
	}
	m.retrievalHits.Observe(float64(n))
}

// Event outcomes.
const (
	EventPublished = "published"
	EventFailed    = "failed"
	EventDropped   = "dropped"
)

// TurnEvent records a publish outcome.
func (m *Metrics) TurnEvent(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

// SetIndexAvailable tracks whether the evidence index is loaded.
func (m *Metrics) SetIndexAvailable(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.indexAvailable.Set(1)
	} else {
		m.indexAvailable.Set(0)
	}
}
