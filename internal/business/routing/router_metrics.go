package routing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RouterMetrics tracks per-message routing metrics (spec.md §6's "per
// stream id: incomingMessages meter, executionTimer timer, exceptionMeter
// meter, faultCounter gauge"). Grounded on the teacher's EvaluatorMetrics
// (evaluator_metrics.go): same CounterVec/Histogram shape, namespaced
// "streamrouter_routing_" in place of "alert_history_routing_".
type RouterMetrics struct {
	MessagesRoutedTotal prometheus.Counter
	RouteDuration       prometheus.Histogram
	StreamMatchesTotal  *prometheus.CounterVec
	RulesEvaluatedTotal prometheus.Counter
	FaultsTotal         *prometheus.CounterVec
	QuarantinedGauge    prometheus.Gauge
}

// NewRouterMetrics creates and registers the Router's Prometheus metrics.
func NewRouterMetrics() *RouterMetrics {
	return &RouterMetrics{
		MessagesRoutedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "streamrouter",
			Subsystem: "routing",
			Name:      "messages_routed_total",
			Help:      "Total messages routed through the engine.",
		}),
		RouteDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "streamrouter",
			Subsystem: "routing",
			Name:      "route_duration_seconds",
			Help:      "Time to route a single message.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14),
		}),
		StreamMatchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamrouter",
			Subsystem: "routing",
			Name:      "stream_matches_total",
			Help:      "Total matches per stream id.",
		}, []string{"stream_id"}),
		RulesEvaluatedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "streamrouter",
			Subsystem: "routing",
			Name:      "rules_evaluated_total",
			Help:      "Total rule evaluations across all routed messages.",
		}),
		FaultsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamrouter",
			Subsystem: "routing",
			Name:      "faults_total",
			Help:      "Evaluation faults (timeouts) per stream id.",
		}, []string{"stream_id"}),
		QuarantinedGauge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamrouter",
			Subsystem: "routing",
			Name:      "quarantined_streams",
			Help:      "Number of streams currently quarantined by the fault manager.",
		}),
	}
}

// RecordRoute records one Route call's outcome.
func (m *RouterMetrics) RecordRoute(result *MatchResult) {
	m.MessagesRoutedTotal.Inc()
	m.RouteDuration.Observe(result.Duration.Seconds())
	m.RulesEvaluatedTotal.Add(float64(result.RulesEvaluated))
	for _, s := range result.Streams {
		m.StreamMatchesTotal.WithLabelValues(s.StreamID).Inc()
	}
}

// RecordFault records one evaluation fault for a stream. Nothing in this
// module calls it: evaluation faults go to FaultManager.RegisterFailure
// only, so faults_total stays at zero unless a caller records them here.
func (m *RouterMetrics) RecordFault(streamID string) {
	m.FaultsTotal.WithLabelValues(streamID).Inc()
}

// UpdateQuarantineGauge refreshes the quarantined-stream-count gauge.
func (m *RouterMetrics) UpdateQuarantineGauge(count int) {
	m.QuarantinedGauge.Set(float64(count))
}
