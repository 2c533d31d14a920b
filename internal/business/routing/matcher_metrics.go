package routing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// EngineMetrics tracks Prometheus metrics for the Compiled Engine itself
// (builds, not per-message routing — see RouterMetrics for that). All
// metrics are namespaced "streamrouter_engine_", mirroring the teacher's
// "alert_history_routing_" convention in matcher_metrics.go.
type EngineMetrics struct {
	BuildsTotal       prometheus.Counter
	BuildDuration     prometheus.Histogram
	CurrentRuleCount  prometheus.Gauge
	RegexCacheHits    prometheus.Gauge
	RegexCacheMisses  prometheus.Gauge
	RegexCacheSize    prometheus.Gauge
	RulesDroppedTotal *prometheus.CounterVec
}

// NewEngineMetrics creates and registers the engine-build metrics.
func NewEngineMetrics() *EngineMetrics {
	return &EngineMetrics{
		BuildsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "streamrouter",
			Subsystem: "engine",
			Name:      "builds_total",
			Help:      "Total number of Compiled Engine builds attempted.",
		}),
		BuildDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "streamrouter",
			Subsystem: "engine",
			Name:      "build_duration_seconds",
			Help:      "Time to build a Compiled Engine from a catalogue snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		CurrentRuleCount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamrouter",
			Subsystem: "engine",
			Name:      "current_rule_count",
			Help:      "Number of rules indexed by the currently active engine.",
		}),
		RegexCacheHits: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamrouter",
			Subsystem: "engine",
			Name:      "regex_cache_hits",
			Help:      "Cumulative regex cache hits, as last observed.",
		}),
		RegexCacheMisses: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamrouter",
			Subsystem: "engine",
			Name:      "regex_cache_misses",
			Help:      "Cumulative regex cache misses, as last observed.",
		}),
		RegexCacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamrouter",
			Subsystem: "engine",
			Name:      "regex_cache_size",
			Help:      "Current number of compiled regex patterns cached.",
		}),
		RulesDroppedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "streamrouter",
			Subsystem: "engine",
			Name:      "rules_dropped_total",
			Help:      "Rules dropped at build time, by reason.",
		}, []string{"reason"}),
	}
}

// RecordBuild records one engine build attempt's duration and rule count.
func (m *EngineMetrics) RecordBuild(duration time.Duration, ruleCount int) {
	m.BuildsTotal.Inc()
	m.BuildDuration.Observe(duration.Seconds())
	m.CurrentRuleCount.Set(float64(ruleCount))
}

// RecordDroppedRule increments the dropped-rule counter for a reason
// (e.g. "invalid_kind", "regex_compile").
func (m *EngineMetrics) RecordDroppedRule(reason string) {
	m.RulesDroppedTotal.WithLabelValues(reason).Inc()
}

// UpdateCacheStats refreshes the gauge/counters from a RegexCache snapshot.
func (m *EngineMetrics) UpdateCacheStats(stats CacheStats) {
	m.RegexCacheSize.Set(float64(stats.Size))
	m.RegexCacheHits.Set(float64(stats.Hits))
	m.RegexCacheMisses.Set(float64(stats.Misses))
}
