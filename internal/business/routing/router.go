package routing

import (
	"context"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// RecordingStrategy controls when Router.Route captures per-message
// timing/counter recordings onto the routed Message (spec.md §3's
// "optional recordings buffer", §6's detailedMessageRecordingStrategy).
type RecordingStrategy string

const (
	// RecordingNever never records.
	RecordingNever RecordingStrategy = "never"

	// RecordingOnError records only when at least one rule evaluation
	// faulted (timed out) while routing this message — the case the
	// recordings buffer exists to diagnose. Default.
	RecordingOnError RecordingStrategy = "on_error"

	// RecordingAlways records for every message, regardless of outcome.
	RecordingAlways RecordingStrategy = "always"
)

// ParseRecordingStrategy maps a config string to a RecordingStrategy,
// falling back to RecordingOnError for an empty or unrecognized value.
func ParseRecordingStrategy(s string) RecordingStrategy {
	switch RecordingStrategy(s) {
	case RecordingNever:
		return RecordingNever
	case RecordingAlways:
		return RecordingAlways
	default:
		return RecordingOnError
	}
}

// RouterOptions controls Router behavior. Grounded on the teacher's
// EvaluatorOptions (evaluator.go).
type RouterOptions struct {
	// EnableMetrics registers and updates Prometheus metrics (default true).
	EnableMetrics bool

	// RecordingStrategy controls when Route captures per-message
	// recordings (default RecordingOnError).
	RecordingStrategy RecordingStrategy
}

// DefaultRouterOptions returns the default options: metrics enabled,
// recordings captured only on evaluation faults.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{EnableMetrics: true, RecordingStrategy: RecordingOnError}
}

// Router is the public entry point of spec.md §4.4: route(message) →
// [Stream]. It is stateless between calls apart from (a) the current
// engine pointer held by EngineManager, (b) per-stream fault counters
// held by FaultManager, (c) the metric registry — so it is safe to
// invoke from many goroutines concurrently. Grounded on the teacher's
// RouteEvaluator (evaluator.go): a thin, mostly-stateless wrapper that
// snapshots shared state once per call and records metrics around a
// single matching call.
type Router struct {
	engines   *EngineManager
	faults    *FaultManager
	harness   *TimeoutHarness
	metrics   *RouterMetrics
	recording RecordingStrategy
}

// NewRouter creates a Router. harness and faults must not be nil; pass
// NewFaultManager(0) and NewTimeoutHarness(0, 0) for spec.md defaults.
func NewRouter(engines *EngineManager, faults *FaultManager, harness *TimeoutHarness, opts RouterOptions) *Router {
	r := &Router{
		engines:   engines,
		faults:    faults,
		harness:   harness,
		recording: opts.RecordingStrategy,
	}
	if r.recording == "" {
		r.recording = RecordingOnError
	}
	if opts.EnableMetrics {
		r.metrics = NewRouterMetrics()
	}
	return r
}

// Route implements spec.md §4.4's algorithm:
//  1. Snapshot the current engine pointer once.
//  2. Delegate to engine.match(message), each rule wrapped in the
//     per-rule timeout harness.
//  3. Record per-message metrics, and per-message recordings onto msg
//     itself per the configured RecordingStrategy.
//  4. Return the list of matched streams.
func (r *Router) Route(ctx context.Context, msg *domain.Message) (*MatchResult, error) {
	if msg == nil {
		return nil, ErrNilMessage
	}

	engine := r.engines.Current()
	result := engine.MatchWithHarness(ctx, msg, r.harness, r.faults)

	if r.metrics != nil {
		r.metrics.RecordRoute(result)
		r.metrics.UpdateQuarantineGauge(len(r.faults.Quarantined()))
	}

	r.recordOnto(msg, result)

	return result, nil
}

// recordOnto captures this call's timing/counters onto msg's recordings
// buffer when the configured RecordingStrategy calls for it.
func (r *Router) recordOnto(msg *domain.Message, result *MatchResult) {
	switch r.recording {
	case RecordingNever:
		return
	case RecordingAlways:
	default: // RecordingOnError
		if result.FaultCount == 0 {
			return
		}
	}

	msg.RecordDuration("route_duration", result.Duration)
	msg.RecordCount("rules_evaluated", int64(result.RulesEvaluated))
	msg.RecordCount("streams_matched", int64(result.Count()))
	msg.RecordCount("faults", int64(result.FaultCount))
}

// TestMatch exposes the Compiled Engine's diagnostic operation directly
// (spec.md §4.2's testMatch), bypassing the timeout harness and fault
// manager since it is not on the hot routing path.
func (r *Router) TestMatch(msg *domain.Message) []StreamOutcome {
	return r.engines.Current().TestMatch(msg)
}

// Faults exposes the Router's FaultManager, for callers that inspect or
// clear quarantine state. The admin HTTP surface has no route for it.
func (r *Router) Faults() *FaultManager {
	return r.faults
}

// Metrics exposes the Router's metrics, or nil if metrics are disabled.
func (r *Router) Metrics() *RouterMetrics {
	return r.metrics
}
