package routing

import "time"

// MatchResult is the outcome of routing one message against a Compiled
// Engine: the list of matched streams plus diagnostics (spec.md §4.2's
// match(message) operation).
type MatchResult struct {
	// Streams are the matched streams, in catalogue insertion order
	// (spec.md §4.2's determinism clause).
	Streams []StreamMatch

	// Duration is the total evaluation time for this message.
	Duration time.Duration

	// RulesEvaluated is the total count of rule evaluations performed,
	// across all kinds and all streams.
	RulesEvaluated int

	// FaultCount is the number of rule evaluations that overran the
	// per-rule timeout harness during this call (spec.md §4.6). Zero for
	// Match, which does not run through the harness.
	FaultCount int
}

// StreamMatch pairs a matched stream id with its title, so callers don't
// need a second catalogue lookup just to log or display the result.
type StreamMatch struct {
	StreamID string
	Title    string
}

// Empty reports whether no streams matched.
func (r *MatchResult) Empty() bool {
	return len(r.Streams) == 0
}

// Count returns the number of matched streams.
func (r *MatchResult) Count() int {
	return len(r.Streams)
}

// StreamIDs returns just the matched stream ids, in match order.
func (r *MatchResult) StreamIDs() []string {
	ids := make([]string, len(r.Streams))
	for i, s := range r.Streams {
		ids[i] = s.StreamID
	}
	return ids
}
