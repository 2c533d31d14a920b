package domain

// RuleKind enumerates the stream rule kinds supported by the engine
// (spec.md §3). Iteration order in the Compiled Engine follows the order
// these constants are declared, which is also the "cheaper kinds first"
// evaluation order from spec.md §4.2.
type RuleKind int

const (
	// RulePresence matches when a field exists and is non-empty.
	RulePresence RuleKind = iota
	// RuleExact matches when a field's string form equals the rule value.
	RuleExact
	// RuleGreater matches when a field's numeric value exceeds the rule value.
	RuleGreater
	// RuleSmaller matches when a field's numeric value is below the rule value.
	RuleSmaller
	// RuleRegex matches when a field's string form contains a regex match.
	RuleRegex
)

// String renders a RuleKind for logs and metrics labels.
func (k RuleKind) String() string {
	switch k {
	case RulePresence:
		return "presence"
	case RuleExact:
		return "exact"
	case RuleGreater:
		return "greater"
	case RuleSmaller:
		return "smaller"
	case RuleRegex:
		return "regex"
	default:
		return "unknown"
	}
}

// allRuleKinds is the fixed evaluation order used throughout the engine.
var allRuleKinds = [...]RuleKind{RulePresence, RuleExact, RuleGreater, RuleSmaller, RuleRegex}

// AllRuleKinds returns the rule kinds in their canonical evaluation order.
func AllRuleKinds() []RuleKind {
	out := make([]RuleKind, len(allRuleKinds))
	copy(out, allRuleKinds[:])
	return out
}

// StreamRule is one predicate on one field, tagged by kind (spec.md §3).
// For Presence the Value is ignored. For Greater/Smaller, Value is parsed
// as a decimal number each time the rule is evaluated. For Regex, Value is
// compiled once at engine build time.
type StreamRule struct {
	ID        string
	StreamID  string
	Kind      RuleKind
	Field     string
	Value     string
	Inverted  bool
}

// Stream is a logical subscription defined by a conjunction of stream
// rules (spec.md §3). A stream with zero rules never matches any message.
type Stream struct {
	ID      string
	Title   string
	Enabled bool
	Paused  bool
	Rules   []StreamRule
}

// Matchable reports whether the stream can ever match a message: it must
// be enabled, not paused, and carry at least one rule (the "empty-rule
// stream never matches" invariant from spec.md §8).
func (s Stream) Matchable() bool {
	return s.Enabled && !s.Paused && len(s.Rules) > 0
}
