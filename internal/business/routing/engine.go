package routing

import (
	"context"
	"regexp"
	"time"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// compiledRule pairs an original stream rule with the matcher that
// evaluates it. Regex rules carry their own compiled pattern; the other
// kinds share a single stateless matcher instance (see matcherFor).
type compiledRule struct {
	StreamID string
	Rule     *domain.StreamRule
	Matcher  Matcher
}

// kindIndex holds every compiled rule of one RuleKind, bucketed by field
// name, per spec.md §4.2's build algorithm.
type kindIndex struct {
	// fieldRules maps a field name to every rule of this kind that tests
	// it. A field can carry several rules, from several streams.
	fieldRules map[string][]compiledRule
}

func newKindIndex() *kindIndex {
	return &kindIndex{fieldRules: make(map[string][]compiledRule)}
}

func (k *kindIndex) add(field string, cr compiledRule) {
	k.fieldRules[field] = append(k.fieldRules[field], cr)
}

// Engine is the immutable, field-indexed Compiled Engine of spec.md §4.2:
// given one message, it returns every stream whose entire rule set
// matched, in a single pass that touches only fields the message
// actually carries (Presence excepted, since Presence may assert
// absence via inversion).
//
// An Engine is built once by EngineBuilder.Build and never mutated
// afterward; hot-reload is a pointer swap owned by EngineManager, never an
// in-place edit (see engine_manager.go).
type Engine struct {
	// kinds holds one index per rule kind, in spec.md §4.2's evaluation
	// order (Presence, Exact, Greater, Smaller, Regex).
	kinds [5]*kindIndex

	// streamTotals is the required-match count per stream id: the number
	// of rules indexed for that stream. A stream that lost any rule to an
	// invalid kind or uncompilable regex at build time has no entry here
	// and so never matches (spec.md §4.2, §9 fail-closed note).
	streamTotals map[string]int

	// streamTitles preserves each stream's display title for MatchResult,
	// so Router doesn't need a second catalogue round-trip.
	streamTitles map[string]string

	// streamOrder is catalogue insertion order, for spec.md §4.2's
	// determinism clause ("result ordering follows insertion order").
	streamOrder []string

	// ruleCount is the total number of compiled rules across all kinds,
	// reported via EngineMetrics.CurrentRuleCount.
	ruleCount int

	// fingerprint is the FNV-1a content hash used by Updater to skip a
	// swap when nothing actually changed (spec.md §4.3/§9).
	fingerprint uint64

	// builtAt is when EngineBuilder.Build produced this engine.
	builtAt time.Time
}

func kindSlot(kind domain.RuleKind) int {
	switch kind {
	case domain.RulePresence:
		return 0
	case domain.RuleExact:
		return 1
	case domain.RuleGreater:
		return 2
	case domain.RuleSmaller:
		return 3
	case domain.RuleRegex:
		return 4
	default:
		return -1
	}
}

// Empty reports whether the engine indexes no matchable streams.
func (e *Engine) Empty() bool {
	return len(e.streamTotals) == 0
}

// RuleCount returns the total number of compiled rules indexed.
func (e *Engine) RuleCount() int {
	return e.ruleCount
}

// Fingerprint returns the engine's content fingerprint.
func (e *Engine) Fingerprint() uint64 {
	return e.fingerprint
}

// BuiltAt returns when this engine was built.
func (e *Engine) BuiltAt() time.Time {
	return e.builtAt
}

// Match implements spec.md §4.2's evaluation algorithm: a single pass
// over the message's fields (plus the full Presence index), tallying
// per-stream match counts, emitting every stream whose tally reaches its
// total rule count.
func (e *Engine) Match(msg *domain.Message) *MatchResult {
	start := time.Now()
	tally := make(map[string]int, len(e.streamTotals))
	evaluated := 0

	for slot, idx := range e.kinds {
		if idx == nil {
			continue
		}
		kind := domain.AllRuleKinds()[slot]
		if kind == domain.RulePresence {
			// Presence rules may assert absence via inversion, so every
			// field the index knows about is evaluated regardless of
			// whether the message carries it.
			for _, rules := range idx.fieldRules {
				for _, cr := range rules {
					evaluated++
					if cr.Matcher.Match(msg, cr.Rule) {
						tally[cr.StreamID]++
					}
				}
			}
			continue
		}
		for field := range msg.FieldNames() {
			rules, ok := idx.fieldRules[field]
			if !ok {
				continue
			}
			for _, cr := range rules {
				evaluated++
				if cr.Matcher.Match(msg, cr.Rule) {
					tally[cr.StreamID]++
				}
			}
		}
	}

	result := &MatchResult{RulesEvaluated: evaluated}
	for _, streamID := range e.streamOrder {
		total, ok := e.streamTotals[streamID]
		if !ok || total == 0 {
			continue
		}
		if tally[streamID] == total {
			result.Streams = append(result.Streams, StreamMatch{
				StreamID: streamID,
				Title:    e.streamTitles[streamID],
			})
		}
	}
	result.Duration = time.Since(start)
	return result
}

// MatchWithHarness is Match's Router-facing sibling: every rule
// evaluation runs through harness, bounded by spec.md §4.6's per-rule
// timeout. A rule that overruns its bound is treated as non-matching
// and reported to faults as an evaluation fault for its owning stream;
// evaluation continues with the next rule, so one slow matcher never
// disables an entire stream for the current message (spec.md §4.6).
// Quarantine itself is never consulted here: spec.md §4.5/§8 require a
// quarantined stream to disappear only via the next engine rebuild
// excluding it (see FaultManager.FilterEnabled, wired into Updater.tick),
// never by filtering it out of an in-flight evaluation.
func (e *Engine) MatchWithHarness(ctx context.Context, msg *domain.Message, harness *TimeoutHarness, faults *FaultManager) *MatchResult {
	start := time.Now()
	tally := make(map[string]int, len(e.streamTotals))
	evaluated := 0
	faulted := 0

	evalRule := func(cr compiledRule) bool {
		evaluated++
		matched, ok := harness.Run(ctx, func() bool {
			return cr.Matcher.Match(msg, cr.Rule)
		})
		if !ok {
			faulted++
			if faults != nil {
				faults.RegisterFailure(cr.StreamID)
			}
			return false
		}
		return matched
	}

	for slot, idx := range e.kinds {
		if idx == nil {
			continue
		}
		kind := domain.AllRuleKinds()[slot]
		if kind == domain.RulePresence {
			for _, rules := range idx.fieldRules {
				for _, cr := range rules {
					if evalRule(cr) {
						tally[cr.StreamID]++
					}
				}
			}
			continue
		}
		for field := range msg.FieldNames() {
			rules, ok := idx.fieldRules[field]
			if !ok {
				continue
			}
			for _, cr := range rules {
				if evalRule(cr) {
					tally[cr.StreamID]++
				}
			}
		}
	}

	result := &MatchResult{RulesEvaluated: evaluated, FaultCount: faulted}
	for _, streamID := range e.streamOrder {
		total, ok := e.streamTotals[streamID]
		if !ok || total == 0 {
			continue
		}
		if tally[streamID] == total {
			result.Streams = append(result.Streams, StreamMatch{
				StreamID: streamID,
				Title:    e.streamTitles[streamID],
			})
		}
	}
	result.Duration = time.Since(start)
	return result
}

// RuleOutcome is one rule's evaluation outcome, used by TestMatch.
type RuleOutcome struct {
	Rule    *domain.StreamRule
	Matched bool
}

// StreamOutcome is one stream's full diagnostic outcome, used by
// TestMatch.
type StreamOutcome struct {
	StreamID string
	Title    string
	Matched  bool
	Rules    []RuleOutcome
}

// TestMatch implements spec.md §4.2's diagnostic testMatch(message)
// operation: per-rule outcomes for every stream that has at least one
// indexed rule, so a UI can explain "why didn't my stream match?". It
// re-runs matchers without Match's short-circuit/tally fast path and is
// not meant for the hot routing path.
func (e *Engine) TestMatch(msg *domain.Message) []StreamOutcome {
	byStream := make(map[string][]RuleOutcome)
	order := make([]string, 0, len(e.streamOrder))
	seen := make(map[string]bool)

	for _, idx := range e.kinds {
		if idx == nil {
			continue
		}
		for _, rules := range idx.fieldRules {
			for _, cr := range rules {
				matched := cr.Matcher.Match(msg, cr.Rule)
				byStream[cr.StreamID] = append(byStream[cr.StreamID], RuleOutcome{
					Rule:    cr.Rule,
					Matched: matched,
				})
				if !seen[cr.StreamID] {
					seen[cr.StreamID] = true
					order = append(order, cr.StreamID)
				}
			}
		}
	}

	// Report in catalogue order where possible, falling back to
	// first-seen order for streams missing from streamOrder. A stream
	// with no indexed rules at all is not reported.
	ordered := make([]string, 0, len(order))
	inOrder := make(map[string]bool, len(order))
	for _, streamID := range e.streamOrder {
		if seen[streamID] {
			ordered = append(ordered, streamID)
			inOrder[streamID] = true
		}
	}
	for _, streamID := range order {
		if !inOrder[streamID] {
			ordered = append(ordered, streamID)
		}
	}

	outcomes := make([]StreamOutcome, 0, len(ordered))
	for _, streamID := range ordered {
		rules := byStream[streamID]
		matched := len(rules) == e.streamTotals[streamID]
		if matched {
			for _, r := range rules {
				if !r.Matched {
					matched = false
					break
				}
			}
		}
		outcomes = append(outcomes, StreamOutcome{
			StreamID: streamID,
			Title:    e.streamTitles[streamID],
			Matched:  matched,
			Rules:    rules,
		})
	}
	return outcomes
}

// regexPatterns returns every compiled regex pattern in the engine's
// Regex index, keyed by source pattern, for RegexCache.Preload.
func (e *Engine) regexPatterns() map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp)
	idx := e.kinds[kindSlot(domain.RuleRegex)]
	if idx == nil {
		return patterns
	}
	for _, rules := range idx.fieldRules {
		for _, cr := range rules {
			if rm, ok := cr.Matcher.(RegexMatcher); ok {
				patterns[cr.Rule.Value] = rm.Compiled
			}
		}
	}
	return patterns
}
