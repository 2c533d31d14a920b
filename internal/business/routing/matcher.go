// Package routing provides the stream-routing engine: pure rule matchers,
// a field-indexed Compiled Engine, a periodic Engine Updater, a Router
// façade, per-stream fault tracking, and a per-rule timeout harness.
package routing

import (
	"regexp"
	"strconv"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// Matcher is the contract every rule kind implements: a pure function of
// (message, rule) → bool. Matchers never mutate the message and never
// throw; a matcher that cannot decide returns false (spec.md §4.1).
type Matcher interface {
	Match(msg *domain.Message, rule *domain.StreamRule) bool
}

// PresenceMatcher implements spec.md §4.1's Presence rule: true iff the
// field exists and its string form is non-empty. Inversion negates.
type PresenceMatcher struct{}

func (PresenceMatcher) Match(msg *domain.Message, rule *domain.StreamRule) bool {
	v, exists := msg.GetField(rule.Field)
	matched := exists && v.String() != ""
	if rule.Inverted {
		return !matched
	}
	return matched
}

// ExactMatcher implements spec.md §4.1's Exact rule: true iff the field
// exists and its string form equals rule.Value octet-for-octet. Inversion
// negates.
type ExactMatcher struct{}

func (ExactMatcher) Match(msg *domain.Message, rule *domain.StreamRule) bool {
	v, exists := msg.GetField(rule.Field)
	matched := exists && v.String() == rule.Value
	if rule.Inverted {
		return !matched
	}
	return matched
}

// GreaterMatcher implements spec.md §4.1's Greater rule: both sides are
// parsed as IEEE-754 doubles; true iff message > rule. A parse failure on
// either side yields false, never a panic.
type GreaterMatcher struct{}

func (GreaterMatcher) Match(msg *domain.Message, rule *domain.StreamRule) bool {
	matched := compareNumeric(msg, rule, func(a, b float64) bool { return a > b })
	if rule.Inverted {
		return !matched
	}
	return matched
}

// SmallerMatcher implements spec.md §4.1's Smaller rule, symmetric with
// GreaterMatcher.
type SmallerMatcher struct{}

func (SmallerMatcher) Match(msg *domain.Message, rule *domain.StreamRule) bool {
	matched := compareNumeric(msg, rule, func(a, b float64) bool { return a < b })
	if rule.Inverted {
		return !matched
	}
	return matched
}

// compareNumeric implements the shared parse-both-sides-as-float64 logic
// behind Greater and Smaller. A parse failure on either side is a
// non-match, never an error (spec.md §4.1).
func compareNumeric(msg *domain.Message, rule *domain.StreamRule, cmp func(a, b float64) bool) bool {
	v, exists := msg.GetField(rule.Field)
	if !exists {
		return false
	}
	msgNum, ok := v.Float64()
	if !ok {
		return false
	}
	ruleNum, err := strconv.ParseFloat(rule.Value, 64)
	if err != nil {
		return false
	}
	return cmp(msgNum, ruleNum)
}

// RegexMatcher implements spec.md §4.1's Regex rule: true iff the
// compiled pattern finds a match anywhere in the field's string form.
// Compilation happens once at engine build time (see EngineBuilder); a
// rule whose pattern fails to compile is dropped before it ever reaches
// this matcher.
type RegexMatcher struct {
	Compiled *regexp.Regexp
}

func (m RegexMatcher) Match(msg *domain.Message, rule *domain.StreamRule) bool {
	v, exists := msg.GetField(rule.Field)
	matched := exists && m.Compiled.MatchString(v.String())
	if rule.Inverted {
		return !matched
	}
	return matched
}

// matcherFor returns the stateless Matcher for kinds that need no
// per-rule compiled state. RuleRegex is handled separately by the engine
// since each rule carries its own compiled pattern.
func matcherFor(kind domain.RuleKind) Matcher {
	switch kind {
	case domain.RulePresence:
		return PresenceMatcher{}
	case domain.RuleExact:
		return ExactMatcher{}
	case domain.RuleGreater:
		return GreaterMatcher{}
	case domain.RuleSmaller:
		return SmallerMatcher{}
	default:
		return nil
	}
}
