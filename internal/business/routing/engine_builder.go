package routing

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"regexp"
	"sort"
	"time"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// BuildOptions configures one EngineBuilder.Build call. Grounded on the
// teacher's TreeBuilder BuildOptions (tree_builder.go), trimmed to what a
// flat conjunctive ruleset actually needs.
type BuildOptions struct {
	// RegexCache, if non-nil, is consulted before compiling a Regex
	// rule's pattern and is populated with every pattern compiled during
	// this build. Sharing one cache across builds avoids recompiling
	// patterns that survive unchanged from one engine generation to the
	// next.
	RegexCache *RegexCache

	// Metrics, if non-nil, receives build duration, final rule count and
	// per-reason dropped-rule counts.
	Metrics *EngineMetrics

	// Logger receives a warning for every dropped rule. Defaults to
	// slog.Default() if nil.
	Logger *slog.Logger
}

// EngineBuilder constructs a Compiled Engine from a catalogue snapshot.
// Grounded on the teacher's TreeBuilder (tree_builder.go): same shape
// (iterate config, bucket into indices, skip-and-log invalid entries,
// compute stats), adapted from a hierarchical route tree to spec.md
// §4.2's flat field-indexed structure.
type EngineBuilder struct {
	opts BuildOptions
}

// NewEngineBuilder creates a builder with the given options.
func NewEngineBuilder(opts BuildOptions) *EngineBuilder {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &EngineBuilder{opts: opts}
}

// Build implements spec.md §4.2's build algorithm: iterate all enabled
// streams and their rules, bucket each rule into the index for its kind
// keyed by field name, precompute each stream's required-match count,
// and drop invalid-kind or uncompilable-regex rules with a warning. A
// stream that loses ANY rule this way is excluded from matching entirely
// rather than relaxed to its remaining rules (spec.md §9, fail-closed,
// see below).
func (b *EngineBuilder) Build(streams []domain.Stream) (*Engine, error) {
	start := time.Now()

	idxs := [5]*kindIndex{}
	for i := range idxs {
		idxs[i] = newKindIndex()
	}

	streamTotals := make(map[string]int, len(streams))
	streamTitles := make(map[string]string, len(streams))
	streamOrder := make([]string, 0, len(streams))
	excluded := make(map[string]bool)

	type tuple struct {
		streamID  string
		ruleID    string
		kind      string
		field     string
		value     string
		inverted  bool
	}
	var tuples []tuple

	ruleCount := 0

	for _, s := range streams {
		if !s.Matchable() {
			continue
		}
		streamOrder = append(streamOrder, s.ID)
		streamTitles[s.ID] = s.Title

		required := 0
		for i := range s.Rules {
			rule := s.Rules[i]
			slot := kindSlot(rule.Kind)
			if slot < 0 {
				b.drop(rule.StreamID, "invalid_kind", "rule %s on stream %s has unknown kind %q", rule.ID, rule.StreamID, rule.Kind)
				excluded[s.ID] = true
				continue
			}

			var matcher Matcher
			if rule.Kind == domain.RuleRegex {
				re, err := b.compileRegex(rule.Value)
				if err != nil {
					b.drop(rule.StreamID, "regex_compile", "rule %s on stream %s: regex %q failed to compile: %v", rule.ID, rule.StreamID, rule.Value, err)
					excluded[s.ID] = true
					continue
				}
				matcher = RegexMatcher{Compiled: re}
			} else {
				matcher = matcherFor(rule.Kind)
			}

			idxs[slot].add(rule.Field, compiledRule{
				StreamID: s.ID,
				Rule:     &s.Rules[i],
				Matcher:  matcher,
			})
			required++
			ruleCount++
			tuples = append(tuples, tuple{
				streamID: s.ID,
				ruleID:   rule.ID,
				kind:     rule.Kind.String(),
				field:    rule.Field,
				value:    rule.Value,
				inverted: rule.Inverted,
			})
		}
		streamTotals[s.ID] = required
	}

	// spec.md §9's fail-closed decision: a stream that lost any rule to
	// an invalid kind or uncompilable regex is excluded entirely, never
	// relaxed to match on its remaining rules.
	for streamID := range excluded {
		delete(streamTotals, streamID)
	}

	sort.Slice(tuples, func(i, j int) bool {
		a, c := tuples[i], tuples[j]
		switch {
		case a.streamID != c.streamID:
			return a.streamID < c.streamID
		case a.ruleID != c.ruleID:
			return a.ruleID < c.ruleID
		case a.kind != c.kind:
			return a.kind < c.kind
		case a.field != c.field:
			return a.field < c.field
		case a.value != c.value:
			return a.value < c.value
		default:
			return !a.inverted && c.inverted
		}
	})
	h := fnv.New64a()
	for _, t := range tuples {
		fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s\x00%s\x00%t\x00", t.streamID, t.ruleID, t.kind, t.field, t.value, t.inverted)
	}

	engine := &Engine{
		kinds:        idxs,
		streamTotals: streamTotals,
		streamTitles: streamTitles,
		streamOrder:  streamOrder,
		ruleCount:    ruleCount,
		fingerprint:  h.Sum64(),
		builtAt:      time.Now(),
	}

	if b.opts.RegexCache != nil {
		b.opts.RegexCache.Preload(engine.regexPatterns())
		if b.opts.Metrics != nil {
			b.opts.Metrics.UpdateCacheStats(b.opts.RegexCache.Stats())
		}
	}
	if b.opts.Metrics != nil {
		b.opts.Metrics.RecordBuild(time.Since(start), ruleCount)
	}

	return engine, nil
}

// compileRegex consults the shared RegexCache, if any, before compiling
// a new pattern.
func (b *EngineBuilder) compileRegex(pattern string) (*regexp.Regexp, error) {
	if b.opts.RegexCache != nil {
		if re, ok := b.opts.RegexCache.Get(pattern); ok {
			return re, nil
		}
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if b.opts.RegexCache != nil {
		b.opts.RegexCache.Put(pattern, re)
	}
	return re, nil
}

func (b *EngineBuilder) drop(streamID, reason, format string, args ...any) {
	b.opts.Logger.Warn(fmt.Sprintf(format, args...), slog.String("stream_id", streamID), slog.String("reason", reason))
	if b.opts.Metrics != nil {
		b.opts.Metrics.RecordDroppedRule(reason)
	}
}
