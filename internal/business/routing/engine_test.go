package routing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

func rule(id, streamID string, kind domain.RuleKind, field, value string, inverted bool) domain.StreamRule {
	return domain.StreamRule{ID: id, StreamID: streamID, Kind: kind, Field: field, Value: value, Inverted: inverted}
}

func TestEngineBuilder_ConjunctionRequiresAllRules(t *testing.T) {
	streams := []domain.Stream{
		{
			ID: "s1", Title: "errors-from-api", Enabled: true,
			Rules: []domain.StreamRule{
				rule("r1", "s1", domain.RuleExact, "level", "error", false),
				rule("r2", "s1", domain.RulePresence, "api_version", "", false),
			},
		},
	}
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)

	matching := newMsg(t, map[string]domain.FieldValue{
		"level":       domain.StringValue("error"),
		"api_version": domain.StringValue("v2"),
	})
	result := engine.Match(matching)
	assert.ElementsMatch(t, []string{"s1"}, result.StreamIDs())

	partial := newMsg(t, map[string]domain.FieldValue{"level": domain.StringValue("error")})
	result = engine.Match(partial)
	assert.Empty(t, result.StreamIDs())
}

func TestEngineBuilder_EmptyRuleStreamNeverMatches(t *testing.T) {
	streams := []domain.Stream{{ID: "s1", Title: "empty", Enabled: true}}
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)

	msg := newMsg(t, nil)
	assert.True(t, engine.Match(msg).Empty())
}

func TestEngineBuilder_FailClosedOnInvalidRule(t *testing.T) {
	streams := []domain.Stream{
		{
			ID: "s1", Title: "bad-regex", Enabled: true,
			Rules: []domain.StreamRule{
				rule("r1", "s1", domain.RuleExact, "level", "error", false),
				rule("r2", "s1", domain.RuleRegex, "message_detail", "(unterminated", false),
			},
		},
	}
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)

	// Even though the surviving Exact rule matches, the stream is
	// excluded entirely per spec.md §9's fail-closed decision.
	msg := newMsg(t, map[string]domain.FieldValue{"level": domain.StringValue("error")})
	assert.True(t, engine.Match(msg).Empty())
}

func TestEngineBuilder_DisabledOrPausedStreamExcluded(t *testing.T) {
	streams := []domain.Stream{
		{ID: "disabled", Enabled: false, Rules: []domain.StreamRule{rule("r1", "disabled", domain.RulePresence, "level", "", false)}},
		{ID: "paused", Enabled: true, Paused: true, Rules: []domain.StreamRule{rule("r2", "paused", domain.RulePresence, "level", "", false)}},
	}
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)

	msg := newMsg(t, map[string]domain.FieldValue{"level": domain.StringValue("error")})
	assert.True(t, engine.Match(msg).Empty())
}

func TestEngineBuilder_FingerprintStability(t *testing.T) {
	streams := []domain.Stream{
		{
			ID: "s1", Enabled: true,
			Rules: []domain.StreamRule{rule("r1", "s1", domain.RuleExact, "level", "error", false)},
		},
	}
	builder := NewEngineBuilder(BuildOptions{})
	e1, err := builder.Build(streams)
	require.NoError(t, err)
	e2, err := builder.Build(streams)
	require.NoError(t, err)
	assert.Equal(t, e1.Fingerprint(), e2.Fingerprint())

	streams[0].Rules[0].Value = "warn"
	e3, err := builder.Build(streams)
	require.NoError(t, err)
	assert.NotEqual(t, e1.Fingerprint(), e3.Fingerprint())
}

func TestEngineBuilder_DeterministicOrder(t *testing.T) {
	streams := []domain.Stream{
		{ID: "s1", Enabled: true, Rules: []domain.StreamRule{rule("r1", "s1", domain.RulePresence, "level", "", false)}},
		{ID: "s2", Enabled: true, Rules: []domain.StreamRule{rule("r2", "s2", domain.RulePresence, "level", "", false)}},
		{ID: "s3", Enabled: true, Rules: []domain.StreamRule{rule("r3", "s3", domain.RulePresence, "level", "", false)}},
	}
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)

	msg := newMsg(t, map[string]domain.FieldValue{"level": domain.StringValue("error")})
	result := engine.Match(msg)
	assert.Equal(t, []string{"s1", "s2", "s3"}, result.StreamIDs())
}

func TestEngineTestMatch_DiagnosesNonMatchingRule(t *testing.T) {
	streams := []domain.Stream{
		{
			ID: "s1", Title: "t1", Enabled: true,
			Rules: []domain.StreamRule{
				rule("r1", "s1", domain.RuleExact, "level", "error", false),
				rule("r2", "s1", domain.RulePresence, "api_version", "", false),
			},
		},
	}
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)

	msg := newMsg(t, map[string]domain.FieldValue{"level": domain.StringValue("error")})
	outcomes := engine.TestMatch(msg)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)
	assert.Len(t, outcomes[0].Rules, 2)
}

func TestEngine_MatchWithHarness_TimeoutRegistersFault(t *testing.T) {
	streams := []domain.Stream{
		{
			ID: "slow", Title: "t", Enabled: true,
			Rules: []domain.StreamRule{rule("r1", "slow", domain.RuleRegex, "message_detail", ".*", false)},
		},
	}
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)

	harness := NewTimeoutHarness(1, 5*time.Millisecond)
	faults := NewFaultManager(1)

	msg := newMsg(t, map[string]domain.FieldValue{"message_detail": domain.StringValue("x")})

	// Occupy the single worker so the real evaluation can never run
	// before the harness deadline fires, forcing a timeout.
	block := make(chan struct{})
	harness.jobs <- func() { <-block }
	defer close(block)

	result := engine.MatchWithHarness(context.Background(), msg, harness, faults)
	assert.True(t, result.Empty())
	assert.True(t, faults.IsQuarantined("slow"))
}
