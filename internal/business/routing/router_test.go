package routing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

func newTestRouter(t *testing.T, streams []domain.Stream) *Router {
	t.Helper()
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)
	mgr, err := NewEngineManager(engine, NewEngineBuilder(BuildOptions{}))
	require.NoError(t, err)
	return NewRouter(mgr, NewFaultManager(3), NewTimeoutHarness(2, DefaultStreamProcessingTimeout), RouterOptions{})
}

func TestRouter_RouteReturnsMatchedStreams(t *testing.T) {
	r := newTestRouter(t, []domain.Stream{
		{ID: "s1", Title: "errors", Enabled: true, Rules: []domain.StreamRule{
			rule("r1", "s1", domain.RuleExact, "level", "error", false),
		}},
	})

	msg := newMsg(t, map[string]domain.FieldValue{"level": domain.StringValue("error")})
	result, err := r.Route(context.Background(), msg)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, result.StreamIDs())
}

func TestRouter_RouteNilMessage(t *testing.T) {
	r := newTestRouter(t, nil)
	_, err := r.Route(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilMessage)
}

func TestRouter_RouteRecordsOnlyOnFault(t *testing.T) {
	streams := []domain.Stream{
		{ID: "s1", Title: "errors", Enabled: true, Rules: []domain.StreamRule{
			rule("r1", "s1", domain.RuleExact, "level", "error", false),
		}},
	}
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)
	mgr, err := NewEngineManager(engine, NewEngineBuilder(BuildOptions{}))
	require.NoError(t, err)
	r := NewRouter(mgr, NewFaultManager(3), NewTimeoutHarness(2, DefaultStreamProcessingTimeout), RouterOptions{})

	msg := newMsg(t, map[string]domain.FieldValue{"level": domain.StringValue("error")})
	_, err = r.Route(context.Background(), msg)
	require.NoError(t, err)
	assert.Nil(t, msg.Recordings(), "default on_error strategy must not record a fault-free route")
}

func TestRouter_RouteRecordsAlways(t *testing.T) {
	streams := []domain.Stream{
		{ID: "s1", Title: "errors", Enabled: true, Rules: []domain.StreamRule{
			rule("r1", "s1", domain.RuleExact, "level", "error", false),
		}},
	}
	engine, err := NewEngineBuilder(BuildOptions{}).Build(streams)
	require.NoError(t, err)
	mgr, err := NewEngineManager(engine, NewEngineBuilder(BuildOptions{}))
	require.NoError(t, err)
	opts := RouterOptions{RecordingStrategy: RecordingAlways}
	r := NewRouter(mgr, NewFaultManager(3), NewTimeoutHarness(2, DefaultStreamProcessingTimeout), opts)

	msg := newMsg(t, map[string]domain.FieldValue{"level": domain.StringValue("error")})
	_, err = r.Route(context.Background(), msg)
	require.NoError(t, err)
	require.NotNil(t, msg.Recordings())
	assert.Contains(t, msg.Recordings(), "route_duration")
	assert.Equal(t, int64(1), msg.Counters()["rules_evaluated"])
}

func TestRouter_TestMatchBypassesHarness(t *testing.T) {
	r := newTestRouter(t, []domain.Stream{
		{ID: "s1", Title: "errors", Enabled: true, Rules: []domain.StreamRule{
			rule("r1", "s1", domain.RuleExact, "level", "error", false),
		}},
	})

	msg := newMsg(t, map[string]domain.FieldValue{"level": domain.StringValue("warn")})
	outcomes := r.TestMatch(msg)
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].Matched)
}
