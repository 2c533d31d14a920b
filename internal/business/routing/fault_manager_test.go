package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

func TestFaultManager_QuarantinesAfterThreshold(t *testing.T) {
	fm := NewFaultManager(3)

	fm.RegisterFailure("s1")
	fm.RegisterFailure("s1")
	assert.False(t, fm.IsQuarantined("s1"))

	fm.RegisterFailure("s1")
	assert.True(t, fm.IsQuarantined("s1"))
	assert.Contains(t, fm.Quarantined(), "s1")
}

func TestFaultManager_ClearResetsCounterAndQuarantine(t *testing.T) {
	fm := NewFaultManager(1)
	fm.RegisterFailure("s1")
	assert.True(t, fm.IsQuarantined("s1"))

	fm.Clear("s1")
	assert.False(t, fm.IsQuarantined("s1"))

	fm.RegisterFailure("s1")
	assert.True(t, fm.IsQuarantined("s1"), "counter should have reset to zero, not stayed at the old threshold")
}

func TestFaultManager_FilterEnabled(t *testing.T) {
	fm := NewFaultManager(1)
	fm.RegisterFailure("bad")

	streams := []domain.Stream{{ID: "good"}, {ID: "bad"}}
	filtered := fm.FilterEnabled(streams)

	ids := make([]string, len(filtered))
	for i, s := range filtered {
		ids[i] = s.ID
	}
	assert.Equal(t, []string{"good"}, ids)
}
