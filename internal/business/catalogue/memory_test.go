package catalogue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

func TestMemoryCatalogue_LoadEnabledStreamsFiltersDisabled(t *testing.T) {
	c := NewMemoryCatalogue([]domain.Stream{
		{ID: "s1", Title: "errors", Enabled: true},
		{ID: "s2", Title: "disabled", Enabled: false},
	})

	streams, err := c.LoadEnabledStreams(context.Background())
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.Equal(t, "s1", streams[0].ID)
}

func TestMemoryCatalogue_PutUpdatesInPlace(t *testing.T) {
	c := NewMemoryCatalogue(nil)
	c.Put(domain.Stream{ID: "s1", Title: "v1", Enabled: true})
	c.Put(domain.Stream{ID: "s1", Title: "v2", Enabled: true})

	s, err := c.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, "v2", s.Title)
	assert.Len(t, c.All(), 1, "update must not duplicate the entry")
}

func TestMemoryCatalogue_DeleteRemovesStream(t *testing.T) {
	c := NewMemoryCatalogue([]domain.Stream{{ID: "s1", Enabled: true}})
	c.Delete("s1")

	_, err := c.Get("s1")
	assert.ErrorIs(t, err, ErrStreamNotFound)

	streams, err := c.LoadEnabledStreams(context.Background())
	require.NoError(t, err)
	assert.Empty(t, streams)
}

func TestMemoryCatalogue_GetUnknownStream(t *testing.T) {
	c := NewMemoryCatalogue(nil)
	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrStreamNotFound)
}
