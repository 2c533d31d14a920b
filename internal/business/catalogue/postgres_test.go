package catalogue

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestPool spins up a throwaway Postgres container and returns a
// pool with the catalogue schema applied. The schema is created inline
// rather than through RunMigrations so the test stays self-contained if
// the embedded migration set grows.
func setupTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres catalogue test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("streamrouter_test"),
		postgres.WithUsername("streamrouter"),
		postgres.WithPassword("streamrouter"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `
		CREATE TABLE streams (
			id      TEXT PRIMARY KEY,
			title   TEXT NOT NULL,
			enabled BOOLEAN NOT NULL DEFAULT true,
			paused  BOOLEAN NOT NULL DEFAULT false
		);
		CREATE TABLE stream_rules (
			id        TEXT PRIMARY KEY,
			stream_id TEXT NOT NULL REFERENCES streams(id) ON DELETE CASCADE,
			kind      TEXT NOT NULL,
			field     TEXT NOT NULL,
			value     TEXT NOT NULL DEFAULT '',
			inverted  BOOLEAN NOT NULL DEFAULT false
		);
	`)
	require.NoError(t, err)

	return pool
}

func TestPostgresCatalogue_LoadEnabledStreamsAssemblesRules(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO streams (id, title, enabled, paused) VALUES
		('s1', 'errors', true, false),
		('s2', 'disabled', false, false)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO stream_rules (id, stream_id, kind, field, value, inverted) VALUES
		('r1', 's1', 'exact', 'level', 'error', false),
		('r2', 's1', 'presence', 'request_id', '', false),
		('r3', 's2', 'exact', 'level', 'error', false)`)
	require.NoError(t, err)

	cat := NewPostgresCatalogue(pool, nil)
	streams, err := cat.LoadEnabledStreams(ctx)
	require.NoError(t, err)
	require.Len(t, streams, 1, "only the enabled stream should be returned")

	s := streams[0]
	require.Equal(t, "s1", s.ID)
	require.Len(t, s.Rules, 2)
}

func TestPostgresCatalogue_LoadEnabledStreamsHandlesRuleless(t *testing.T) {
	pool := setupTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `INSERT INTO streams (id, title, enabled) VALUES ('s1', 'empty', true)`)
	require.NoError(t, err)

	cat := NewPostgresCatalogue(pool, nil)
	streams, err := cat.LoadEnabledStreams(ctx)
	require.NoError(t, err)
	require.Len(t, streams, 1)
	require.Empty(t, streams[0].Rules, "the left join's null rule columns must not synthesize a phantom rule")
}

func TestPostgresCatalogue_Health(t *testing.T) {
	pool := setupTestPool(t)
	cat := NewPostgresCatalogue(pool, nil)
	require.NoError(t, cat.Health(context.Background()))
}
