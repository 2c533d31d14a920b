package catalogue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitaliisemenov/streamrouter/internal/core/domain"
)

// PostgresCatalogue is the durable Catalogue adapter: streams and their
// rules live in Postgres, and LoadEnabledStreams reassembles them on
// every call. The engine itself stays stateless; all persistence lives
// here, as spec.md §6 requires of any Catalogue implementation.
type PostgresCatalogue struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresCatalogue wraps an already-connected pool. Use Connect to
// build the pool from a PostgresConfig.
func NewPostgresCatalogue(pool *pgxpool.Pool, logger *slog.Logger) *PostgresCatalogue {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCatalogue{pool: pool, logger: logger}
}

// Connect parses cfg, validates it, and opens a pgxpool against it.
func Connect(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: parse dsn: %v", ErrUnavailable, err)
	}
	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", ErrUnavailable, err)
	}

	if logger != nil {
		logger.Info("catalogue connected to postgres", "host", cfg.Host, "database", cfg.Database)
	}
	return pool, nil
}

const loadEnabledStreamsSQL = `
SELECT s.id, s.title, s.enabled, s.paused,
       r.id, r.kind, r.field, r.value, r.inverted
FROM streams s
LEFT JOIN stream_rules r ON r.stream_id = s.id
WHERE s.enabled = true
ORDER BY s.id, r.id
`

// LoadEnabledStreams implements routing.Catalogue. It issues a single
// join query and reassembles rows into domain.Stream/domain.StreamRule,
// so a reload never costs more than one round trip regardless of how
// many rules a stream carries.
func (c *PostgresCatalogue) LoadEnabledStreams(ctx context.Context) ([]domain.Stream, error) {
	start := time.Now()
	rows, err := c.pool.Query(ctx, loadEnabledStreamsSQL)
	if err != nil {
		c.logger.Error("catalogue query failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	streams := make(map[string]*domain.Stream)
	order := make([]string, 0)

	for rows.Next() {
		var (
			streamID                   string
			title                      string
			enabled, paused            bool
			ruleID, kind, field, value sqlNullString
			inverted                   sqlNullBool
		)
		if err := rows.Scan(&streamID, &title, &enabled, &paused, &ruleID, &kind, &field, &value, &inverted); err != nil {
			return nil, fmt.Errorf("catalogue: scan row: %w", err)
		}

		s, ok := streams[streamID]
		if !ok {
			s = &domain.Stream{ID: streamID, Title: title, Enabled: enabled, Paused: paused}
			streams[streamID] = s
			order = append(order, streamID)
		}

		if !ruleID.Valid {
			continue
		}
		s.Rules = append(s.Rules, domain.StreamRule{
			ID:       ruleID.String,
			StreamID: streamID,
			Kind:     parseRuleKind(kind.String),
			Field:    field.String,
			Value:    value.String,
			Inverted: inverted.Valid && inverted.Bool,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalogue: iterate rows: %w", err)
	}

	out := make([]domain.Stream, 0, len(order))
	for _, id := range order {
		out = append(out, *streams[id])
	}

	c.logger.Debug("catalogue loaded enabled streams", "count", len(out), "duration", time.Since(start))
	return out, nil
}

// Close releases the underlying pool.
func (c *PostgresCatalogue) Close() {
	c.pool.Close()
}

// Health pings the pool. The admin surface's /healthz handler does not
// call it.
func (c *PostgresCatalogue) Health(ctx context.Context) error {
	if err := c.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func parseRuleKind(s string) domain.RuleKind {
	switch s {
	case "presence":
		return domain.RulePresence
	case "exact":
		return domain.RuleExact
	case "greater":
		return domain.RuleGreater
	case "smaller":
		return domain.RuleSmaller
	case "regex":
		return domain.RuleRegex
	default:
		return domain.RuleKind(-1)
	}
}

// sqlNullString/sqlNullBool avoid importing database/sql solely for its
// null-scanning wrappers; pgx scans into these the same way.
type sqlNullString struct {
	String string
	Valid  bool
}

func (n *sqlNullString) Scan(value any) error {
	if value == nil {
		n.String, n.Valid = "", false
		return nil
	}
	switch v := value.(type) {
	case string:
		n.String, n.Valid = v, true
	case []byte:
		n.String, n.Valid = string(v), true
	default:
		return fmt.Errorf("catalogue: unsupported scan type %T for string", value)
	}
	return nil
}

type sqlNullBool struct {
	Bool  bool
	Valid bool
}

func (n *sqlNullBool) Scan(value any) error {
	if value == nil {
		n.Bool, n.Valid = false, false
		return nil
	}
	b, ok := value.(bool)
	if !ok {
		return fmt.Errorf("catalogue: unsupported scan type %T for bool", value)
	}
	n.Bool, n.Valid = b, true
	return nil
}
