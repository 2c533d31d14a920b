package routing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// FingerprintCacheConfig configures the Redis connection backing a
// FingerprintCache.
type FingerprintCacheConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Key          string
	TTL          time.Duration
}

// DefaultFingerprintCacheConfig returns sane defaults for a single local
// Redis instance.
func DefaultFingerprintCacheConfig() FingerprintCacheConfig {
	return FingerprintCacheConfig{
		Addr:         "localhost:6379",
		DB:           0,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		Key:          "streamrouter:engine:fingerprint",
		TTL:          time.Hour,
	}
}

func (c FingerprintCacheConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("fingerprint cache: addr is required")
	}
	if c.Key == "" {
		return fmt.Errorf("fingerprint cache: key is required")
	}
	return nil
}

// FingerprintCache publishes the Compiled Engine's fingerprint to Redis
// after every successful rebuild, and lets a follower replica check the
// published value before paying for its own catalogue load — the §4.3.2
// cross-replica short-circuit. It is optional: a nil *FingerprintCache is
// valid and every method on it is a no-op, so single-process deployments
// never have to wire Redis at all.
type FingerprintCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewFingerprintCache dials Redis and verifies connectivity with a Ping.
func NewFingerprintCache(cfg FingerprintCacheConfig, logger *slog.Logger) (*FingerprintCache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("fingerprint cache: connect to redis: %w", err)
	}

	logger.Info("fingerprint cache connected", "addr", cfg.Addr, "db", cfg.DB)
	return &FingerprintCache{client: client, key: cfg.Key, ttl: cfg.TTL, logger: logger}, nil
}

// Publish records the given fingerprint as the cluster's current value.
func (f *FingerprintCache) Publish(ctx context.Context, fingerprint uint64) error {
	if f == nil {
		return nil
	}
	if err := f.client.Set(ctx, f.key, strconv.FormatUint(fingerprint, 10), f.ttl).Err(); err != nil {
		return fmt.Errorf("fingerprint cache: publish: %w", err)
	}
	return nil
}

// Current returns the last-published fingerprint and whether one has
// ever been published. A nil cache always reports ok=false, which makes
// every caller's fast-path check ("do I already have this fingerprint?")
// degrade safely to "always reload".
func (f *FingerprintCache) Current(ctx context.Context) (fingerprint uint64, ok bool, err error) {
	if f == nil {
		return 0, false, nil
	}

	val, err := f.client.Get(ctx, f.key).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("fingerprint cache: read: %w", err)
	}

	parsed, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("fingerprint cache: parse published value: %w", err)
	}
	return parsed, true, nil
}

// Close releases the underlying Redis client.
func (f *FingerprintCache) Close() error {
	if f == nil {
		return nil
	}
	return f.client.Close()
}
