package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vitaliisemenov/streamrouter/internal/business/catalogue"
)

// Config is the root configuration for the streamrouter service, bound
// via spf13/viper + mapstructure. Grounded on the teacher's
// internal/config/config.go: one struct per concern, LoadConfig,
// Validate, AutomaticEnv override.
type Config struct {
	Router    RouterConfig    `mapstructure:"router"`
	Catalogue CatalogueConfig `mapstructure:"catalogue"`
	Cluster   ClusterConfig   `mapstructure:"cluster"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Log       LogConfig       `mapstructure:"log"`
}

// RouterConfig holds the four keys spec.md §6 names plus the timeout
// worker pool size and regex cache size this expansion adds (§6.3).
type RouterConfig struct {
	StreamProcessingTimeout          time.Duration `mapstructure:"stream_processing_timeout"`
	StreamProcessingMaxFaults        int           `mapstructure:"stream_processing_max_faults"`
	EngineRebuildPeriod              time.Duration `mapstructure:"engine_rebuild_period"`
	DetailedMessageRecordingStrategy string        `mapstructure:"detailed_message_recording_strategy"`
	TimeoutWorkers                   int           `mapstructure:"timeout_workers"`
	RegexCacheSize                   int           `mapstructure:"regex_cache_size"`
}

// CatalogueConfig selects and configures the Catalogue adapter.
type CatalogueConfig struct {
	Backend  string                   `mapstructure:"backend"` // "memory" | "postgres"
	Postgres catalogue.PostgresConfig `mapstructure:"postgres"`
}

// ClusterConfig holds leader-election and fingerprint-broadcast settings
// (§4.3.1/§4.3.2). Coordination is opt-in; the zero value disables it.
type ClusterConfig struct {
	CoordinationEnabled bool                   `mapstructure:"coordination_enabled"`
	Namespace           string                 `mapstructure:"namespace"`
	LeaseName           string                 `mapstructure:"lease_name"`
	FingerprintCache    FingerprintCacheConfig `mapstructure:"fingerprint_cache"`
}

// FingerprintCacheConfig mirrors routing.FingerprintCacheConfig's fields
// for viper binding; the CLI wiring translates between the two.
type FingerprintCacheConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// AdminConfig configures the admin HTTP surface (§6.2).
type AdminConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig reuses the teacher's LogConfig shape (level/format/output/
// rotation via gopkg.in/natefinch/lumberjack.v2).
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// LoadConfig loads configuration from an optional YAML file, environment
// variables, and built-in defaults, in that precedence order (env
// overrides file, file overrides defaults) — the teacher's LoadConfig
// contract exactly.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("streamrouter")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("router.stream_processing_timeout", "2s")
	v.SetDefault("router.stream_processing_max_faults", 3)
	v.SetDefault("router.engine_rebuild_period", "1s")
	v.SetDefault("router.detailed_message_recording_strategy", "on_error")
	v.SetDefault("router.timeout_workers", 16)
	v.SetDefault("router.regex_cache_size", 512)

	v.SetDefault("catalogue.backend", "memory")
	v.SetDefault("catalogue.postgres.host", "localhost")
	v.SetDefault("catalogue.postgres.port", 5432)
	v.SetDefault("catalogue.postgres.database", "streamrouter")
	v.SetDefault("catalogue.postgres.user", "streamrouter")
	v.SetDefault("catalogue.postgres.ssl_mode", "disable")
	v.SetDefault("catalogue.postgres.max_conns", 20)
	v.SetDefault("catalogue.postgres.min_conns", 2)
	v.SetDefault("catalogue.postgres.max_conn_lifetime", "1h")
	v.SetDefault("catalogue.postgres.max_conn_idle_time", "5m")
	v.SetDefault("catalogue.postgres.health_check_period", "30s")
	v.SetDefault("catalogue.postgres.connect_timeout", "10s")

	v.SetDefault("cluster.coordination_enabled", false)
	v.SetDefault("cluster.namespace", "default")
	v.SetDefault("cluster.lease_name", "streamrouter-engine-updater")
	v.SetDefault("cluster.fingerprint_cache.enabled", false)
	v.SetDefault("cluster.fingerprint_cache.addr", "localhost:6379")
	v.SetDefault("cluster.fingerprint_cache.db", 0)
	v.SetDefault("cluster.fingerprint_cache.pool_size", 10)
	v.SetDefault("cluster.fingerprint_cache.dial_timeout", "5s")
	v.SetDefault("cluster.fingerprint_cache.read_timeout", "3s")
	v.SetDefault("cluster.fingerprint_cache.write_timeout", "3s")

	v.SetDefault("admin.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
}

// Validate checks cross-field invariants the mapstructure tags alone
// can't express.
func (c *Config) Validate() error {
	if c.Router.StreamProcessingTimeout <= 0 {
		return fmt.Errorf("router.stream_processing_timeout must be positive")
	}
	if c.Router.StreamProcessingMaxFaults < 0 {
		return fmt.Errorf("router.stream_processing_max_faults cannot be negative")
	}
	if c.Router.EngineRebuildPeriod <= 0 {
		return fmt.Errorf("router.engine_rebuild_period must be positive")
	}
	if c.Router.TimeoutWorkers <= 0 {
		return fmt.Errorf("router.timeout_workers must be positive")
	}

	switch c.Catalogue.Backend {
	case "memory":
	case "postgres":
		if err := c.Catalogue.Postgres.Validate(); err != nil {
			return fmt.Errorf("catalogue.postgres: %w", err)
		}
	default:
		return fmt.Errorf("catalogue.backend must be \"memory\" or \"postgres\", got %q", c.Catalogue.Backend)
	}

	if c.Cluster.CoordinationEnabled && c.Cluster.Namespace == "" {
		return fmt.Errorf("cluster.namespace is required when cluster.coordination_enabled is true")
	}

	if c.Admin.Addr == "" {
		return fmt.Errorf("admin.addr cannot be empty")
	}

	if c.Log.Level == "" {
		return fmt.Errorf("log.level cannot be empty")
	}

	return nil
}
