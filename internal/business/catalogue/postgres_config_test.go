package catalogue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostgresConfig_ValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.Port = 0
	assert.Error(t, cfg.Validate())
}

func TestPostgresConfig_ValidateRejectsMinGreaterThanMax(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.MinConns = cfg.MaxConns + 1
	assert.Error(t, cfg.Validate())
}

func TestPostgresConfig_ValidateRejectsUnknownSSLMode(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.SSLMode = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestPostgresConfig_ValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, DefaultPostgresConfig().Validate())
}

func TestPostgresConfig_DSNIncludesCredentials(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.Password = "secret"
	dsn := cfg.DSN()
	assert.Contains(t, dsn, "streamrouter:secret@localhost:5432/streamrouter")
	assert.Contains(t, dsn, "sslmode=disable")
}
