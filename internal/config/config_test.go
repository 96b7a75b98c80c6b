package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	cfg := Load()

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, "X-User-ID", cfg.UserIDHeader)
	assert.Equal(t, 2*time.Hour, cfg.Booking.MinCancelLead)
	assert.Equal(t, "CT", cfg.Booking.ReferencePrefix)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("BOOKING_MIN_CANCEL_LEAD", "90m")
	t.Setenv("NATS_ENABLED", "false")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("SHOWTIME_CACHE_TTL", "not-a-duration")

	cfg := Load()

	assert.Equal(t, 90*time.Minute, cfg.Booking.MinCancelLead)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Cache.ShowtimeTTL)
}

func TestLoad_DotEnvFillsUnsetVariables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CINEMATIME_TEST_PORT_FROM_FILE=1\nBOOKING_REFERENCE_PREFIX=BK\n"), 0o600))
	t.Setenv("ENV_FILE", path)
	t.Setenv("BOOKING_REFERENCE_PREFIX", "")
	os.Unsetenv("BOOKING_REFERENCE_PREFIX")
	t.Cleanup(func() {
		os.Unsetenv("BOOKING_REFERENCE_PREFIX")
		os.Unsetenv("CINEMATIME_TEST_PORT_FROM_FILE")
	})

	cfg := Load()

	assert.Equal(t, "BK", cfg.Booking.ReferencePrefix)
	assert.Equal(t, "1", os.Getenv("CINEMATIME_TEST_PORT_FROM_FILE"))
}
