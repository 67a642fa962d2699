package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_PASSWORD", "pw")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.DBHost)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "citizen", cfg.DefaultRole)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "*/30 * * * *", cfg.ReconcileSchedule)
	assert.Equal(t, 5, cfg.ReconcileWorkers)
	assert.False(t, cfg.MediaConfigured())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")
	t.Setenv("DEFAULT_ROLE", "moderator")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("RECONCILE_REPAIR", "true")
	t.Setenv("S3_URL", "https://s3.example.org")
	t.Setenv("S3_KEY", "key")
	t.Setenv("S3_SECRET", "secret")
	t.Setenv("S3_BUCKET", "evidence")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6543, cfg.DBPort)
	assert.Equal(t, "moderator", cfg.DefaultRole)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.ReconcileRepair)
	assert.True(t, cfg.MediaConfigured())
	assert.Equal(t, "https://s3.example.org/evidence", cfg.MediaBaseURL())
	assert.Contains(t, cfg.DSN(), "host=db.internal")
	assert.Contains(t, cfg.DSN(), "port=6543")

	t.Setenv("S3_PUBLIC_URL", "https://cdn.example.org")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org", cfg.MediaBaseURL())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("DB_PORT", "not-a-port")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidateServer(t *testing.T) {
	cfg := &Config{StoreDriver: "postgres"}
	assert.Error(t, cfg.ValidateServer())

	cfg.APISecretKey = "s3cret"
	assert.NoError(t, cfg.ValidateServer())

	local := &Config{StoreDriver: "memory"}
	assert.NoError(t, local.ValidateServer())
}
