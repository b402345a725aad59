package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URL", "DATABASE_PATH", "FEED_BASE_URL", "FEED_ROWS",
		"GTFS_DIR", "MAX_AGE_HOURS", "COLLECT_INTERVAL_SEC",
		"NATS_URL", "LOG_NATS_SUBJECTS", "METRICS_ADDR", "TZ",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/tus.db", cfg.DatabaseDSN)
	assert.Equal(t, "http://datos.santander.es/api/rest/datasets", cfg.FeedBaseURL)
	assert.Equal(t, 5000, cfg.FeedRows)
	assert.Equal(t, "data/gtfs-static", cfg.GTFSDir)
	assert.Equal(t, 2*time.Hour, cfg.MaxAge)
	assert.Zero(t, cfg.CollectInterval)
	assert.Empty(t, cfg.NATSURL)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://tus@localhost:5432/tus")
	t.Setenv("FEED_ROWS", "250")
	t.Setenv("MAX_AGE_HOURS", "6")
	t.Setenv("COLLECT_INTERVAL_SEC", "300")
	t.Setenv("NATS_URL", "nats://127.0.0.1:4222")
	t.Setenv("LOG_NATS_SUBJECTS", "yes")
	t.Setenv("TZ", "Europe/Madrid")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://tus@localhost:5432/tus", cfg.DatabaseDSN)
	assert.Equal(t, 250, cfg.FeedRows)
	assert.Equal(t, 6*time.Hour, cfg.MaxAge)
	assert.Equal(t, 5*time.Minute, cfg.CollectInterval)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATSURL)
	assert.True(t, cfg.LogNATSSubjects)
	assert.Equal(t, "Europe/Madrid", cfg.Location.String())
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)

	t.Setenv("FEED_ROWS", "zero")
	_, err := Load()
	assert.Error(t, err)
	t.Setenv("FEED_ROWS", "")

	t.Setenv("MAX_AGE_HOURS", "-1")
	_, err = Load()
	assert.Error(t, err)
	t.Setenv("MAX_AGE_HOURS", "")

	t.Setenv("COLLECT_INTERVAL_SEC", "sometimes")
	_, err = Load()
	assert.Error(t, err)
	t.Setenv("COLLECT_INTERVAL_SEC", "")

	t.Setenv("TZ", "Mars/Olympus")
	_, err = Load()
	assert.Error(t, err)
}
