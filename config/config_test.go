package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Rath300/research-collab/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, []string{"*"}, cfg.AllowOrigins)
	assert.Equal(t, "realtime", cfg.Realtime.ChannelPrefix)
	assert.Equal(t, 5*time.Second, cfg.Realtime.SubscribeTimeout)
	assert.Len(t, cfg.Kafka.ChangeFeedTopics, 3)
	assert.InDelta(t, 3.0, cfg.Search.RatePerSecond, 0.001)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER_NAME", "collab")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("AUTH_ENABLED", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Auth.Enabled)
	assert.NoError(t, cfg.Validate())

	dbCfg := cfg.DatabaseConfig()
	assert.Equal(t, "db.internal", dbCfg.Host)
	assert.Equal(t, "collab", dbCfg.User)
}

func TestLoad_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOG_LEVEL=debug\nSTORAGE_AVATAR_BUCKET=faces\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("STORAGE_AVATAR_BUCKET")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "faces", cfg.Storage.AvatarBucket)
}

func TestValidate_MissingDatabaseIsConfigurationError(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_USER_NAME", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "DB_HOST")
}
