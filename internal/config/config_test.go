package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"GAMEHOST_AUTH_SECRET": "s3cret"})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "gamehost.db", cfg.Database.DSN)
	assert.Equal(t, TokenStoreSQL, cfg.TokenStore)
	assert.Equal(t, "data/games", cfg.Content.Root)
	assert.Equal(t, int64(128<<20), cfg.Content.MaxArchiveBytes)
	assert.Equal(t, int64(512<<20), cfg.Content.MaxTotalBytes)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.Auth.AdminKey)
	assert.Equal(t, "@hourly", cfg.PurgeSchedule)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"GAMEHOST_ADDR":                ":9090",
		"GAMEHOST_DB_DRIVER":           "postgres",
		"GAMEHOST_DB_DSN":              "host=db user=gamehost",
		"GAMEHOST_TOKEN_STORE":         "redis",
		"GAMEHOST_REDIS_URL":           "redis://cache:6379/1",
		"GAMEHOST_CONTENT_ROOT":        "/srv/games",
		"GAMEHOST_AUTH_SECRET":         "s3cret",
		"GAMEHOST_AUTH_TOKEN_TTL":      "30m",
		"GAMEHOST_LOG_LEVEL":           "DEBUG",
		"GAMEHOST_CONTENT_MAX_ENTRIES": "50",
	})
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "host=db user=gamehost", cfg.Database.DSN)
	assert.Equal(t, TokenStoreRedis, cfg.TokenStore)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "/srv/games", cfg.Content.Root)
	assert.Equal(t, 50, cfg.Content.MaxEntries)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, slog.LevelDebug, cfg.Level())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"token store":  {"GAMEHOST_TOKEN_STORE": "memcached"},
		"driver":       {"GAMEHOST_DB_DRIVER": "oracle"},
		"ttl":          {"GAMEHOST_AUTH_TOKEN_TTL": "0s"},
		"duration":     {"GAMEHOST_READ_TIMEOUT": "soon"},
		"empty secret": {"GAMEHOST_AUTH_SECRET": ""},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			environment := map[string]string{"GAMEHOST_AUTH_SECRET": "s3cret"}
			for k, v := range overrides {
				environment[k] = v
			}
			_, err := LoadFrom(environment)
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	_, err := LoadFrom(map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GAMEHOST_AUTH_SECRET")
}
