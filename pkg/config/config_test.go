package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, AuthJWT, cfg.AuthMode)
	assert.Equal(t, int64(5<<20), cfg.QuotaBytes)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.SeedSampleData)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_DRIVER", "MEMORY")
	t.Setenv("KV_QUOTA_BYTES", "1024")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SEED_SAMPLE_DATA", "false")
	t.Setenv("AUTH_MODE", "firebase")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, int64(1024), cfg.QuotaBytes)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.False(t, cfg.SeedSampleData)
	assert.Equal(t, AuthFirebase, cfg.AuthMode)
}

func TestLoadRejectsBadSettings(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"jwt without secret", map[string]string{"AUTH_MODE": "jwt"}},
		{"unknown auth mode", map[string]string{"AUTH_MODE": "ldap", "JWT_SECRET": "x"}},
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "redis", "JWT_SECRET": "x"}},
		{"postgres without dsn", map[string]string{"STORAGE_DRIVER": "postgres", "JWT_SECRET": "x"}},
		{"mongo without uri", map[string]string{"STORAGE_DRIVER": "mongo", "JWT_SECRET": "x"}},
		{"quota not a number", map[string]string{"KV_QUOTA_BYTES": "lots", "JWT_SECRET": "x"}},
		{"negative quota", map[string]string{"KV_QUOTA_BYTES": "-1", "JWT_SECRET": "x"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud", "JWT_SECRET": "x"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestInitDBEmbeddedDrivers(t *testing.T) {
	ctx := context.Background()

	for _, driver := range []string{DriverMemory, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			cfg := &Config{
				StorageDriver: driver,
				SQLitePath:    filepath.Join(t.TempDir(), "quill.db"),
			}
			db, err := InitDB(ctx, cfg)
			require.NoError(t, err)
			defer db.CloseDB()

			require.NoError(t, db.Backend.Set(ctx, "k", "v"))
			v, ok, err := db.Backend.Get(ctx, "k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "v", v)
		})
	}
}
