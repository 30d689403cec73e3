package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "5050", cfg.Server.Port)
	assert.Equal(t, "file", cfg.Store.Driver)
	assert.Equal(t, "db.json", cfg.Store.Path)
	assert.Equal(t, "*", cfg.CORS.AllowedOrigin)
	assert.Equal(t, 16, cfg.Client.Outbox.Capacity)
	assert.Equal(t, ".course-portal/session.json", cfg.Client.SessionPath)
	assert.Empty(t, cfg.Client.BackendURL, "learner commands stay offline unless a backend is configured")
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
server:
  port: "9000"
store:
  driver: redis
redis:
  addr: localhost:6379
  db: 2
client:
  outbox:
    max_attempts: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Store.Driver)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 5, cfg.Client.Outbox.MaxAttempts)
	assert.Equal(t, 16, cfg.Client.Outbox.Capacity, "unset yaml keys keep defaults")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		expected func(*Config)
	}{
		{
			name:    "platform port",
			envVars: map[string]string{"PORT": "7070"},
			expected: func(cfg *Config) {
				assert.Equal(t, "7070", cfg.Server.Port)
			},
		},
		{
			name: "store and minio",
			envVars: map[string]string{
				"PORTAL_STORE_DRIVER":   "minio",
				"PORTAL_MINIO_ENDPOINT": "localhost:9000",
				"PORTAL_MINIO_USE_SSL":  "true",
				"PORTAL_POSTGRES_URL":   "postgres://u:p@localhost/db",
				"PORTAL_LOG_LEVEL":      "debug",
				"PORTAL_RATE_LIMIT_RPS": "2.5",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, "minio", cfg.Store.Driver)
				assert.Equal(t, "localhost:9000", cfg.Minio.Endpoint)
				assert.True(t, cfg.Minio.UseSSL)
				assert.Equal(t, "postgres://u:p@localhost/db", cfg.Postgres.URL)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, 2.5, cfg.RateLimit.RPS)
			},
		},
		{
			name: "client outbox",
			envVars: map[string]string{
				"PORTAL_CLIENT_BACKEND_URL":       "http://profiles:5050",
				"PORTAL_CLIENT_OUTBOX_BASE_DELAY": "1s",
			},
			expected: func(cfg *Config) {
				assert.Equal(t, "http://profiles:5050", cfg.Client.BackendURL)
				assert.Equal(t, "1s", cfg.Client.Outbox.BaseDelay)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PORT", "")
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			cfg, err := Load("")
			require.NoError(t, err)
			tt.expected(&cfg)
		})
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestTTLDuration(t *testing.T) {
	assert.Equal(t, time.Minute, TTLDuration("", time.Minute))
	assert.Equal(t, 3*time.Second, TTLDuration("3s", time.Minute))
	assert.Equal(t, time.Minute, TTLDuration("soon", time.Minute))
}
