package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"KHUTWA_API_URL", "KHUTWA_HTTP_TIMEOUT", "KHUTWA_STORAGE", "KHUTWA_STATE_DIR",
		"REDIS_ADDRESS", "KHUTWA_ROUTES_FILE", "KHUTWA_MENU_FILE", "KHUTWA_LISTEN_ADDR",
		"KHUTWA_CORS_ORIGINS", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	// keep stray .env files in the package directory out of the test
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("KHUTWA_STATE_DIR", "/tmp/khutwa-state")

	cfg, err := Load("console")
	require.NoError(t, err)

	assert.Equal(t, "https://education-scj0.onrender.com/api", cfg.API.URL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/khutwa-state", cfg.Storage.Dir)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.Empty(t, cfg.Routes.File)
	assert.Equal(t, "127.0.0.1:8080", cfg.Web.ListenAddr)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Web.CORSOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("KHUTWA_API_URL", "http://localhost:4000/api/")
	t.Setenv("KHUTWA_HTTP_TIMEOUT", "5s")
	t.Setenv("KHUTWA_STORAGE", "Redis")
	t.Setenv("REDIS_ADDRESS", "redis:6379")
	t.Setenv("KHUTWA_ROUTES_FILE", "/etc/khutwa/routes.yaml")
	t.Setenv("KHUTWA_CORS_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load("console")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000/api", cfg.API.URL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "redis", cfg.Storage.Backend)
	assert.NotEmpty(t, cfg.Storage.Dir)
	assert.Equal(t, "redis:6379", cfg.Redis.Address)
	assert.Equal(t, "/etc/khutwa/routes.yaml", cfg.Routes.File)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Web.CORSOrigins)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "storage backend", key: "KHUTWA_STORAGE", val: "sqlite"},
		{name: "timeout", key: "KHUTWA_HTTP_TIMEOUT", val: "soon"},
		{name: "negative timeout", key: "KHUTWA_HTTP_TIMEOUT", val: "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)
			_, err := Load("json")
			assert.Error(t, err)
		})
	}
}
