package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)

	assert.Equal(t, "8085", cfg.ServerPort)
	assert.Equal(t, "", cfg.API.BaseURL, "same origin by default")
	assert.Zero(t, cfg.API.Timeout)
	assert.Equal(t, 12*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, int64(10000), cfg.Cache.MaxEntries)
	assert.Equal(t, "console.config.changed", cfg.RabbitMQ.Exchange)
	assert.Equal(t, uint(10), cfg.LoginRateLimit)
	assert.Equal(t, "test-secret", cfg.SessionSecret)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ENV", "development")
	t.Setenv("API_BASE_URL", " https://config.example.com/ ")
	t.Setenv("API_CLIENT_TIMEOUT", "5s")
	t.Setenv("WRITE_CONCURRENCY", "4")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := LoadConfig("", "")
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "https://config.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, 4, cfg.WriteConcurrency)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Web.CORSAllowedOrigins)
}

func TestLoadConfig_EnvFileAndYAML(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERVER_PORT=9001\n"), 0o600))
	yamlFile := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(yamlFile, []byte("cache:\n  ttl: 1m\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SERVER_PORT") })

	cfg, err := LoadConfig(envFile, yamlFile)
	require.NoError(t, err)
	assert.Equal(t, "9001", cfg.ServerPort)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
}

func TestLoadConfig_MissingEnvFileIsIgnored(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"), "")
	assert.NoError(t, err)
}

func TestLoadConfig_RejectsNegativeConcurrency(t *testing.T) {
	t.Setenv("WRITE_CONCURRENCY", "-1")
	_, err := LoadConfig("", "")
	assert.Error(t, err)
}
