package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validCfg returns a fully-valid Config for mutation testing.
func validCfg() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:         BackendFile,
			DataDir:         "/tmp/data",
			SQLitePath:      "/tmp/data/timelines.db",
			ListConcurrency: 4,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		API:     APIConfig{ListenAddr: ":8080"},
	}
}

// isolate points HOME at an empty directory so no user config file is read.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, "SIMPLEEVENTS_") {
			t.Setenv(strings.SplitN(kv, "=", 2)[0], "")
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, filepath.Join("data", "timelines.db"), cfg.Storage.SQLitePath)
	assert.Equal(t, DefaultListConcurrency, cfg.Storage.ListConcurrency)
	assert.Equal(t, ":8080", cfg.API.ListenAddr)
	assert.Equal(t, "*", cfg.API.CORSOrigin)
	assert.Empty(t, cfg.API.AuthToken)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestConfigEnvOverride(t *testing.T) {
	isolate(t)
	t.Setenv("SIMPLEEVENTS_STORAGE_BACKEND", "sqlite")
	t.Setenv("SIMPLEEVENTS_SQLITE_PATH", "/var/lib/simpleevents/db.sqlite")
	t.Setenv("SIMPLEEVENTS_DATA_DIR", "/srv/timelines")
	t.Setenv("SIMPLEEVENTS_API_AUTH_TOKEN", "secret-token-123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/simpleevents/db.sqlite", cfg.Storage.SQLitePath)
	assert.Equal(t, "/srv/timelines", cfg.Storage.DataDir)
	assert.Equal(t, "secret-token-123", cfg.API.AuthToken)
}

func TestConfigEnvOverride_ListConcurrencyAndCORS(t *testing.T) {
	isolate(t)
	t.Setenv("SIMPLEEVENTS_STORAGE_LIST_CONCURRENCY", "3")
	t.Setenv("SIMPLEEVENTS_API_CORS_ORIGIN", "https://timelines.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Storage.ListConcurrency)
	assert.Equal(t, "https://timelines.example.com", cfg.API.CORSOrigin)
}

func TestConfigEnvOverride_InvalidListConcurrency(t *testing.T) {
	isolate(t)
	t.Setenv("SIMPLEEVENTS_STORAGE_LIST_CONCURRENCY", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list_concurrency")
}

func TestConfigFile(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	dir := filepath.Join(home, ".simpleevents")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yaml := "storage:\n  data_dir: /from/file\nlogging:\n  format: json\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/file", cfg.Storage.DataDir)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestConfigLoadRejectsBadBackend(t *testing.T) {
	isolate(t)
	t.Setenv("SIMPLEEVENTS_STORAGE_BACKEND", "postgres")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"sqlite backend", func(c *Config) { c.Storage.Backend = BackendSQLite }, ""},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }, "storage.data_dir"},
		{"empty data dir with sqlite", func(c *Config) {
			c.Storage.Backend = BackendSQLite
			c.Storage.DataDir = ""
		}, ""},
		{"empty sqlite path", func(c *Config) {
			c.Storage.Backend = BackendSQLite
			c.Storage.SQLitePath = ""
		}, "storage.sqlite_path"},
		{"zero concurrency", func(c *Config) { c.Storage.ListConcurrency = 0 }, "list_concurrency"},
		{"empty listen addr", func(c *Config) { c.API.ListenAddr = "" }, "api.listen_addr"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validCfg()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAPIConfigStringMasksToken(t *testing.T) {
	c := APIConfig{ListenAddr: ":8080", AuthToken: "tok-1234567890abcdef"}
	s := c.String()
	assert.Contains(t, s, "tok-")
	assert.NotContains(t, s, "1234567890")

	short := APIConfig{AuthToken: "abc"}
	assert.Contains(t, short.String(), "***")
}
