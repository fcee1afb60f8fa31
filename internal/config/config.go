package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// BackendFile stores one JSON document per timeline in a directory.
	BackendFile = "file"

	// BackendSQLite stores one row per timeline in a SQLite database.
	BackendSQLite = "sqlite"

	// DefaultListConcurrency is the default number of parallel document reads when listing.
	DefaultListConcurrency = 8
)

// Config holds all configuration for simpleevents.
type Config struct {
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	API     APIConfig     `mapstructure:"api"`
}

// StorageConfig selects and configures the timeline document store.
type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	DataDir         string `mapstructure:"data_dir"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	ListConcurrency int    `mapstructure:"list_concurrency"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
	AuthToken  string `mapstructure:"auth_token"`
	StaticDir  string `mapstructure:"static_dir"`
	CORSOrigin string `mapstructure:"cors_origin"`
}

// String returns a safe representation of APIConfig with the token masked.
func (c APIConfig) String() string {
	return fmt.Sprintf("APIConfig{ListenAddr:%s, AuthToken:%s, StaticDir:%s, CORSOrigin:%s}",
		c.ListenAddr, maskToken(c.AuthToken), c.StaticDir, c.CORSOrigin)
}

// maskToken shows first 4 + last 4 chars, replacing the middle with asterisks.
func maskToken(token string) string {
	const visible = 4
	if token == "" {
		return ""
	}
	if len(token) <= visible*2 {
		return "***"
	}
	return token[:visible] + "****" + token[len(token)-visible:]
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load() (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.data_dir", "data")
	v.SetDefault("storage.sqlite_path", filepath.Join("data", "timelines.db"))
	v.SetDefault("storage.list_concurrency", DefaultListConcurrency)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("api.listen_addr", ":8080")
	v.SetDefault("api.auth_token", "")
	v.SetDefault("api.static_dir", "")
	v.SetDefault("api.cors_origin", "*")

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(homeDir(), ".simpleevents"))
	v.AddConfigPath(".")

	// Environment variables
	v.SetEnvPrefix("SIMPLEEVENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map specific env vars
	_ = v.BindEnv("storage.backend", "SIMPLEEVENTS_STORAGE_BACKEND")
	_ = v.BindEnv("storage.data_dir", "SIMPLEEVENTS_DATA_DIR")
	_ = v.BindEnv("storage.sqlite_path", "SIMPLEEVENTS_SQLITE_PATH")
	_ = v.BindEnv("storage.list_concurrency", "SIMPLEEVENTS_STORAGE_LIST_CONCURRENCY")
	_ = v.BindEnv("api.listen_addr", "SIMPLEEVENTS_API_LISTEN_ADDR")
	_ = v.BindEnv("api.auth_token", "SIMPLEEVENTS_API_AUTH_TOKEN")
	_ = v.BindEnv("api.static_dir", "SIMPLEEVENTS_API_STATIC_DIR")
	_ = v.BindEnv("api.cors_origin", "SIMPLEEVENTS_API_CORS_ORIGIN")
	_ = v.BindEnv("logging.level", "SIMPLEEVENTS_LOG_LEVEL")
	_ = v.BindEnv("logging.format", "SIMPLEEVENTS_LOG_FORMAT")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK; use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are set and consistent.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.DataDir == "" {
			return fmt.Errorf("storage.data_dir must not be empty for the file backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path must not be empty for the sqlite backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", BackendFile, BackendSQLite, c.Storage.Backend)
	}
	if c.Storage.ListConcurrency < 1 {
		return fmt.Errorf("storage.list_concurrency must be at least 1")
	}
	if c.API.ListenAddr == "" {
		return fmt.Errorf("api.listen_addr must not be empty")
	}
	switch c.Logging.Level {
	case "debug", "info":
	default:
		return fmt.Errorf("logging.level must be debug or info, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
