// Package config loads bookly configuration from flags, environment variables, and .env files.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Storage   StorageConfig
	Catalog   CatalogConfig
	Server    ServerConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig describes where the user collection and overlays live.
type StorageConfig struct {
	Backend   string // badger or sqlite (default: badger)
	Path      string // data directory (default: ~/Bookly/data)
	Namespace string // key prefix (default: bookly)
	// Watch enables the cross-process change watcher. Only the sqlite backend can be shared.
	Watch bool
}

// CatalogConfig controls where the seed catalog comes from.
type CatalogConfig struct {
	// SeedPath overrides the embedded catalog with a JSON file. Empty uses the embedded one.
	SeedPath string
}

// ServerConfig holds the local HTTP adapter configuration.
type ServerConfig struct {
	Addr         string        // listen address (default: 127.0.0.1:7420)
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 15s, ignored by the event stream
	IdleTimeout  time.Duration // default: 60s
	AllowRemote  bool          // permit a non-loopback Addr
}

// RateLimitConfig limits mutating requests per client address.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// Flags carries raw command-line values. Empty strings mean "not given".
type Flags struct {
	Env            string
	LogLevel       string
	DataPath       string
	StorageBackend string
	Namespace      string
	SeedPath       string
	Addr           string
	WatchStorage   string
	EnvFile        string
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values.
func Load(flags Flags) (*Config, error) {
	envFile := flags.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// A missing .env file is fine. godotenv never overrides variables already set.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file %q: %w", envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(flags.Env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(flags.LogLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			Backend:   strings.ToLower(getConfigValue(flags.StorageBackend, "STORAGE_BACKEND", BackendBadger)),
			Path:      getConfigValue(flags.DataPath, "DATA_PATH", ""),
			Namespace: getConfigValue(flags.Namespace, "STORAGE_NAMESPACE", "bookly"),
			Watch:     getBoolConfigValue(flags.WatchStorage, "WATCH_STORAGE", true),
		},
		Catalog: CatalogConfig{
			SeedPath: getConfigValue(flags.SeedPath, "SEED_PATH", ""),
		},
		Server: ServerConfig{
			Addr:        getConfigValue(flags.Addr, "SERVER_ADDR", "127.0.0.1:7420"),
			AllowRemote: getBoolConfigValue("", "SERVER_ALLOW_REMOTE", false),
		},
		RateLimit: RateLimitConfig{
			RPS:   getFloatConfigValue("RATE_LIMIT_RPS", 20),
			Burst: getIntConfigValue("", "RATE_LIMIT_BURST", 40),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = getDurationConfigValue("SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = getDurationConfigValue("SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = getDurationConfigValue("SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	if err := cfg.expandStoragePath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}
	if cfg.Catalog.SeedPath != "" {
		if cfg.Catalog.SeedPath, err = expandPath(cfg.Catalog.SeedPath, ""); err != nil {
			return nil, fmt.Errorf("invalid seed path: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage backend: %q (must be badger or sqlite)", c.Storage.Backend)
	}
	if c.Storage.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}
	if c.Storage.Namespace == "" || strings.Contains(c.Storage.Namespace, ":") {
		return fmt.Errorf("invalid storage namespace: %q", c.Storage.Namespace)
	}

	if err := c.validateAddr(); err != nil {
		return err
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit values must be positive")
	}

	return nil
}

// validateAddr keeps the HTTP adapter on loopback unless remote access is explicitly allowed.
func (c *Config) validateAddr() error {
	host, _, err := net.SplitHostPort(c.Server.Addr)
	if err != nil {
		return fmt.Errorf("invalid server address %q: %w", c.Server.Addr, err)
	}
	if c.Server.AllowRemote {
		return nil
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("server address %q is not a loopback address (set SERVER_ALLOW_REMOTE=true to override)", c.Server.Addr)
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandStoragePath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.Storage.Path, filepath.Join(homeDir, "Bookly", "data"))
	if err != nil {
		return err
	}
	c.Storage.Path = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue accepts "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

func getFloatConfigValue(envKey string, defaultValue float64) float64 {
	strValue := os.Getenv(envKey)
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
}

func getDurationConfigValue(envKey, defaultValue string) (time.Duration, error) {
	raw := getConfigValue("", envKey, defaultValue)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return d, nil
}
