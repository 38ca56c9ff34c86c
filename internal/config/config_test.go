package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{Backend: BackendBadger, Path: "/data", Namespace: "bookly"},
		Server:  ServerConfig{Addr: "127.0.0.1:7420"},
		RateLimit: RateLimitConfig{
			RPS:   10,
			Burst: 20,
		},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_LogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "DEBUG"} {
		cfg := validConfig()
		cfg.Logger.Level = level
		assert.NoError(t, cfg.Validate(), level)
	}

	cfg := validConfig()
	cfg.Logger.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestValidate_Storage(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "storage backend")

	cfg = validConfig()
	cfg.Storage.Backend = BackendSQLite
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.Storage.Path = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Storage.Namespace = "book:ly"
	assert.ErrorContains(t, cfg.Validate(), "namespace")
}

func TestValidate_LoopbackOnly(t *testing.T) {
	tests := []struct {
		addr  string
		valid bool
	}{
		{"127.0.0.1:7420", true},
		{"localhost:7420", true},
		{"[::1]:7420", true},
		{"0.0.0.0:7420", false},
		{"192.168.1.10:7420", false},
		{":7420", false},
		{"no-port", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			cfg := validConfig()
			cfg.Server.Addr = tt.addr
			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	cfg := validConfig()
	cfg.Server.Addr = "0.0.0.0:7420"
	cfg.Server.AllowRemote = true
	assert.NoError(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	got, err = expandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)

	got, err = expandPath("/abs/../abs/data", "")
	require.NoError(t, err)
	assert.Equal(t, "/abs/data", got)

	got, err = expandPath("relative", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("BOOKLY_TEST_KEY", "env-value")

	assert.Equal(t, "flag-value", getConfigValue("flag-value", "BOOKLY_TEST_KEY", "default"))
	assert.Equal(t, "env-value", getConfigValue("", "BOOKLY_TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "BOOKLY_TEST_MISSING", "default"))
}

func TestGetBoolConfigValue(t *testing.T) {
	assert.True(t, getBoolConfigValue("yes", "X", false))
	assert.True(t, getBoolConfigValue("TRUE", "X", false))
	assert.False(t, getBoolConfigValue("no", "X", true))
	assert.True(t, getBoolConfigValue("", "BOOKLY_TEST_MISSING", true))
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(Flags{DataPath: dir, EnvFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "bookly", cfg.Storage.Namespace)
	assert.Equal(t, dir, cfg.Storage.Path)
	assert.Equal(t, "127.0.0.1:7420", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.IdleTimeout)
	assert.True(t, cfg.Storage.Watch)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# local settings\nSTORAGE_BACKEND=sqlite\nLOG_LEVEL=\"debug\"\nSTORAGE_NAMESPACE=shelf\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("STORAGE_NAMESPACE", "fromenv")
	t.Cleanup(func() {
		os.Unsetenv("STORAGE_BACKEND") //nolint:errcheck // Test cleanup
		os.Unsetenv("LOG_LEVEL")       //nolint:errcheck // Test cleanup
	})

	cfg, err := Load(Flags{DataPath: dir, EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "fromenv", cfg.Storage.Namespace)
}

func TestLoad_FlagsWin(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STORAGE_BACKEND", "badger")

	cfg, err := Load(Flags{DataPath: dir, StorageBackend: "sqlite", WatchStorage: "false", EnvFile: filepath.Join(dir, "none")})
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.False(t, cfg.Storage.Watch)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SERVER_IDLE_TIMEOUT", "forever")

	_, err := Load(Flags{DataPath: dir, EnvFile: filepath.Join(dir, "none")})
	assert.ErrorContains(t, err, "SERVER_IDLE_TIMEOUT")
}
