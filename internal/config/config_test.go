package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:       AppConfig{Environment: "development"},
		Logger:    LoggerConfig{Level: "info"},
		Data:      DataConfig{Path: "/some/path"},
		Server:    ServerConfig{Port: "8080"},
		Upload:    UploadConfig{MaxBytes: 1 << 20},
		RateLimit: RateLimitConfig{RPS: 2, Burst: 10},
	}
}

// newFlags returns a flag set the way the CLI registers it, isolated from the
// working directory's .env and config.yaml.
func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	dir := t.TempDir()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	base := []string{
		"--env-file", filepath.Join(dir, ".env"),
		"--config", "",
	}
	require.NoError(t, fs.Parse(append(base, args...)))
	return fs
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
		{"DEVELOPMENT", false}, // case sensitive
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

func TestValidate_AllLogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"warn", true},
		{"error", true},
		{"DEBUG", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Data.Path = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data path cannot be empty")
}

func TestValidate_NonNumericPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = "http"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}

func TestExpandDataPath_EmptyUsesDefault(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.expandDataPath())

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "ManualShelf", "data"), cfg.Data.Path)
}

func TestExpandDataPath_TildeExpansion(t *testing.T) {
	cfg := &Config{Data: DataConfig{Path: "~/shelf"}}
	require.NoError(t, cfg.expandDataPath())

	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(homeDir, "shelf"), cfg.Data.Path)
}

func TestExpandDataPath_RelativePath(t *testing.T) {
	cfg := &Config{Data: DataConfig{Path: "relative/path"}}
	require.NoError(t, cfg.expandDataPath())

	assert.True(t, filepath.IsAbs(cfg.Data.Path))
	assert.Contains(t, cfg.Data.Path, "relative/path")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MANUALSHELF_DATA_PATH", t.TempDir())

	cfg, err := Load(newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Second, cfg.Sync.SettleDelay)
	assert.True(t, cfg.Tags.AutoPrune)
	assert.False(t, cfg.Sync.ReadOnly)
	assert.Equal(t, int64(100<<20), cfg.Upload.MaxBytes)
	assert.Empty(t, cfg.Inbox.Path)
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	t.Setenv("MANUALSHELF_DATA_PATH", t.TempDir())
	t.Setenv("MANUALSHELF_SERVER_PORT", "9000")
	t.Setenv("MANUALSHELF_LOG_LEVEL", "warn")

	cfg, err := Load(newFlags(t, "--port", "9100"))
	require.NoError(t, err)

	assert.Equal(t, "9100", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logger.Level)
}

func TestLoad_EnvFileDoesNotOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "MANUALSHELF_LOG_LEVEL=debug\nMANUALSHELF_SERVER_PORT=7000\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("MANUALSHELF_DATA_PATH", dir)
	t.Setenv("MANUALSHELF_SERVER_PORT", "7100")
	t.Setenv("MANUALSHELF_LOG_LEVEL", "")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"--env-file", envFile}))

	cfg, err := Load(fs)
	require.NoError(t, err)

	assert.Equal(t, "7100", cfg.Server.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
env: staging
data:
  path: ` + dir + `
sync:
  settle_delay: 5s
tags:
  auto_prune: false
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o600))

	cfg, err := Load(newFlags(t, "--config", configFile))
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, dir, cfg.Data.Path)
	assert.Equal(t, 5*time.Second, cfg.Sync.SettleDelay)
	assert.False(t, cfg.Tags.AutoPrune)
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("MANUALSHELF_DATA_PATH", t.TempDir())
	t.Setenv("MANUALSHELF_ENV", "qa")

	_, err := Load(newFlags(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid environment")
}
