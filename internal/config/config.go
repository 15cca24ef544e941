// Package config loads application configuration from flags, environment variables, .env files and an optional config file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable, e.g. MANUALSHELF_DATA_PATH.
const EnvPrefix = "MANUALSHELF"

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Inbox     InboxConfig
	Server    ServerConfig
	Sync      SyncConfig
	Tags      TagsConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level      string
	File       string // Optional log file, rotated by size
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// DataConfig holds storage locations.
type DataConfig struct {
	Path string // Root for the database, blob store and search index
}

// InboxConfig holds the watched import folder.
type InboxConfig struct {
	Path string // Optional; empty disables the inbox watcher
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxConnections int // 0 means unlimited
}

// SyncConfig holds the sync account and status settings.
type SyncConfig struct {
	Passphrase    string        // Empty means no sync account
	SettleDelay   time.Duration // Time a change stays "syncing" before "synced"
	ReadOnly      bool          // Reports the account as restricted and blocks writes
	TokenDuration time.Duration
}

// TagsConfig holds tag housekeeping settings.
type TagsConfig struct {
	AutoPrune bool // Delete orphan tags after manual and file deletes
}

// UploadConfig holds upload limits.
type UploadConfig struct {
	MaxBytes int64
}

// RateLimitConfig holds per-client limits for uploads and session creation.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"env":                 "env",
	"log-level":           "log.level",
	"log-file":            "log.file",
	"data-path":           "data.path",
	"inbox-path":          "inbox.path",
	"port":                "server.port",
	"read-timeout":        "server.read_timeout",
	"write-timeout":       "server.write_timeout",
	"idle-timeout":        "server.idle_timeout",
	"max-connections":     "server.max_connections",
	"sync-passphrase":     "sync.passphrase",
	"sync-settle-delay":   "sync.settle_delay",
	"read-only":           "sync.read_only",
	"auto-prune-tags":     "tags.auto_prune",
	"upload-max-bytes":    "upload.max_bytes",
	"rate-limit-rps":      "ratelimit.rps",
	"rate-limit-burst":    "ratelimit.burst",
	"sync-token-duration": "sync.token_duration",
}

// RegisterFlags defines the configuration flags on fs.
// Defaults live in setDefaults, so flags left unset fall through to env and files.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "Path to config file (default: ./config.yaml)")
	fs.String("env-file", ".env", "Path to .env file")
	fs.String("env", "", "Environment (development, staging, production)")
	fs.String("log-level", "", "Log level (debug, info, warn, error)")
	fs.String("log-file", "", "Also write logs to this file, rotated by size")
	fs.String("data-path", "", "Base path for database, blobs and search index")
	fs.String("inbox-path", "", "Folder watched for files to import")
	fs.String("port", "", "Server port (default: 8080)")
	fs.Duration("read-timeout", 0, "HTTP read timeout (default: 30s)")
	fs.Duration("write-timeout", 0, "HTTP write timeout (default: 60s)")
	fs.Duration("idle-timeout", 0, "HTTP idle timeout (default: 120s)")
	fs.Int("max-connections", 0, "Maximum concurrent connections (0 = unlimited)")
	fs.String("sync-passphrase", "", "Passphrase for the sync account")
	fs.Duration("sync-settle-delay", 0, "How long a change shows as syncing (default: 2s)")
	fs.Bool("read-only", false, "Serve the shelf read-only")
	fs.Bool("auto-prune-tags", true, "Delete orphan tags after deletes")
	fs.Int64("upload-max-bytes", 0, "Maximum upload size in bytes (default: 100MiB)")
	fs.Float64("rate-limit-rps", 0, "Upload requests per second per client (default: 2)")
	fs.Int("rate-limit-burst", 0, "Upload burst per client (default: 10)")
	fs.Duration("sync-token-duration", 0, "Lifetime of sync session tokens (default: 720h)")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("data.path", "")
	v.SetDefault("inbox.path", "")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.max_connections", 0)
	v.SetDefault("sync.passphrase", "")
	v.SetDefault("sync.settle_delay", "2s")
	v.SetDefault("sync.read_only", false)
	v.SetDefault("sync.token_duration", "720h")
	v.SetDefault("tags.auto_prune", true)
	v.SetDefault("upload.max_bytes", 100<<20)
	v.SetDefault("ratelimit.rps", 2.0)
	v.SetDefault("ratelimit.burst", 10)
}

// Load builds the configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables (MANUALSHELF_*).
// 3. .env file.
// 4. Config file.
// 5. Default values (lowest priority).
//
// fs may be nil, in which case only the environment, files and defaults apply.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	envFile, configFile := ".env", ""
	if fs != nil {
		if f := fs.Lookup("env-file"); f != nil {
			envFile = f.Value.String()
		}
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}

	// .env never overrides variables that are already set.
	_ = godotenv.Load(envFile)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		App: AppConfig{
			Environment: v.GetString("env"),
		},
		Logger: LoggerConfig{
			Level:      v.GetString("log.level"),
			File:       v.GetString("log.file"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
		Data: DataConfig{
			Path: v.GetString("data.path"),
		},
		Inbox: InboxConfig{
			Path: v.GetString("inbox.path"),
		},
		Server: ServerConfig{
			Port:           v.GetString("server.port"),
			ReadTimeout:    v.GetDuration("server.read_timeout"),
			WriteTimeout:   v.GetDuration("server.write_timeout"),
			IdleTimeout:    v.GetDuration("server.idle_timeout"),
			MaxConnections: v.GetInt("server.max_connections"),
		},
		Sync: SyncConfig{
			Passphrase:    v.GetString("sync.passphrase"),
			SettleDelay:   v.GetDuration("sync.settle_delay"),
			ReadOnly:      v.GetBool("sync.read_only"),
			TokenDuration: v.GetDuration("sync.token_duration"),
		},
		Tags: TagsConfig{
			AutoPrune: v.GetBool("tags.auto_prune"),
		},
		Upload: UploadConfig{
			MaxBytes: v.GetInt64("upload.max_bytes"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("ratelimit.rps"),
			Burst: v.GetInt("ratelimit.burst"),
		},
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if cfg.Inbox.Path != "" {
		expanded, err := expandPath(cfg.Inbox.Path, "")
		if err != nil {
			return nil, fmt.Errorf("invalid inbox path: %w", err)
		}
		cfg.Inbox.Path = expanded
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("env is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
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

	if c.Data.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("invalid port %q: must be numeric", c.Server.Port)
	}

	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("rate limit rps and burst must be positive")
	}

	if c.Upload.MaxBytes <= 0 {
		return errors.New("upload max bytes must be positive")
	}

	return nil
}

// PortNumber returns the server port as an int.
func (c *Config) PortNumber() int {
	port, _ := strconv.Atoi(c.Server.Port)
	return port
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

// expandDataPath defaults the data path to ~/ManualShelf/data.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "ManualShelf", "data")

	expanded, err := expandPath(c.Data.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Data.Path = expanded
	return nil
}
