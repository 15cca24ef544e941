package providers

import (
	"log/slog"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"

	"github.com/manualshelf/manualshelf-server/internal/config"
	"github.com/manualshelf/manualshelf-server/internal/logger"
)

// ConfigProvider returns a provider that loads the configuration with fs
// as the highest-priority source. fs may be nil.
func ConfigProvider(fs *pflag.FlagSet) func(do.Injector) (*config.Config, error) {
	return func(do.Injector) (*config.Config, error) {
		return config.Load(fs)
	}
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
		File:        cfg.Logger.File,
		MaxSizeMB:   cfg.Logger.MaxSizeMB,
		MaxBackups:  cfg.Logger.MaxBackups,
		MaxAgeDays:  cfg.Logger.MaxAgeDays,
	})

	log.Info("Starting ManualShelf",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"data_path", cfg.Data.Path,
		"inbox_path", cfg.Inbox.Path,
		"read_only", cfg.Sync.ReadOnly,
	)

	return log, nil
}

// ProvideSlogLogger provides access to the underlying slog.Logger for packages that need it.
func ProvideSlogLogger(i do.Injector) (*slog.Logger, error) {
	log := do.MustInvoke[*logger.Logger](i)
	return log.Logger, nil
}
