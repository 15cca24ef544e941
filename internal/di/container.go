// Package di wires the ManualShelf server together with samber/do.
package di

import (
	"github.com/samber/do/v2"
	"github.com/spf13/pflag"

	"github.com/manualshelf/manualshelf-server/internal/api"
	"github.com/manualshelf/manualshelf-server/internal/auth"
	"github.com/manualshelf/manualshelf-server/internal/backup"
	"github.com/manualshelf/manualshelf-server/internal/config"
	"github.com/manualshelf/manualshelf-server/internal/di/providers"
	"github.com/manualshelf/manualshelf-server/internal/logger"
	"github.com/manualshelf/manualshelf-server/internal/media/images"
	"github.com/manualshelf/manualshelf-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// fs carries the command-line flags and may be nil.
func NewContainer(fs *pflag.FlagSet) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ConfigProvider(fs))
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)
	do.Provide(injector, providers.ProvideAuthKey)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideBlobStore)
	do.Provide(injector, providers.ProvideThumbnailStorage)
	do.Provide(injector, providers.ProvideImageProcessor)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideSearchService)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)
	do.Provide(injector, providers.ProvideAccount)

	// Business services
	do.Provide(injector, providers.ProvideTagService)
	do.Provide(injector, providers.ProvideManualService)
	do.Provide(injector, providers.ProvideAccountService)
	do.Provide(injector, providers.ProvideSyncService)
	do.Provide(injector, providers.ProvideExporter)
	do.Provide(injector, providers.ProvideInboxService)

	// Workers
	do.Provide(injector, providers.ProvideInboxWatcher)
	do.Provide(injector, providers.ProvideRateLimiter)

	// Server
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes every service and starts the server and workers.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[providers.AuthKey](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.BlobHandle](injector)
	_ = do.MustInvoke[*images.Processor](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*service.SearchService](injector)
	_ = do.MustInvoke[*auth.TokenService](injector)
	_ = do.MustInvoke[*auth.Account](injector)

	// Business services
	_ = do.MustInvoke[*service.TagService](injector)
	_ = do.MustInvoke[*service.ManualService](injector)
	_ = do.MustInvoke[*service.AccountService](injector)
	_ = do.MustInvoke[*service.SyncService](injector)
	_ = do.MustInvoke[*backup.Exporter](injector)

	providers.CollectOrphanPayloads(injector)

	// Workers
	_ = do.MustInvoke[*providers.InboxHandle](injector)
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)

	// Server
	_ = do.MustInvoke[*api.Server](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
