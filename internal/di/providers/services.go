package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/manualshelf/manualshelf-server/internal/auth"
	"github.com/manualshelf/manualshelf-server/internal/backup"
	"github.com/manualshelf/manualshelf-server/internal/config"
	"github.com/manualshelf/manualshelf-server/internal/logger"
	"github.com/manualshelf/manualshelf-server/internal/media/images"
	"github.com/manualshelf/manualshelf-server/internal/service"
)

// ProvideTagService provides the tag service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewTagService(storeHandle.Store, log.Logger), nil
}

// ProvideManualService provides the manual service.
func ProvideManualService(i do.Injector) (*service.ManualService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobHandle := do.MustInvoke[*BlobHandle](i)
	thumbs := do.MustInvoke[*images.Processor](i)
	tags := do.MustInvoke[*service.TagService](i)
	log := do.MustInvoke[*logger.Logger](i)

	// Resolve the index first so every manual write is reindexed.
	_ = do.MustInvoke[*service.SearchService](i)

	return service.NewManualService(
		storeHandle.Store,
		blobHandle.Store,
		thumbs,
		tags,
		service.ManualOptions{
			MaxUploadBytes: cfg.Upload.MaxBytes,
			AutoPruneTags:  cfg.Tags.AutoPrune,
		},
		log.Logger,
	), nil
}

// ProvideAccountService provides the account status service.
func ProvideAccountService(i do.Injector) (*service.AccountService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	account := do.MustInvoke[*auth.Account](i)

	return service.NewAccountService(account, storeHandle.Store), nil
}

// ProvideSyncService provides the sync status service. It becomes the
// store's emitter and forwards every change to the event stream.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobHandle := do.MustInvoke[*BlobHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	accounts := do.MustInvoke[*service.AccountService](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := service.DefaultSyncOptions()
	if cfg.Sync.SettleDelay > 0 {
		opts.SettleDelay = cfg.Sync.SettleDelay
	}

	svc := service.NewSyncService(storeHandle.Store, blobHandle.Store, accounts, sseHandle.Manager, opts, log.Logger)
	storeHandle.SetEmitter(svc)

	if err := svc.Start(context.Background()); err != nil {
		return nil, err
	}

	log.Info("Sync service started", "status", svc.Status().State)

	return svc, nil
}

// ProvideExporter provides the archive exporter.
func ProvideExporter(i do.Injector) (*backup.Exporter, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blobHandle := do.MustInvoke[*BlobHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return backup.New(storeHandle.Store, blobHandle.Store, log.Logger), nil
}

// CollectOrphanPayloads removes payloads no file references. It must run
// before the inbox watcher and the HTTP server accept uploads.
func CollectOrphanPayloads(i do.Injector) {
	manuals := do.MustInvoke[*service.ManualService](i)
	log := do.MustInvoke[*logger.Logger](i)

	n, err := manuals.CollectPayloads(context.Background())
	if err != nil {
		log.Warn("Orphan payload collection failed", "error", err)
		return
	}
	if n > 0 {
		log.Info("Collected orphan payloads", "count", n)
	}
}
