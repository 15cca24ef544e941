package api

import (
	"github.com/manualshelf/manualshelf-server/internal/backup"
	"github.com/manualshelf/manualshelf-server/internal/service"
)

// Services holds the service layer the handlers call into.
type Services struct {
	Manual   *service.ManualService
	Tag      *service.TagService
	Search   *service.SearchService
	Sync     *service.SyncService
	Account  *service.AccountService
	Exporter *backup.Exporter
}
