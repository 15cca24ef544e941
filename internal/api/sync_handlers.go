package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/manualshelf/manualshelf-server/internal/domain"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSyncStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync/status",
		Summary:     "Get sync status",
		Description: "Returns the sync indicator state, the account status and the last sync time",
		Tags:        []string{"Sync"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSyncStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "forceSync",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/force",
		Summary:     "Force sync",
		Description: "Flushes pending changes now. With nothing pending the account is re-checked",
		Tags:        []string{"Sync"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleForceSync)

	huma.Register(s.api, huma.Operation{
		OperationID: "checkSyncAccount",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync/check-account",
		Summary:     "Check account",
		Description: "Re-checks the sync account and updates the indicator",
		Tags:        []string{"Sync"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCheckAccount)
}

// SyncStatusOutput wraps the sync status for Huma.
type SyncStatusOutput struct {
	Body domain.SyncStatus
}

func (s *Server) handleGetSyncStatus(_ context.Context, _ *struct{}) (*SyncStatusOutput, error) {
	return &SyncStatusOutput{Body: s.services.Sync.Status()}, nil
}

func (s *Server) handleForceSync(ctx context.Context, _ *struct{}) (*SyncStatusOutput, error) {
	if err := s.services.Sync.ForceSync(ctx); err != nil {
		return nil, err
	}
	return &SyncStatusOutput{Body: s.services.Sync.Status()}, nil
}

func (s *Server) handleCheckAccount(ctx context.Context, _ *struct{}) (*SyncStatusOutput, error) {
	s.services.Sync.CheckAccount(ctx)
	return &SyncStatusOutput{Body: s.services.Sync.Status()}, nil
}
