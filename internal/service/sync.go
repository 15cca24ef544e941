package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/manualshelf/manualshelf-server/internal/domain"
	domainerrors "github.com/manualshelf/manualshelf-server/internal/errors"
	"github.com/manualshelf/manualshelf-server/internal/sse"
	"github.com/manualshelf/manualshelf-server/internal/store"
)

// SyncOptions tunes the status timings.
type SyncOptions struct {
	SettleDelay  time.Duration // After a local change, before "synced"
	ConfirmDelay time.Duration // After a successful ForceSync, before "synced"
}

// DefaultSyncOptions returns the production timings.
func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		SettleDelay:  2 * time.Second,
		ConfirmDelay: time.Second,
	}
}

// flusher makes buffered payload writes durable.
type flusher interface {
	Sync() error
}

// SyncService drives the sync status indicator and broadcasts every
// transition. It sits between the store and the event stream: the store
// emits into it, it forwards to the stream and treats each committed change
// as a local change.
type SyncService struct {
	store    store.Store
	blobs    flusher
	accounts AccountChecker
	events   store.EventEmitter
	opts     SyncOptions
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	status domain.SyncStatus
	gen    uint64 // Bumped on every transition; stale timers compare against it
	timer  *time.Timer
	closed bool
}

// NewSyncService creates a new sync service in the unknown state.
func NewSyncService(
	metadata store.Store,
	blobs flusher,
	accounts AccountChecker,
	events store.EventEmitter,
	opts SyncOptions,
	logger *slog.Logger,
) *SyncService {
	if events == nil {
		events = store.NoopEmitter{}
	}
	return &SyncService{
		store:    metadata,
		blobs:    blobs,
		accounts: accounts,
		events:   events,
		opts:     opts,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		status:   domain.SyncStatus{State: domain.SyncUnknown},
	}
}

// Start checks the account and settles changes left pending by a previous run.
func (s *SyncService) Start(ctx context.Context) error {
	s.CheckAccount(ctx)

	state, err := s.store.GetSyncState(ctx)
	if err != nil {
		return fmt.Errorf("load sync state: %w", err)
	}
	if state.Pending() {
		s.localChange(state.ChangeToken)
	} else {
		s.mu.Lock()
		s.status.ChangeToken = state.ChangeToken
		s.mu.Unlock()
	}
	return nil
}

// Shutdown stops pending transitions.
func (s *SyncService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
}

// Status returns the current indicator snapshot.
func (s *SyncService) Status() domain.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// StatusEvent returns the current snapshot as a stream event.
func (s *SyncService) StatusEvent() sse.Event {
	return sse.NewSyncStatusEvent(s.Status())
}

// Emit forwards event to the stream. A committed store change also marks
// the shelf as syncing until the settle delay passes without another one.
func (s *SyncService) Emit(event any) {
	s.events.Emit(event)
	if c, ok := event.(store.Change); ok {
		s.localChange(c.Token)
	}
}

func (s *SyncService) localChange(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.status.ChangeToken = token
	s.setLocked(domain.SyncSyncing, "")
	s.scheduleLocked(s.opts.SettleDelay, s.settle)
}

// settle records the current token as synced once changes have quiesced.
func (s *SyncService) settle(gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := s.now()
	state, err := s.store.GetSyncState(ctx)
	if err == nil {
		err = s.store.MarkSynced(ctx, state.ChangeToken, now)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		return
	}
	if err != nil {
		s.logger.Error("failed to record sync", "error", err)
		s.setLocked(domain.SyncError, "sync failed: "+err.Error())
		return
	}
	s.status.LastSyncAt = &now
	s.setLocked(domain.SyncSynced, "")
}

// ForceSync flushes the blob store and checkpoints the database, then
// reports synced after the confirm delay. With nothing pending it re-checks
// the account instead.
func (s *SyncService) ForceSync(ctx context.Context) error {
	state, err := s.store.GetSyncState(ctx)
	if err != nil {
		s.fail(err)
		return domainerrors.Persistence(err, "sync failed")
	}
	if !state.Pending() {
		s.logger.Debug("force sync with nothing pending, checking account")
		s.CheckAccount(ctx)
		return nil
	}

	s.mu.Lock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.setLocked(domain.SyncSyncing, "")
	s.mu.Unlock()

	if err := s.flush(ctx, state.ChangeToken); err != nil {
		s.logger.Error("force sync failed", "error", err)
		s.fail(err)
		return domainerrors.Persistence(err, "sync failed")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.scheduleLocked(s.opts.ConfirmDelay, s.confirm)
	return nil
}

func (s *SyncService) flush(ctx context.Context, token string) error {
	if err := s.blobs.Sync(); err != nil {
		return fmt.Errorf("flush blobs: %w", err)
	}
	if err := s.store.Checkpoint(ctx); err != nil {
		return err
	}
	return s.store.MarkSynced(ctx, token, s.now())
}

func (s *SyncService) confirm(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.closed {
		return
	}
	now := s.now()
	s.status.LastSyncAt = &now
	s.setLocked(domain.SyncSynced, "")
}

func (s *SyncService) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.setLocked(domain.SyncError, "sync failed: "+err.Error())
}

// CheckAccount refreshes the account status. An available account is
// synced as of now; any other status is an error carrying its message.
func (s *SyncService) CheckAccount(ctx context.Context) domain.AccountStatus {
	account := s.accounts.AccountStatus(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.status.Account = account

	if account == domain.AccountAvailable {
		now := s.now()
		s.status.LastSyncAt = &now
		s.setLocked(domain.SyncSynced, "")
	} else {
		s.setLocked(domain.SyncError, account.Message())
	}

	s.logger.Debug("account checked", "account", string(account))
	return account
}

// scheduleLocked runs fn after d unless another transition happens first.
func (s *SyncService) scheduleLocked(d time.Duration, fn func(gen uint64)) {
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(d, func() { fn(gen) })
}

// setLocked applies a transition and broadcasts the new snapshot.
func (s *SyncService) setLocked(state domain.SyncState, message string) {
	s.status.State = state
	s.status.Message = message
	s.events.Emit(sse.NewSyncStatusEvent(s.status))
}
