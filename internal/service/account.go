package service

import (
	"context"
	"errors"

	"github.com/manualshelf/manualshelf-server/internal/auth"
	"github.com/manualshelf/manualshelf-server/internal/domain"
)

// AccountChecker reports the status of the sync account.
type AccountChecker interface {
	AccountStatus(ctx context.Context) domain.AccountStatus
}

// pinger is the part of the store the account check needs.
type pinger interface {
	Ping(ctx context.Context) error
}

// AccountService derives the account status from the configured passphrase,
// the deployment mode and the health of the store.
type AccountService struct {
	account *auth.Account
	store   pinger
}

// NewAccountService creates a new account service.
func NewAccountService(account *auth.Account, store pinger) *AccountService {
	return &AccountService{account: account, store: store}
}

// AccountStatus maps the account onto the five statuses:
//
//	no passphrase                  no_account
//	store unreachable              temporarily_unavailable
//	check canceled or timed out    could_not_determine
//	read-only deployment           restricted
//	otherwise                      available
func (s *AccountService) AccountStatus(ctx context.Context) domain.AccountStatus {
	if s.account == nil || !s.account.Exists() {
		return domain.AccountNoAccount
	}
	if err := s.store.Ping(ctx); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.AccountCouldNotDetermine
		}
		return domain.AccountTemporarilyUnavailable
	}
	if s.account.ReadOnly() {
		return domain.AccountRestricted
	}
	return domain.AccountAvailable
}

// Account returns the underlying account.
func (s *AccountService) Account() *auth.Account {
	return s.account
}
