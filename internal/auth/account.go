package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPassphrase is returned when a session is requested with a wrong
// passphrase or when no account is configured.
var ErrInvalidPassphrase = errors.New("invalid passphrase")

// Account is the optional sync account of the shelf owner.
type Account struct {
	hash     string
	readOnly bool
	tokens   *TokenService
}

// NewAccount hashes passphrase for the lifetime of the process. An empty
// passphrase means no account is configured.
func NewAccount(passphrase string, readOnly bool, tokens *TokenService) (*Account, error) {
	a := &Account{readOnly: readOnly, tokens: tokens}
	if passphrase == "" {
		return a, nil
	}
	hash, err := HashPassphrase(passphrase)
	if err != nil {
		return nil, fmt.Errorf("hash sync passphrase: %w", err)
	}
	a.hash = hash
	return a, nil
}

// Exists reports whether a passphrase is configured.
func (a *Account) Exists() bool {
	return a.hash != ""
}

// ReadOnly reports whether the deployment refuses writes from sync clients.
func (a *Account) ReadOnly() bool {
	return a.readOnly
}

// CreateSession exchanges the passphrase for a session token.
func (a *Account) CreateSession(passphrase string) (string, time.Time, error) {
	if !a.Exists() || !VerifyPassphrase(a.hash, passphrase) {
		return "", time.Time{}, ErrInvalidPassphrase
	}
	return a.tokens.Issue()
}

// Authorize checks a bearer token. Without an account every request is
// authorized.
func (a *Account) Authorize(token string) error {
	if !a.Exists() {
		return nil
	}
	if token == "" {
		return errors.New("missing session token")
	}
	_, err := a.tokens.Verify(token)
	return err
}
