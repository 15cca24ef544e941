package providers

import (
	"github.com/samber/do/v2"

	"github.com/manualshelf/manualshelf-server/internal/auth"
	"github.com/manualshelf/manualshelf-server/internal/config"
	"github.com/manualshelf/manualshelf-server/internal/logger"
)

// AuthKey wraps the token signing key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the token signing key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(key), cfg.Sync.TokenDuration)
}

// ProvideAccount provides the sync account. Without a passphrase the
// account does not exist and the shelf is open.
func ProvideAccount(i do.Injector) (*auth.Account, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	account, err := auth.NewAccount(cfg.Sync.Passphrase, cfg.Sync.ReadOnly, tokens)
	if err != nil {
		return nil, err
	}

	log.Info("Sync account loaded",
		"exists", account.Exists(),
		"read_only", account.ReadOnly(),
		"token_duration", cfg.Sync.TokenDuration,
	)

	return account, nil
}
