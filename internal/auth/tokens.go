package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/manualshelf/manualshelf-server/internal/id"
)

const (
	tokenIssuer   = "manualshelf-server"
	tokenAudience = "manualshelf-client"
)

// TokenService issues and verifies session tokens.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
	ttl          time.Duration
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, ttl time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be %d bytes, got %d", keyLength, len(key))
	}
	k, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("create PASETO symmetric key: %w", err)
	}
	return &TokenService{symmetricKey: k, ttl: ttl}, nil
}

// Issue creates an encrypted session token and returns it with its expiry.
func (s *TokenService) Issue() (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.ttl)

	sessionID, err := id.Generate(id.PrefixSession)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate session ID: %w", err)
	}
	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token ID: %w", err)
	}

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)
	token.SetJti(tokenID)
	token.SetString("sid", sessionID)

	return token.V4Encrypt(s.symmetricKey, nil), expires, nil
}

// Verify decrypts tokenString and checks its audience, issuer and validity window.
func (s *TokenService) Verify(tokenString string) (*SessionClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(time.Now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims SessionClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	return &claims, nil
}

// TTL returns the session lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}
