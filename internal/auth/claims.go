package auth

import "time"

// SessionClaims are the claims of a sync session token. v4.local tokens are
// encrypted, so clients cannot read them.
type SessionClaims struct {
	SessionID string `json:"sid"`

	Issuer     string    `json:"iss"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
