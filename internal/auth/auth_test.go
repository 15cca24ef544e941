package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassphrase(t *testing.T) {
	hash, err := HashPassphrase("correct horse")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=65536,t=3,p=4$"))

	assert.True(t, VerifyPassphrase(hash, "correct horse"))
	assert.False(t, VerifyPassphrase(hash, "battery staple"))
	assert.False(t, VerifyPassphrase("not-a-hash", "correct horse"))
	assert.False(t, VerifyPassphrase(hash, strings.Repeat("x", maxPassphraseLength+1)))

	again, err := HashPassphrase("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "salts differ")
}

func TestHashPassphrase_Rejects(t *testing.T) {
	_, err := HashPassphrase("")
	assert.Error(t, err)
	_, err = HashPassphrase(strings.Repeat("x", maxPassphraseLength+1))
	assert.Error(t, err)
}

func TestLoadOrGenerateKey(t *testing.T) {
	dir := t.TempDir()

	key, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, key, keyLength)

	again, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, key, again)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.key"), []byte("abc"), 0o600))
	_, err = LoadOrGenerateKey(dir)
	assert.Error(t, err)
}

func newTokens(t *testing.T, ttl time.Duration) *TokenService {
	t.Helper()
	key, err := LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := NewTokenService(key, ttl)
	require.NoError(t, err)
	return tokens
}

func TestTokenService_RoundTrip(t *testing.T) {
	tokens := newTokens(t, time.Hour)

	token, expires, err := tokens.Issue()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "v4.local."))
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(claims.SessionID, "ses-"))
	assert.Equal(t, tokenIssuer, claims.Issuer)
}

func TestTokenService_RejectsForeignAndExpired(t *testing.T) {
	tokens := newTokens(t, time.Hour)
	other := newTokens(t, time.Hour)

	token, _, err := other.Issue()
	require.NoError(t, err)
	_, err = tokens.Verify(token)
	assert.Error(t, err)

	expired := newTokens(t, -time.Minute)
	token, _, err = expired.Issue()
	require.NoError(t, err)
	_, err = expired.Verify(token)
	assert.Error(t, err)

	_, err = NewTokenService([]byte("short"), time.Hour)
	assert.Error(t, err)
}

func TestAccount(t *testing.T) {
	tokens := newTokens(t, time.Hour)

	t.Run("no account authorizes everything", func(t *testing.T) {
		a, err := NewAccount("", false, tokens)
		require.NoError(t, err)
		assert.False(t, a.Exists())
		assert.NoError(t, a.Authorize(""))

		_, _, err = a.CreateSession("anything")
		assert.ErrorIs(t, err, ErrInvalidPassphrase)
	})

	t.Run("passphrase gates sessions", func(t *testing.T) {
		a, err := NewAccount("s3cret", true, tokens)
		require.NoError(t, err)
		assert.True(t, a.Exists())
		assert.True(t, a.ReadOnly())

		_, _, err = a.CreateSession("wrong")
		assert.ErrorIs(t, err, ErrInvalidPassphrase)

		token, _, err := a.CreateSession("s3cret")
		require.NoError(t, err)
		assert.NoError(t, a.Authorize(token))
		assert.Error(t, a.Authorize(""))
		assert.Error(t, a.Authorize("v4.local.garbage"))
	})
}
