package session

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/floroz/gavel-client/pkg/auth"
)

func newSigner(t *testing.T, now func() time.Time) *auth.Signer {
	t.Helper()
	priv, pub, err := auth.GenerateKeyPair(2048)
	require.NoError(t, err)
	signer, err := auth.NewSigner(priv, pub, "test-issuer", auth.WithClock(now))
	require.NoError(t, err)
	return signer
}

func TestSession_SignedOutByDefault(t *testing.T) {
	s := New()

	_, ok := s.Token()
	assert.False(t, ok)
	assert.False(t, s.SignedIn())
	_, ok = s.User()
	assert.False(t, ok)
}

func TestSession_SignInWithJWT(t *testing.T) {
	// Arrange
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	userID := uuid.New()
	pair, err := newSigner(t, clock).GenerateTokens(userID, "ana@example.com", "Ana Reyes", nil)
	require.NoError(t, err)
	s := New(WithClock(clock))

	// Act
	require.NoError(t, s.SignIn(pair.AccessToken))

	// Assert
	token, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, pair.AccessToken, token)

	user, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, User{ID: userID, Email: "ana@example.com", Name: "Ana Reyes"}, user)

	t.Run("expired token counts as signed out", func(t *testing.T) {
		now = now.Add(auth.DefaultAccessTTL + time.Second)
		assert.False(t, s.SignedIn())
		_, ok := s.Token()
		assert.False(t, ok)
	})
}

func TestSession_OpaqueToken(t *testing.T) {
	s := New()

	require.NoError(t, s.SignIn("  opaque-token-123 "))

	token, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, "opaque-token-123", token)
	_, ok = s.User()
	assert.False(t, ok)
}

func TestSession_SignInRejectsEmpty(t *testing.T) {
	s := New()
	assert.ErrorIs(t, s.SignIn("   "), ErrEmptyToken)
}

func TestSession_SignOut(t *testing.T) {
	s := New()
	require.NoError(t, s.SignIn("token"))

	s.SignOut()

	assert.False(t, s.SignedIn())
	_, ok := s.Token()
	assert.False(t, ok)
}
