package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManager_AccessTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Hour)

	raw, exp, err := m.GenerateAccessToken("user-1", "anna@x.it", "sess-1")
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	claims, err := m.VerifyAccessToken(raw)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "anna@x.it", claims.Email)
	require.Equal(t, "sess-1", claims.SessionID)

	_, err = m.VerifyRefreshToken(raw)
	require.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestManager_RefreshTokenCarriesSessionID(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Hour)

	raw, sid, _, err := m.GenerateRefreshToken("user-1", "anna@x.it")
	require.NoError(t, err)

	claims, err := m.VerifyRefreshToken(raw)
	require.NoError(t, err)
	require.Equal(t, sid, claims.JTI)
	require.Equal(t, sid, claims.SessionID)

	_, err = m.VerifyAccessToken(raw)
	require.ErrorIs(t, err, ErrInvalidTokenType)
}

func TestManager_RejectsExpiredAndForeignTokens(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Hour)
	raw, _, err := func() (string, time.Time, error) {
		m.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
		defer func() { m.now = func() time.Time { return time.Now().UTC() } }()
		return m.GenerateAccessToken("user-1", "a@x.it", "sess-1")
	}()
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(raw)
	require.Error(t, err)

	other := NewManager("other-secret", time.Minute, time.Hour)
	foreign, _, err := other.GenerateAccessToken("user-1", "a@x.it", "sess-1")
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(foreign)
	require.Error(t, err)
}

func TestManager_HashRefreshTokenIsDeterministic(t *testing.T) {
	m := NewManager("test-secret", time.Minute, time.Hour)
	require.Equal(t, m.HashRefreshToken("abc"), m.HashRefreshToken("abc"))
	require.NotEqual(t, m.HashRefreshToken("abc"), m.HashRefreshToken("abd"))
}
