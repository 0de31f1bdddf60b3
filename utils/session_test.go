package utils

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("SECRET_KEY", "test-secret")
	os.Exit(m.Run())
}

func TestSessionRoundTrip(t *testing.T) {
	cookie, err := CreateSession(7, "someone@example.com", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, cookie)

	sess, ok := ResolveSession(cookie)
	require.True(t, ok)
	assert.Equal(t, uint(7), sess.UserID)
	assert.Equal(t, "someone@example.com", sess.Email)

	DeleteSession(cookie)
	_, ok = ResolveSession(cookie)
	assert.False(t, ok)
}

func TestSessionRejectsTamperedCookie(t *testing.T) {
	cookie, err := CreateSession(8, "other@example.com", time.Hour)
	require.NoError(t, err)

	token, sig, found := strings.Cut(cookie, ".")
	require.True(t, found)

	// flip the token while keeping the old signature
	_, ok := ResolveSession("11111111-2222-3333-4444-555555555555." + sig)
	assert.False(t, ok)

	// garbage signature
	_, ok = ResolveSession(token + ".deadbeef")
	assert.False(t, ok)

	// no signature at all
	_, ok = ResolveSession(token)
	assert.False(t, ok)
}

func TestExpiredSessionsArePruned(t *testing.T) {
	cookie, err := CreateSession(10, "stale@example.com", time.Millisecond)
	require.NoError(t, err)

	token, _, found := strings.Cut(cookie, ".")
	require.True(t, found)

	time.Sleep(5 * time.Millisecond)
	pruneExpiredSessions(time.Now())

	sessionsMu.RLock()
	_, ok := sessions[token]
	sessionsMu.RUnlock()
	assert.False(t, ok)
}

func TestSessionExpiry(t *testing.T) {
	cookie, err := CreateSession(9, "short@example.com", time.Millisecond)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, ok := ResolveSession(cookie)
	assert.False(t, ok)
}
