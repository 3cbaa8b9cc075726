// internal/auth/session_test.go
package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	require.NoError(t, Init())

	token, err := CreateSessionToken("12345", "host")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	code, role, err := VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "12345", code)
	assert.Equal(t, "host", role)
}

func TestSessionTokensUnique(t *testing.T) {
	require.NoError(t, Init())

	a, err := CreateSessionToken("12345", "player")
	require.NoError(t, err)
	b, err := CreateSessionToken("12345", "player")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	require.NoError(t, Init())

	_, _, err := VerifySessionToken("not-a-jwt")
	assert.Error(t, err)
	_, _, err = VerifySessionToken("")
	assert.Error(t, err)
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	require.NoError(t, Init())
	token, err := CreateSessionToken("12345", "host")
	require.NoError(t, err)

	// Rotating the key pair invalidates previously issued tokens.
	require.NoError(t, Init())
	_, _, err = VerifySessionToken(token)
	assert.Error(t, err)
}
