package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-signing-secret")

func TestToken_RoundTrip(t *testing.T) {
	token, err := GenerateToken(42, secret, time.Hour)
	require.NoError(t, err)

	userID, err := UserIDFromToken(token, secret)
	require.NoError(t, err)
	assert.EqualValues(t, 42, userID)
}

func TestToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken(42, secret, time.Hour)
	require.NoError(t, err)

	_, err = UserIDFromToken(token, []byte("other-secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_Expired(t *testing.T) {
	token, err := GenerateToken(42, secret, -time.Minute)
	require.NoError(t, err)

	_, err = UserIDFromToken(token, secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestToken_Garbage(t *testing.T) {
	_, err := UserIDFromToken("not.a.token", secret)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
