package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityTokenRoundTrip(t *testing.T) {
	token, err := GenerateIdentityToken("secret", "resident@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := ParseIdentityToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "resident@example.com", claims.Email)
	assert.Equal(t, "resident@example.com", claims.Subject)
}

func TestParseIdentityTokenRejects(t *testing.T) {
	token, err := GenerateIdentityToken("secret", "resident@example.com", time.Hour)
	require.NoError(t, err)

	_, err = ParseIdentityToken("other", token)
	assert.Error(t, err)

	expired, err := GenerateIdentityToken("secret", "resident@example.com", -time.Minute)
	require.NoError(t, err)
	_, err = ParseIdentityToken("secret", expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noEmail, err := GenerateIdentityToken("secret", "", time.Hour)
	require.NoError(t, err)
	_, err = ParseIdentityToken("secret", noEmail)
	assert.Error(t, err)

	_, err = ParseIdentityToken("secret", "not-a-token")
	assert.Error(t, err)

	_, err = GenerateIdentityToken("", "a@example.com", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySecret)
}
