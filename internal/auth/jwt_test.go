package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"bookhub/pkg/utils"
)

func newTestTokens(secret, issuer string, ttl time.Duration) TokenService {
	return NewTokenService(utils.AuthConfig{
		JWTSecret:   secret,
		JWTIssuer:   issuer,
		JWTDuration: ttl,
	})
}

func TestTokenRoundTrip(t *testing.T) {
	ts := newTestTokens("test-secret", "bookhub-test", time.Hour)
	u := &User{ID: "u-1", Username: "reader", Email: "reader@example.com"}

	token, exp, err := ts.Issue(u)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "u-1", claims.UserID())
	require.Equal(t, "reader", claims.Username)
	require.Equal(t, "bookhub-test", claims.Issuer)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	ts := newTestTokens("right", "bookhub", time.Hour)
	token, _, err := ts.Issue(&User{ID: "u-1"})
	require.NoError(t, err)

	other := newTestTokens("wrong", "bookhub", time.Hour)
	_, err = other.Parse(token)
	require.Error(t, err)
}

func TestParseRejectsForeignIssuer(t *testing.T) {
	// same secret, different deployment
	ts := newTestTokens("shared", "bookhub", time.Hour)
	token, _, err := newTestTokens("shared", "somewhere-else", time.Hour).Issue(&User{ID: "u-1"})
	require.NoError(t, err)

	_, err = ts.Parse(token)
	require.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	ts := newTestTokens("s", "bookhub", -time.Minute)
	token, _, err := ts.Issue(&User{ID: "u-1"})
	require.NoError(t, err)

	_, err = ts.Parse(token)
	require.Error(t, err)
}
