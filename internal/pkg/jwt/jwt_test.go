package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	secret := []byte("secret")
	token, err := GenerateToken("acme", "ops", secret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "acme", claims.TenantID)
	require.Equal(t, "ops", claims.Subject)

	_, err = ParseToken(token, []byte("other"))
	require.Error(t, err)
}

func TestParseRejectsExpiredAndTenantless(t *testing.T) {
	secret := []byte("secret")
	expired, err := GenerateToken("acme", "", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, secret)
	require.Error(t, err)

	noTenant, err := GenerateToken("", "", secret, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(noTenant, secret)
	require.Error(t, err)
}

func TestParseRejectsOtherAlgorithm(t *testing.T) {
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, Claims{TenantID: "acme"})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = ParseToken(signed, []byte("secret"))
	require.Error(t, err)
}
