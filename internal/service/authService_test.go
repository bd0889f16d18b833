package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signTestToken(t *testing.T, secret string, method jwt.SigningMethod, claims AdminClaims) string {
	t.Helper()
	var key interface{} = []byte(secret)
	signed, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func adminClaims(expiresIn time.Duration) AdminClaims {
	now := time.Now()
	return AdminClaims{
		Email: "ops@example.com",
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewAuthService(nil, "test-secret", 24)

	t.Run("valid token round trip", func(t *testing.T) {
		token := signTestToken(t, "test-secret", jwt.SigningMethodHS256, adminClaims(time.Hour))

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "ops@example.com", claims.Email)
		assert.Equal(t, "admin", claims.Role)
		assert.Equal(t, "user-1", claims.Subject)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token := signTestToken(t, "test-secret", jwt.SigningMethodHS256, adminClaims(-time.Minute))

		_, err := svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token := signTestToken(t, "other-secret", jwt.SigningMethodHS256, adminClaims(time.Hour))

		_, err := svc.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.Error(t, err)
	})
}
