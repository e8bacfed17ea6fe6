package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/strategy-engine/internal/config"
)

func newTestJWTService(secret string) *JWTService {
	return NewJWTService(&config.JWTConfig{Secret: secret, ExpirationHours: 1})
}

func TestJWTRoundTrip(t *testing.T) {
	service := newTestJWTService("test-secret")

	token, err := service.GenerateToken("alex@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alex@example.com", claims.GetOperator())
}

func TestJWTRejectsEmptyOperator(t *testing.T) {
	service := newTestJWTService("test-secret")

	_, err := service.GenerateToken("")
	require.Error(t, err)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	token, err := newTestJWTService("secret-a").GenerateToken("alex@example.com")
	require.NoError(t, err)

	_, err = newTestJWTService("secret-b").ValidateToken(token)
	require.Error(t, err)
}

func TestJWTRejectsGarbage(t *testing.T) {
	service := newTestJWTService("test-secret")

	_, err := service.ValidateToken("")
	require.Error(t, err)

	_, err = service.ValidateToken("not.a.token")
	require.Error(t, err)
}
