package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	manager := NewJWTManager("secret-key", 24)

	tokenStr, err := manager.GenerateToken(1, "admin", "ADMIN")
	require.NoError(t, err)
	require.NotEmpty(t, tokenStr)

	claims, err := manager.VerifyToken(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, uint(1), claims.AdminID)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, "ADMIN", claims.Role)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	tokenStr, err := NewJWTManager("secret-a", 24).GenerateToken(1, "admin", "ADMIN")
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", 24).VerifyToken(tokenStr)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	// 过期时间为 -1 小时，签发即过期
	tokenStr, err := NewJWTManager("secret", -1).GenerateToken(1, "admin", "ADMIN")
	require.NoError(t, err)

	_, err = NewJWTManager("secret", -1).VerifyToken(tokenStr)
	assert.Error(t, err)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	_, err := NewJWTManager("secret", 24).VerifyToken("not.a.token")
	assert.Error(t, err)
}
