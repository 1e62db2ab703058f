package middleware

import (
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	user := &models.User{
		ID:       7,
		Username: "ada",
		Role:     &models.Role{Name: "Editor"},
	}

	tokenString, err := GenerateToken("secret", user)
	require.NoError(t, err)

	claims, err := ParseToken("secret", tokenString)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "ada", claims.Username)
	assert.Equal(t, "Editor", claims.Role)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	user := &models.User{ID: 1, Username: "ada"}
	tokenString, err := GenerateToken("secret", user)
	require.NoError(t, err)

	_, err = ParseToken("other-secret", tokenString)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	claims := &Claims{
		UserID:   1,
		Username: "ada",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ParseToken("secret", tokenString)
	assert.Error(t, err)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	_, err := ParseToken("secret", "not-a-token")
	assert.Error(t, err)
}
