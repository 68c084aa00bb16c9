package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"markethub-backend/internal/models"
)

func testUser() *models.User {
	return &models.User{
		ID:    "user-1",
		Email: "user@example.com",
		Role:  models.UserRoleBuyer,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	authService := NewAuthService("test-secret", 3600)

	token, err := authService.GenerateToken(testUser())
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "buyer", claims.Role)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewAuthService("secret-one", 3600).GenerateToken(testUser())
	assert.NoError(t, err)

	_, err = NewAuthService("secret-two", 3600).ValidateToken(token)
	assert.Error(t, err)
}

func TestBlacklistToken(t *testing.T) {
	authService := NewAuthService("test-secret", 3600)

	token, err := authService.GenerateToken(testUser())
	assert.NoError(t, err)

	_, err = authService.ValidateToken(token)
	assert.NoError(t, err)

	assert.NoError(t, authService.BlacklistToken(token))

	_, err = authService.ValidateToken(token)
	assert.Error(t, err, "a logged-out token must stop validating")
	assert.True(t, authService.IsTokenBlacklisted(token))
}

func TestValidateGarbageToken(t *testing.T) {
	authService := NewAuthService("test-secret", 3600)
	_, err := authService.ValidateToken("not-a-jwt")
	assert.Error(t, err)
}
