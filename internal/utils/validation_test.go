package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"markethub-backend/internal/models"
)

func TestValidateStructRegistration(t *testing.T) {
	valid := models.UserRegistration{
		LastName:  "Smith",
		FirstName: "Anna",
		Company:   "Acme Ltd",
		Email:     "anna@example.com",
		Password:  "password123",
		Role:      "seller",
	}
	assert.NoError(t, ValidateStruct(&valid))

	tests := []struct {
		name   string
		mutate func(r *models.UserRegistration)
	}{
		{"missing last name", func(r *models.UserRegistration) { r.LastName = "" }},
		{"last name too long", func(r *models.UserRegistration) { r.LastName = "an-extremely-long-last-name" }},
		{"bad email", func(r *models.UserRegistration) { r.Email = "not-an-email" }},
		{"short password", func(r *models.UserRegistration) { r.Password = "short" }},
		{"unknown role", func(r *models.UserRegistration) { r.Role = "admin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := valid
			tt.mutate(&reg)
			assert.Error(t, ValidateStruct(&reg))
		})
	}
}

func TestValidateStructOmitemptyPointer(t *testing.T) {
	// Unset optional fields skip their rules entirely
	assert.NoError(t, ValidateStruct(&models.UserProfileUpdate{}))

	tooLong := "a-company-name-way-past-the-limit-a-company-name-way-past-the-limit-a-company-name-way-past-the-limit"
	assert.Error(t, ValidateStruct(&models.UserProfileUpdate{Company: &tooLong}))

	ok := "Acme Ltd"
	assert.NoError(t, ValidateStruct(&models.UserProfileUpdate{Company: &ok}))
}

func TestValidateStructCartItem(t *testing.T) {
	assert.NoError(t, ValidateStruct(&models.CartItemInput{PricelistID: "pl-1", Quantity: 2}))
	assert.Error(t, ValidateStruct(&models.CartItemInput{Quantity: 2}), "pricelist is required")
	assert.Error(t, ValidateStruct(&models.CartItemInput{PricelistID: "pl-1", Quantity: 0}), "quantity must be positive")
	assert.Error(t, ValidateStruct(&models.CartItemInput{PricelistID: "pl-1", Quantity: -1}))
}

func TestValidateStructOrderStatus(t *testing.T) {
	for _, status := range []string{"accepted", "sent", "complete", "cancelled"} {
		assert.NoError(t, ValidateStruct(&models.OrderStatusUpdate{Status: status}))
	}
	assert.Error(t, ValidateStruct(&models.OrderStatusUpdate{Status: "in_cart"}))
	assert.Error(t, ValidateStruct(&models.OrderStatusUpdate{Status: ""}))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("user@example.com"))
	assert.True(t, IsValidEmail("first.last+tag@sub.example.co"))
	assert.False(t, IsValidEmail("user@"))
	assert.False(t, IsValidEmail("@example.com"))
	assert.False(t, IsValidEmail("plain-text"))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  USER@Example.COM "))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello world", SanitizeString("  hello\x00 world\x1f "))
}

func TestValidateUUID(t *testing.T) {
	assert.True(t, ValidateUUID("6ba7b810-9dad-11d1-80b4-00c04fd430c8"))
	assert.False(t, ValidateUUID("not-a-uuid"))
}
