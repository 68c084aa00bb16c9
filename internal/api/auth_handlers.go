package api

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"markethub-backend/internal/models"
	"markethub-backend/internal/services"
)

// AuthHandlers contains all account-related handlers
type AuthHandlers struct {
	userService *services.UserService
	authService *services.AuthService
	emailSender services.EmailSender
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(db *sql.DB, authService *services.AuthService, emailSender services.EmailSender) *AuthHandlers {
	return &AuthHandlers{
		userService: services.NewUserService(db),
		authService: authService,
		emailSender: emailSender,
	}
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	Success bool      `json:"success"`
	Message string    `json:"message,omitempty"`
	Data    *AuthData `json:"data,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// AuthData represents the data in auth response
type AuthData struct {
	User  *models.User `json:"user,omitempty"`
	Token string       `json:"token,omitempty"`
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req models.UserRegistration
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Error:   "Invalid request data: " + err.Error(),
		})
		return
	}

	user, err := h.userService.CreateUser(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, AuthResponse{
			Success: false,
			Error:   "Failed to generate token",
		})
		return
	}

	// The welcome mail carries the chosen password; a mail failure must
	// not fail the registration.
	if err := h.emailSender.SendRegistrationEmail(user.Email, user.GetFullName(), req.Password); err != nil {
		log.Printf("Failed to send registration email to %s: %v", user.Email, err)
	}

	c.JSON(http.StatusCreated, AuthResponse{
		Success: true,
		Message: "Registration successful",
		Data: &AuthData{
			User:  user,
			Token: token,
		},
	})
}

// Login handles user login. The error payloads mirror the public API
// contract: unknown email is a 400, wrong password a 401.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.UserLogin
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	user, err := h.userService.AuthenticateUser(&req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "user not found"})
		case errors.Is(err, services.ErrWrongCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong credentials"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout blacklists the presented token
func (h *AuthHandlers) Logout(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Error:   "Token required",
		})
		return
	}

	if err := h.authService.BlacklistToken(token); err != nil {
		c.JSON(http.StatusInternalServerError, AuthResponse{
			Success: false,
			Error:   "Failed to logout",
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// ResetPassword generates a new password and mails it to the user
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req models.PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data: " + err.Error()})
		return
	}

	newPassword, err := h.userService.ResetPassword(req.Email)
	if err != nil {
		if errors.Is(err, services.ErrEmailNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset password"})
		return
	}

	user, err := h.userService.GetUserByEmail(req.Email)
	if err == nil {
		if mailErr := h.emailSender.SendPasswordResetEmail(user.Email, user.GetFullName(), newPassword); mailErr != nil {
			log.Printf("Failed to send password reset email to %s: %v", user.Email, mailErr)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": "new password was sent to " + req.Email,
	})
}

// GetProfile returns the authenticated user's profile
func (h *AuthHandlers) GetProfile(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		c.JSON(http.StatusNotFound, AuthResponse{
			Success: false,
			Error:   "User not found",
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Data:    &AuthData{User: user},
	})
}

// UpdateProfile updates the editable profile fields
func (h *AuthHandlers) UpdateProfile(c *gin.Context) {
	userID := c.GetString("userID")

	var req models.UserProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Error:   "Invalid request data: " + err.Error(),
		})
		return
	}

	user, err := h.userService.UpdateProfile(userID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, AuthResponse{
			Success: false,
			Error:   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, AuthResponse{
		Success: true,
		Message: "Profile updated successfully",
		Data:    &AuthData{User: user},
	})
}
