package services

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"markethub-backend/internal/models"
	"markethub-backend/internal/utils"
)

// Sentinel errors mapped to HTTP statuses by the handlers.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrWrongCredentials = errors.New("wrong credentials")
	ErrEmailTaken       = errors.New("user with this email already exists")
	ErrEmailNotFound    = errors.New("email not found")
)

// UserService handles user-related business logic
type UserService struct {
	db *sql.DB
}

// NewUserService creates a new user service
func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// CreateUser creates a new user
func (s *UserService) CreateUser(registration *models.UserRegistration) (*models.User, error) {
	if err := utils.ValidateStruct(registration); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	// Sanitize string inputs
	registration.FirstName = utils.SanitizeString(registration.FirstName)
	registration.LastName = utils.SanitizeString(registration.LastName)
	registration.Company = utils.SanitizeString(registration.Company)
	if registration.Patronymic != nil {
		*registration.Patronymic = utils.SanitizeString(*registration.Patronymic)
	}

	// Normalize email for consistent storage and comparison
	registration.Email = utils.NormalizeEmail(registration.Email)

	exists, err := s.UserExists(registration.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check user existence: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registration.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Email:        registration.Email,
		LastName:     registration.LastName,
		FirstName:    registration.FirstName,
		Patronymic:   registration.Patronymic,
		Company:      registration.Company,
		Role:         models.UserRole(registration.Role),
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	query := `
		INSERT INTO users (
			id, email, last_name, first_name, patronymic, company, role,
			password_hash, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.Exec(query,
		user.ID, user.Email, user.LastName, user.FirstName, user.Patronymic,
		user.Company, user.Role, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// AuthenticateUser authenticates a user with email and password. Returns
// ErrUserNotFound for unknown emails and ErrWrongCredentials for a bad
// password; handlers map those to 400 and 401 respectively.
func (s *UserService) AuthenticateUser(login *models.UserLogin) (*models.User, error) {
	if err := utils.ValidateStruct(login); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	user, err := s.GetUserByEmail(login.Email)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(login.Password)); err != nil {
		return nil, ErrWrongCredentials
	}

	return user, nil
}

// GetUserByID retrieves a user by ID
func (s *UserService) GetUserByID(userID string) (*models.User, error) {
	query := `
		SELECT id, email, last_name, first_name, patronymic, company, role,
		       password_hash, created_at, updated_at
		FROM users WHERE id = ?
	`

	user := &models.User{}
	err := s.db.QueryRow(query, userID).Scan(
		&user.ID, &user.Email, &user.LastName, &user.FirstName, &user.Patronymic,
		&user.Company, &user.Role, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by normalized email
func (s *UserService) GetUserByEmail(email string) (*models.User, error) {
	query := `
		SELECT id, email, last_name, first_name, patronymic, company, role,
		       password_hash, created_at, updated_at
		FROM users WHERE email = ?
	`

	user := &models.User{}
	err := s.db.QueryRow(query, utils.NormalizeEmail(email)).Scan(
		&user.ID, &user.Email, &user.LastName, &user.FirstName, &user.Patronymic,
		&user.Company, &user.Role, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// UserExists checks whether an account with the email already exists
func (s *UserService) UserExists(email string) (bool, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, utils.NormalizeEmail(email)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	return count > 0, nil
}

// UpdateProfile updates the editable profile fields of a user. Email, role
// and password are never touched here.
func (s *UserService) UpdateProfile(userID string, update *models.UserProfileUpdate) (*models.User, error) {
	if err := utils.ValidateStruct(update); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}

	if update.FirstName != nil {
		user.FirstName = utils.SanitizeString(*update.FirstName)
	}
	if update.LastName != nil {
		user.LastName = utils.SanitizeString(*update.LastName)
	}
	if update.Patronymic != nil {
		sanitized := utils.SanitizeString(*update.Patronymic)
		user.Patronymic = &sanitized
	}
	if update.Company != nil {
		user.Company = utils.SanitizeString(*update.Company)
	}
	user.UpdatedAt = time.Now()

	query := `
		UPDATE users
		SET first_name = ?, last_name = ?, patronymic = ?, company = ?, updated_at = ?
		WHERE id = ?
	`
	_, err = s.db.Exec(query,
		user.FirstName, user.LastName, user.Patronymic, user.Company, user.UpdatedAt, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return user, nil
}

// ResetPassword replaces the user's password with a random one and returns
// it so the caller can mail it. Returns ErrEmailNotFound for unknown emails.
func (s *UserService) ResetPassword(email string) (string, error) {
	user, err := s.GetUserByEmail(email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrEmailNotFound
		}
		return "", err
	}

	newPassword := utils.GenerateRandomString(12)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	_, err = s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		string(hashedPassword), time.Now(), user.ID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to reset password: %w", err)
	}

	return newPassword, nil
}
