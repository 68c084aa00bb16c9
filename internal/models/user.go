package models

import "time"

// UserRole represents user roles in the system
type UserRole string

const (
	UserRoleSeller UserRole = "seller"
	UserRoleBuyer  UserRole = "buyer"
)

// IsValid reports whether the role is one of the known roles.
func (r UserRole) IsValid() bool {
	return r == UserRoleSeller || r == UserRoleBuyer
}

// User represents a registered marketplace account
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	LastName     string    `json:"last_name" db:"last_name"`
	FirstName    string    `json:"first_name" db:"first_name"`
	Patronymic   *string   `json:"patronymic,omitempty" db:"patronymic"`
	Company      string    `json:"company" db:"company"`
	Role         UserRole  `json:"role" db:"role"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserRegistration represents user registration data
type UserRegistration struct {
	LastName   string  `json:"last_name" validate:"required,max=20"`
	FirstName  string  `json:"first_name" validate:"required,max=20"`
	Patronymic *string `json:"patronymic,omitempty" validate:"omitempty,max=20"`
	Company    string  `json:"company" validate:"required,max=100"`
	Email      string  `json:"email" validate:"required,email,max=100"`
	Password   string  `json:"password" validate:"required,min=8,max=128"`
	Role       string  `json:"role" validate:"required,oneof=seller buyer"`
}

// UserLogin represents user login data
type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=128"`
}

// PasswordResetRequest represents a password reset request
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// UserProfileUpdate represents the editable profile fields. Email, role
// and password never change through the profile endpoint.
type UserProfileUpdate struct {
	FirstName  *string `json:"first_name,omitempty" validate:"omitempty,max=20"`
	LastName   *string `json:"last_name,omitempty" validate:"omitempty,max=20"`
	Patronymic *string `json:"patronymic,omitempty" validate:"omitempty,max=20"`
	Company    *string `json:"company,omitempty" validate:"omitempty,max=100"`
}

// GetFullName returns the user's full name
func (u *User) GetFullName() string {
	return u.FirstName + " " + u.LastName
}
