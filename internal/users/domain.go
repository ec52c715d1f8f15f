package users

import (
	"net/http"
	"time"
)

// User is a console account as listed for administrators.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateInput is the payload for provisioning an account.
type CreateInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,max=120"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,max=64"`
}

// NewAccount is what the repository persists. Password is already hashed.
type NewAccount struct {
	Email        string
	Name         string
	PasswordHash string
	Role         string
}

type statusError struct {
	msg    string
	status int
}

func (e statusError) Error() string   { return e.msg }
func (e statusError) HTTPStatus() int { return e.status }

var (
	// ErrEmailTaken is returned when another account already uses the email.
	ErrEmailTaken error = statusError{"users: email already registered", http.StatusConflict}
	// ErrUnknownRole is returned when the requested role does not exist.
	ErrUnknownRole error = statusError{"users: unknown role", http.StatusUnprocessableEntity}
)
