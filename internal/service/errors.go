package service

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering with an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned when a username is already used by another account.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailNotVerified is returned on login when verification is required and pending.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrInvalidVerificationToken covers unknown, consumed and expired verification tokens.
	ErrInvalidVerificationToken = errors.New("invalid or expired verification token")
	// ErrUnauthorized is returned when a bearer token fails verification.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrUserGone is returned when a valid token references a user that no longer exists.
	ErrUserGone = errors.New("user no longer exists")
	// ErrUserNotFound is returned when a looked up user does not exist.
	ErrUserNotFound = errors.New("user not found")
	// ErrAvatarStorageDisabled is returned when no object storage is configured.
	ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
