package repository

import (
	"context"
	"errors"

	"edunet-connect/internal/domain"
)

var (
	// ErrNotFound is returned when no user matches the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrEmailTaken is returned when the email unique index rejects a write.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken is returned when the username unique index rejects a write.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrUnavailable wraps failures caused by the database being unreachable or closed.
	ErrUnavailable = errors.New("database unavailable")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Ping(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	// UpdateProfile writes only the profile columns set in update.
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) error
	SetAvatar(ctx context.Context, id, key string) error
	// MarkVerified consumes token for user id. ErrNotFound means the token was already used or replaced.
	MarkVerified(ctx context.Context, id, token string) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, filter domain.UserSearch) ([]domain.User, error)
}
