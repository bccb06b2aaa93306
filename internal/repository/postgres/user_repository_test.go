package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"edunet-connect/internal/domain"
	"edunet-connect/internal/repository"
)

func TestBuildSearch(t *testing.T) {
	query, args := buildSearch(domain.UserSearch{})
	assert.Equal(t, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC LIMIT $1`, query)
	assert.Equal(t, []any{domain.DefaultSearchLimit}, args)

	query, args = buildSearch(domain.UserSearch{Query: "ada", University: "state", Major: "math", Limit: 500})
	assert.Contains(t, query, `first_name ILIKE $1 OR last_name ILIKE $1`)
	assert.Contains(t, query, `university ILIKE $2 AND major ILIKE $3`)
	assert.Contains(t, query, `LIMIT $4`)
	assert.Equal(t, []any{"%ada%", "%state%", "%math%", domain.MaxSearchLimit}, args)
}

func TestBuildProfileUpdate(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	query, args := buildProfileUpdate("u-1", domain.ProfileUpdate{}, now)
	assert.Empty(t, query)
	assert.Nil(t, args)

	first, year := "Grace", 2030
	query, args = buildProfileUpdate("u-1", domain.ProfileUpdate{FirstName: &first, GraduationYear: &year}, now)
	assert.Equal(t, `UPDATE users SET first_name=$1, graduation_year=$2, updated_at=$3 WHERE id=$4`, query)
	assert.Equal(t, []any{"Grace", 2030, now, "u-1"}, args)
}

func TestUniqueViolation(t *testing.T) {
	repo := &UserRepository{}
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"email index", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: emailIndex}, repository.ErrEmailTaken},
		{"username index", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: usernameIndex}, repository.ErrUsernameTaken},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: emailIndex}), repository.ErrEmailTaken},
		{"primary key", &pgconn.PgError{Code: uniqueViolationCode, ConstraintName: "users_pkey"}, nil},
		{"other code", &pgconn.PgError{Code: "23514"}, nil},
		{"plain error", errors.New("boom"), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := repo.uniqueViolation(ctx, tc.err, "")
			if tc.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}

func TestWrapErr(t *testing.T) {
	assert.ErrorIs(t, wrapErr(&pgconn.ConnectError{Config: &pgconn.Config{}}), repository.ErrUnavailable)
	plain := errors.New("syntax error")
	assert.Equal(t, plain, wrapErr(plain))
}
