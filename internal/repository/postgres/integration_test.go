package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edunet-connect/internal/domain"
	"edunet-connect/internal/repository"
)

// openTestRepo connects to EDUNET_TEST_POSTGRES_DSN, runs the migrations and empties the table.
func openTestRepo(t *testing.T) repository.UserRepository {
	t.Helper()
	dsn := os.Getenv("EDUNET_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("EDUNET_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewUserRepository(db)
	require.NoError(t, repo.Init(ctx))
	// a second run must be a no-op
	require.NoError(t, repo.Init(ctx))

	_, err = db.ExecContext(ctx, `TRUNCATE users`)
	require.NoError(t, err)
	return repo
}

func testUser(id, email, username string) *domain.User {
	return &domain.User{
		ID:             id,
		Email:          email,
		Username:       username,
		PasswordHash:   "hash",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		University:     "State University",
		Major:          "Mathematics",
		GraduationYear: 2027,
	}
}

func TestUserRepository_Postgres(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond)
	a := testUser("u-1", "a@x.edu", "a1")
	a.VerificationToken = "tok"
	a.VerificationExpires = &expires
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, testUser("u-2", "b@x.edu", "b1")))

	assert.ErrorIs(t, repo.Create(ctx, testUser("u-3", "a@x.edu", "c1")), repository.ErrEmailTaken)
	assert.ErrorIs(t, repo.Create(ctx, testUser("u-3", "c@x.edu", "a1")), repository.ErrUsernameTaken)
	assert.ErrorIs(t, repo.Create(ctx, testUser("u-3", "a@x.edu", "a1")), repository.ErrEmailTaken)

	got, err := repo.GetByVerificationToken(ctx, "tok")
	require.NoError(t, err)
	require.NotNil(t, got.VerificationExpires)
	assert.True(t, expires.Equal(*got.VerificationExpires))

	bio, taken := "edited", "b1"
	require.NoError(t, repo.UpdateProfile(ctx, "u-1", domain.ProfileUpdate{Bio: &bio}))
	assert.ErrorIs(t, repo.UpdateProfile(ctx, "u-1", domain.ProfileUpdate{Username: &taken}), repository.ErrUsernameTaken)
	require.NoError(t, repo.MarkVerified(ctx, "u-1", "tok"))
	assert.ErrorIs(t, repo.MarkVerified(ctx, "u-1", "tok"), repository.ErrNotFound)
	require.NoError(t, repo.SetAvatar(ctx, "u-1", "avatars/u-1/k"))

	got, err = repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, got.EmailVerified)
	assert.Empty(t, got.VerificationToken)
	assert.Equal(t, "edited", got.Bio)
	assert.Equal(t, "avatars/u-1/k", got.Avatar)

	users, err := repo.Search(ctx, domain.UserSearch{Query: "B1"})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u-2", users[0].ID)

	users, err = repo.Search(ctx, domain.UserSearch{Query: "%"})
	require.NoError(t, err)
	assert.Empty(t, users)

	require.NoError(t, repo.Delete(ctx, "u-1"))
	_, err = repo.GetByID(ctx, "u-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, repo.UpdateProfile(ctx, "u-1", domain.ProfileUpdate{}), repository.ErrNotFound)
}
