package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"edunet-connect/internal/domain"
	"edunet-connect/internal/repository"
)

const (
	uniqueViolationCode = "23505"

	emailIndex    = "idx_users_email"
	usernameIndex = "idx_users_username"
)

const userColumns = `id, email, username, password_hash, first_name, last_name, university, major, graduation_year, bio, avatar, email_verified, verification_token, verification_expires, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

// Init brings the schema up to date with the embedded migrations.
func (r *UserRepository) Init(ctx context.Context) error {
	if err := Migrate(ctx, r.db); err != nil {
		return wrapErr(err)
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.University,
		user.Major,
		user.GraduationYear,
		user.Bio,
		user.Avatar,
		user.EmailVerified,
		user.VerificationToken,
		nullTime(user.VerificationExpires),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if taken := r.uniqueViolation(ctx, err, user.Email); taken != nil {
			return taken
		}
		return fmt.Errorf("insert user: %w", wrapErr(err))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token))
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) error {
	query, args := buildProfileUpdate(id, update, time.Now().UTC())
	if query == "" {
		return r.exists(ctx, id)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if taken := r.uniqueViolation(ctx, err, ""); taken != nil {
			return taken
		}
		return fmt.Errorf("update profile: %w", wrapErr(err))
	}
	return affectedOne(res, "profile update")
}

func buildProfileUpdate(id string, update domain.ProfileUpdate, now time.Time) (string, []any) {
	cols, args := repository.ProfileColumns(update)
	if len(cols) == 0 {
		return "", nil
	}
	sets := make([]string, 0, len(cols)+1)
	for i, col := range cols {
		sets = append(sets, col+"=$"+strconv.Itoa(i+1))
	}
	sets = append(sets, "updated_at=$"+strconv.Itoa(len(cols)+1))
	args = append(args, now, id)
	return `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id=$` + strconv.Itoa(len(args)), args
}

func (r *UserRepository) SetAvatar(ctx context.Context, id, key string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET avatar=$1, updated_at=$2 WHERE id=$3`, key, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set avatar: %w", wrapErr(err))
	}
	return affectedOne(res, "avatar update")
}

func (r *UserRepository) MarkVerified(ctx context.Context, id, token string) error {
	if token == "" {
		return repository.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE users
SET email_verified=TRUE, verification_token='', verification_expires=NULL, updated_at=$1
WHERE id=$2 AND verification_token=$3`, time.Now().UTC(), id, token)
	if err != nil {
		return fmt.Errorf("mark verified: %w", wrapErr(err))
	}
	return affectedOne(res, "verification")
}

func (r *UserRepository) exists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=$1`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("find user: %w", wrapErr(err))
	}
	return nil
}

func affectedOne(res sql.Result, op string) error {
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", wrapErr(err))
	}
	return affectedOne(res, "user delete")
}

func (r *UserRepository) Search(ctx context.Context, filter domain.UserSearch) ([]domain.User, error) {
	query, args := buildSearch(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", wrapErr(err))
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func buildSearch(filter domain.UserSearch) (string, []any) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		p := next(repository.LikePattern(q))
		where = append(where, fmt.Sprintf(
			`(first_name ILIKE %[1]s OR last_name ILIKE %[1]s OR username ILIKE %[1]s OR university ILIKE %[1]s OR major ILIKE %[1]s)`, p))
	}
	if u := strings.TrimSpace(filter.University); u != "" {
		where = append(where, `university ILIKE `+next(repository.LikePattern(u)))
	}
	if m := strings.TrimSpace(filter.Major); m != "" {
		where = append(where, `major ILIKE `+next(repository.LikePattern(m)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ` + next(filter.Limit)
	return query, args
}

func (r *UserRepository) uniqueViolation(ctx context.Context, err error, email string) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return nil
	}
	switch pgErr.ConstraintName {
	case emailIndex:
		return repository.ErrEmailTaken
	case usernameIndex:
		if email != "" {
			if _, lookupErr := r.GetByEmail(ctx, email); lookupErr == nil {
				return repository.ErrEmailTaken
			}
		}
		return repository.ErrUsernameTaken
	}
	return nil
}

func wrapErr(err error) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return err
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user    domain.User
		expires sql.NullTime
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.University,
		&user.Major,
		&user.GraduationYear,
		&user.Bio,
		&user.Avatar,
		&user.EmailVerified,
		&user.VerificationToken,
		&expires,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", wrapErr(err))
	}
	if expires.Valid {
		t := expires.Time.UTC()
		user.VerificationExpires = &t
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return &user, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
