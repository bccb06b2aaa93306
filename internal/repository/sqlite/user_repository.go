package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"edunet-connect/internal/domain"
	"edunet-connect/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	first_name TEXT NOT NULL DEFAULT '',
	last_name TEXT NOT NULL DEFAULT '',
	university TEXT NOT NULL DEFAULT '',
	major TEXT NOT NULL DEFAULT '',
	graduation_year INTEGER NOT NULL DEFAULT 0,
	bio TEXT NOT NULL DEFAULT '',
	avatar TEXT NOT NULL DEFAULT '',
	email_verified INTEGER NOT NULL DEFAULT 0,
	verification_token TEXT NOT NULL DEFAULT '',
	verification_expires DATETIME NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email ON users(email);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username ON users(username);
CREATE INDEX IF NOT EXISTS idx_users_verification_token ON users(verification_token);
`

const userColumns = `id, email, username, password_hash, first_name, last_name, university, major, graduation_year, bio, avatar, email_verified, verification_token, verification_expires, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", wrapErr(err))
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
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *UserRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = ?`, token)
	return scanUser(row)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) error {
	cols, args := repository.ProfileColumns(update)
	if len(cols) == 0 {
		return r.exists(ctx, id)
	}

	sets := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+"=?")
	}
	sets = append(sets, "updated_at=?")
	args = append(args, time.Now().UTC(), id)

	res, err := r.db.ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		if taken := r.uniqueViolation(ctx, err, ""); taken != nil {
			return taken
		}
		return fmt.Errorf("update profile: %w", wrapErr(err))
	}
	return affectedOne(res, "profile update")
}

func (r *UserRepository) SetAvatar(ctx context.Context, id, key string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET avatar=?, updated_at=? WHERE id=?`, key, time.Now().UTC(), id)
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
SET email_verified=1, verification_token='', verification_expires=NULL, updated_at=?
WHERE id=? AND verification_token=?`, time.Now().UTC(), id, token)
	if err != nil {
		return fmt.Errorf("mark verified: %w", wrapErr(err))
	}
	return affectedOne(res, "verification")
}

func (r *UserRepository) exists(ctx context.Context, id string) error {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id=?`, id).Scan(&one)
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
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", wrapErr(err))
	}
	return affectedOne(res, "user delete")
}

func (r *UserRepository) Search(ctx context.Context, filter domain.UserSearch) ([]domain.User, error) {
	filter = filter.Normalize()

	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		p := repository.LikePattern(q)
		where = append(where, `(first_name LIKE ? ESCAPE '\' OR last_name LIKE ? ESCAPE '\' OR username LIKE ? ESCAPE '\' OR university LIKE ? ESCAPE '\' OR major LIKE ? ESCAPE '\')`)
		args = append(args, p, p, p, p, p)
	}
	if u := strings.TrimSpace(filter.University); u != "" {
		where = append(where, `university LIKE ? ESCAPE '\'`)
		args = append(args, repository.LikePattern(u))
	}
	if m := strings.TrimSpace(filter.Major); m != "" {
		where = append(where, `major LIKE ? ESCAPE '\'`)
		args = append(args, repository.LikePattern(m))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at ASC, id ASC LIMIT ?`
	args = append(args, filter.Limit)

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

// uniqueViolation maps a unique index failure to the matching sentinel. When the
// username index fires first but the email is also taken, the email error wins.
func (r *UserRepository) uniqueViolation(ctx context.Context, err error, email string) error {
	if !isUniqueViolation(err) {
		return nil
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "users.email"):
		return repository.ErrEmailTaken
	case strings.Contains(msg, "users.username"):
		if email != "" {
			if _, lookupErr := r.GetByEmail(ctx, email); lookupErr == nil {
				return repository.ErrEmailTaken
			}
		}
		return repository.ErrUsernameTaken
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE, sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// wrapErr tags connection level failures with repository.ErrUnavailable.
func wrapErr(err error) error {
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	if strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED, sqlite3lib.SQLITE_CANTOPEN, sqlite3lib.SQLITE_IOERR:
			return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
		}
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
