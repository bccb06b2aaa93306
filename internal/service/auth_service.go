package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"edunet-connect/internal/auth"
	"edunet-connect/internal/domain"
	"edunet-connect/internal/repository"
)

const (
	MinPasswordLength       = 6
	// MaxPasswordLength is the bcrypt input limit in bytes.
	MaxPasswordLength       = 72
	DefaultVerificationTTL  = 24 * time.Hour
	defaultVerificationPath = "http://localhost:3000/verify-email"
)

// RegisterInput is the registration form as submitted by the client.
type RegisterInput struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	Username       string
	University     string
	Major          string
	GraduationYear int
	Bio            string
}

// AuthResult pairs an issued bearer token with the sanitized account it belongs to.
type AuthResult struct {
	Token string
	User  *domain.User
}

// AuthService describes credential and token operations.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Authenticate(ctx context.Context, token string) (string, error)
	VerifyEmail(ctx context.Context, token string) error
	EmailVerificationEnabled() bool
}

// AuthConfig tunes the auth service. Zero values fall back to defaults.
type AuthConfig struct {
	RequireEmailVerification bool
	VerificationTTL          time.Duration
	VerifyURL                string
	HashCost                 int
}

type authService struct {
	users    repository.UserRepository
	tokens   *auth.Issuer
	notifier VerificationNotifier
	cfg      AuthConfig
	logger   logrus.FieldLogger
	now      func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func NewAuthService(users repository.UserRepository, tokens *auth.Issuer, notifier VerificationNotifier, cfg AuthConfig, logger logrus.FieldLogger) AuthService {
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = DefaultVerificationTTL
	}
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = defaultVerificationPath
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = logrus.New()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	return &authService{
		users:    users,
		tokens:   tokens,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *authService) EmailVerificationEnabled() bool {
	return s.cfg.RequireEmailVerification
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (result *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Register")
	defer func() { endSpan(span, err) }()

	in = normalizeRegistration(in)
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:             uuid.NewString(),
		Email:          in.Email,
		Username:       in.Username,
		PasswordHash:   string(hash),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		University:     in.University,
		Major:          in.Major,
		GraduationYear: in.GraduationYear,
		Bio:            in.Bio,
		EmailVerified:  true,
	}
	if s.cfg.RequireEmailVerification {
		expires := s.now().Add(s.cfg.VerificationTTL).UTC()
		user.EmailVerified = false
		user.VerificationToken = strings.ReplaceAll(uuid.NewString(), "-", "")
		user.VerificationExpires = &expires
	}

	if err := s.users.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, ErrEmailTaken
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.cfg.RequireEmailVerification {
		link := s.cfg.VerifyURL + "?token=" + user.VerificationToken
		if err := s.notifier.SendVerification(ctx, user, link); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("send verification email")
		}
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")
	return &AuthResult{Token: token, User: sanitizeUser(user)}, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (result *AuthResult, err error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer func() { endSpan(span, err) }()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// keep the miss as slow as a mismatch so timing does not reveal accounts
			_ = bcrypt.CompareHashAndPassword(s.placeholderHash(), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if s.cfg.RequireEmailVerification && !user.EmailVerified {
		return nil, ErrEmailNotVerified
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &AuthResult{Token: token, User: sanitizeUser(user)}, nil
}

// Authenticate verifies a bearer token and confirms the user it names still exists.
func (s *authService) Authenticate(ctx context.Context, token string) (string, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrUserGone
		}
		return "", fmt.Errorf("find user: %w", err)
	}
	return userID, nil
}

func (s *authService) VerifyEmail(ctx context.Context, token string) (err error) {
	ctx, span := tracer.Start(ctx, "AuthService.VerifyEmail")
	defer func() { endSpan(span, err) }()

	token = strings.TrimSpace(token)
	if token == "" {
		return invalid("token", "Verification token is required")
	}

	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.VerificationExpires == nil || !s.now().Before(*user.VerificationExpires) {
		return ErrInvalidVerificationToken
	}

	if err := s.users.MarkVerified(ctx, user.ID, token); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("mark verified: %w", err)
	}

	s.logger.WithField("user_id", user.ID).Info("email verified")
	return nil
}

func (s *authService) placeholderHash() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), s.cfg.HashCost)
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRegistration(in RegisterInput) RegisterInput {
	in.Email = normalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.University = strings.TrimSpace(in.University)
	in.Major = strings.TrimSpace(in.Major)
	in.Bio = strings.TrimSpace(in.Bio)
	return in
}

func validateRegistration(in RegisterInput) error {
	if in.Email == "" {
		return invalid("email", "Email is required")
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return invalid("email", "Email is invalid")
	}
	if len(in.Password) < MinPasswordLength {
		return invalid("password", fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	if len(in.Password) > MaxPasswordLength {
		return invalid("password", fmt.Sprintf("Password must be at most %d bytes", MaxPasswordLength))
	}
	if in.Username == "" {
		return invalid("username", "Username is required")
	}
	if in.FirstName == "" {
		return invalid("firstName", "First name is required")
	}
	if in.LastName == "" {
		return invalid("lastName", "Last name is required")
	}
	if in.University == "" {
		return invalid("university", "University is required")
	}
	if in.Major == "" {
		return invalid("major", "Major is required")
	}
	if in.GraduationYear <= 0 {
		return invalid("graduationYear", "Graduation year must be a positive number")
	}
	return nil
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	clean := *user
	clean.PasswordHash = ""
	clean.VerificationToken = ""
	clean.VerificationExpires = nil
	return &clean
}
