package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"edunet-connect/internal/domain"
	"edunet-connect/internal/repository"
	"edunet-connect/internal/storage"
)

const (
	avatarUploadTTL   = 15 * time.Minute
	avatarDownloadTTL = time.Hour
	avatarKeyPrefix   = "avatars/"
)

// UserService covers profile reads, edits and directory search.
type UserService interface {
	GetProfile(ctx context.Context, id string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (*domain.User, error)
	Search(ctx context.Context, filter domain.UserSearch) ([]domain.User, error)
	AvatarUploadURL(ctx context.Context, id, contentType string) (uploadURL, avatarKey string, err error)
	ConfirmAvatar(ctx context.Context, id, avatarKey string) (*domain.User, error)
	AvatarURL(ctx context.Context, user *domain.User) string
}

type userService struct {
	users   repository.UserRepository
	avatars storage.Service
	logger  logrus.FieldLogger
}

// NewUserService builds the profile service. avatars may be nil when no object storage is configured.
func NewUserService(users repository.UserRepository, avatars storage.Service, logger logrus.FieldLogger) UserService {
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		users:   users,
		avatars: avatars,
		logger:  logger,
	}
}

func (s *userService) GetProfile(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return sanitizeUser(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, id string, update domain.ProfileUpdate) (result *domain.User, err error) {
	ctx, span := tracer.Start(ctx, "UserService.UpdateProfile")
	defer func() { endSpan(span, err) }()

	update, err = normalizeUpdate(update)
	if err != nil {
		return nil, err
	}

	if update.Empty() {
		return s.GetProfile(ctx, id)
	}

	if err := s.users.UpdateProfile(ctx, id, update); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, ErrUsernameTaken
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetProfile(ctx, id)
}

func (s *userService) Search(ctx context.Context, filter domain.UserSearch) ([]domain.User, error) {
	if filter.Limit < 0 {
		return nil, invalid("limit", "Limit must be a positive number")
	}
	users, err := s.users.Search(ctx, filter.Normalize())
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	for i := range users {
		users[i] = *sanitizeUser(&users[i])
	}
	return users, nil
}

// AvatarUploadURL returns a presigned PUT URL for a fresh avatar key. The profile is not
// touched until the client reports the upload through ConfirmAvatar.
func (s *userService) AvatarUploadURL(ctx context.Context, id, contentType string) (string, string, error) {
	if s.avatars == nil {
		return "", "", ErrAvatarStorageDisabled
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !strings.HasPrefix(contentType, "image/") {
		return "", "", invalid("contentType", "Avatar must be an image")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", "", ErrUserNotFound
		}
		return "", "", fmt.Errorf("find user: %w", err)
	}

	key := avatarKeyPrefix + user.ID + "/" + uuid.NewString()
	uploadURL, err := s.avatars.PresignUpload(ctx, key, contentType, avatarUploadTTL)
	if err != nil {
		return "", "", fmt.Errorf("presign avatar upload: %w", err)
	}
	return uploadURL, key, nil
}

// ConfirmAvatar points the profile at an uploaded avatar object and removes the previous one.
func (s *userService) ConfirmAvatar(ctx context.Context, id, key string) (result *domain.User, err error) {
	ctx, span := tracer.Start(ctx, "UserService.ConfirmAvatar")
	defer func() { endSpan(span, err) }()

	if s.avatars == nil {
		return nil, ErrAvatarStorageDisabled
	}
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, avatarKeyPrefix+id+"/") || strings.Contains(key, "..") {
		return nil, invalid("avatar", "Avatar key is invalid")
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user.Avatar == key {
		return sanitizeUser(user), nil
	}

	ok, err := s.avatars.ObjectExists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("check avatar object: %w", err)
	}
	if !ok {
		return nil, invalid("avatar", "Avatar upload not found")
	}

	if err := s.users.SetAvatar(ctx, id, key); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("set avatar: %w", err)
	}

	if previous := user.Avatar; strings.HasPrefix(previous, avatarKeyPrefix) {
		if err := s.avatars.DeleteObject(ctx, previous); err != nil {
			s.logger.WithError(err).WithField("key", previous).Warn("delete previous avatar")
		}
	}
	return s.GetProfile(ctx, id)
}

// AvatarURL resolves a stored avatar reference to something a browser can load.
func (s *userService) AvatarURL(ctx context.Context, user *domain.User) string {
	if user == nil || user.Avatar == "" {
		return ""
	}
	if s.avatars == nil || !strings.HasPrefix(user.Avatar, avatarKeyPrefix) {
		return user.Avatar
	}
	url, err := s.avatars.PresignDownload(ctx, user.Avatar, avatarDownloadTTL)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("presign avatar download")
		return ""
	}
	return url
}

func normalizeUpdate(u domain.ProfileUpdate) (domain.ProfileUpdate, error) {
	trimmed := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		if v == "" {
			return nil
		}
		return &v
	}
	u.FirstName = trimmed(u.FirstName)
	u.LastName = trimmed(u.LastName)
	u.Username = trimmed(u.Username)
	u.University = trimmed(u.University)
	u.Major = trimmed(u.Major)
	if u.Bio != nil {
		bio := strings.TrimSpace(*u.Bio)
		u.Bio = &bio
	}
	if u.GraduationYear != nil && *u.GraduationYear <= 0 {
		return u, invalid("graduationYear", "Graduation year must be a positive number")
	}
	return u, nil
}
