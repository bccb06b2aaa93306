package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"edunet-connect/internal/domain"
	"edunet-connect/internal/repository"
	"edunet-connect/internal/service"
)

const msgStoreDown = "Database is not available. Please try again later."

// UserResponse is the account view returned to the account owner.
type UserResponse struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FirstName       string    `json:"firstName"`
	LastName        string    `json:"lastName"`
	Username        string    `json:"username"`
	University      string    `json:"university"`
	Major           string    `json:"major"`
	GraduationYear  int       `json:"graduationYear"`
	Bio             string    `json:"bio"`
	Avatar          string    `json:"avatar"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// PublicUserResponse is what other members see. No contact or account state.
type PublicUserResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Username       string    `json:"username"`
	University     string    `json:"university"`
	Major          string    `json:"major"`
	GraduationYear int       `json:"graduationYear"`
	Bio            string    `json:"bio"`
	Avatar         string    `json:"avatar"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (h *Handler) userToResponse(c *gin.Context, user *domain.User) UserResponse {
	return UserResponse{
		ID:              user.ID,
		Email:           user.Email,
		FirstName:       user.FirstName,
		LastName:        user.LastName,
		Username:        user.Username,
		University:      user.University,
		Major:           user.Major,
		GraduationYear:  user.GraduationYear,
		Bio:             user.Bio,
		Avatar:          h.users.AvatarURL(c.Request.Context(), user),
		IsEmailVerified: user.EmailVerified,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}
}

func (h *Handler) publicUserToResponse(c *gin.Context, user *domain.User) PublicUserResponse {
	return PublicUserResponse{
		ID:             user.ID,
		FirstName:      user.FirstName,
		LastName:       user.LastName,
		Username:       user.Username,
		University:     user.University,
		Major:          user.Major,
		GraduationYear: user.GraduationYear,
		Bio:            user.Bio,
		Avatar:         h.users.AvatarURL(c.Request.Context(), user),
		CreatedAt:      user.CreatedAt,
	}
}

// fail maps a service error onto the response envelope. Anything unrecognised
// becomes a 500 with fallback as the only detail the client sees.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	status, message := classify(err)
	if status == 0 {
		status, message = http.StatusInternalServerError, fallback
	}

	entry := h.logger.WithFields(logrus.Fields{
		"route":  c.FullPath(),
		"status": status,
	}).WithError(err)
	if userID := currentUserID(c); userID != "" {
		entry = entry.WithField("user_id", userID)
	}
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}

	c.JSON(status, gin.H{"success": false, "error": message})
}

func classify(err error) (int, string) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusBadRequest, "Email already registered"
	case errors.Is(err, service.ErrUsernameTaken):
		return http.StatusBadRequest, "Username already taken"
	case errors.Is(err, service.ErrInvalidVerificationToken):
		return http.StatusBadRequest, "Invalid or expired verification token"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, service.ErrEmailNotVerified):
		return http.StatusUnauthorized, "Please verify your email before logging in"
	case errors.Is(err, service.ErrUserGone):
		return http.StatusUnauthorized, msgUserGone
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, msgNotAuthorized
	case errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, service.ErrAvatarStorageDisabled):
		return http.StatusServiceUnavailable, "Avatar storage is not configured"
	case errors.Is(err, repository.ErrUnavailable):
		return http.StatusServiceUnavailable, msgStoreDown
	}
	return 0, ""
}
