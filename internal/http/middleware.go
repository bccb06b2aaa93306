package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"edunet-connect/internal/repository"
	"edunet-connect/internal/service"
)

const (
	msgNotAuthorized = "Not authorized to access this route"
	msgUserGone      = "User no longer exists"
)

type ctxKey struct{}

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// UserIDFromContext returns the user id placed by the auth gate.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}

// requireAuth verifies the bearer token and re-confirms the user still exists.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msgNotAuthorized})
			return
		}

		userID, err := h.auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrUserGone):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msgUserGone})
			case errors.Is(err, repository.ErrUnavailable):
				h.logger.WithError(err).Error("auth gate: store unavailable")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": msgStoreDown})
			default:
				h.logger.WithError(err).WithField("path", c.FullPath()).Info("auth gate rejected token")
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msgNotAuthorized})
			}
			return
		}

		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	userID, _ := UserIDFromContext(c.Request.Context())
	return userID
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if userID := currentUserID(c); userID != "" {
			fields["user_id"] = userID
		}
		entry := logger.WithFields(fields)
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("request")
		case status >= http.StatusBadRequest:
			entry.Warn("request")
		default:
			entry.Info("request")
		}
	}
}
