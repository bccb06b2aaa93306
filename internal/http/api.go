package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"edunet-connect/internal/service"
)

// Options carries the optional knobs of the HTTP layer.
type Options struct {
	CORSOrigin string
	// Ping reports store health for the health endpoint. Nil skips the check.
	Ping func(ctx context.Context) error
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	auth   service.AuthService
	users  service.UserService
	logger logrus.FieldLogger
	opts   Options
}

func NewHandler(auth service.AuthService, users service.UserService, logger logrus.FieldLogger, opts Options) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "*"
	}
	return &Handler{
		auth:   auth,
		users:  users,
		logger: logger,
		opts:   opts,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger), corsMiddleware(h.opts.CORSOrigin))

	api := router.Group("/api")
	{
		authGroup := api.Group("/auth")
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.GET("/verify-email", h.verifyEmail)
		authGroup.GET("/me", h.requireAuth(), h.me)
		authGroup.POST("/logout", h.requireAuth(), h.logout)

		users := api.Group("/users", h.requireAuth())
		users.GET("/me", h.getProfile)
		users.PUT("/me", h.updateProfile)
		users.POST("/me/avatar", h.avatarUploadURL)
		users.PUT("/me/avatar", h.confirmAvatar)
		users.GET("", h.searchUsers)
		users.GET("/:id", h.getUser)

		api.GET("/health", h.health)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "Not found - " + c.Request.URL.Path,
		})
	})
}

func (h *Handler) health(c *gin.Context) {
	resp := gin.H{
		"success":   true,
		"status":    "OK",
		"message":   "EduNet Backend is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.opts.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.opts.Ping(ctx); err != nil {
			h.logger.WithError(err).Warn("health check: database ping failed")
			resp["database"] = "down"
		} else {
			resp["database"] = "up"
		}
	}
	c.JSON(http.StatusOK, resp)
}

func corsMiddleware(origin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		if origin != "*" {
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
