package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edunet-connect/internal/service"
)

type registerRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Username       string `json:"username"`
	University     string `json:"university"`
	Major          string `json:"major"`
	GraduationYear int    `json:"graduationYear"`
	Bio            string `json:"bio"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	res, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Username:       req.Username,
		University:     req.University,
		Major:          req.Major,
		GraduationYear: req.GraduationYear,
		Bio:            req.Bio,
	})
	if err != nil {
		h.fail(c, err, "Server error during registration")
		return
	}

	message := "Registration successful! Welcome to EduNet AI Connect."
	if h.auth.EmailVerificationEnabled() {
		message = "Registration successful! Please check your email to verify your account."
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": message,
		"token":   res.Token,
		"user":    h.userToResponse(c, res.User),
	})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err, "Server error during login")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Login successful",
		"token":   res.Token,
		"user":    h.userToResponse(c, res.User),
	})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": h.userToResponse(c, user)})
}

// logout is stateless. Tokens stay valid until expiry and the client drops its copy.
func (h *Handler) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Logged out successfully"})
}

func (h *Handler) verifyEmail(c *gin.Context) {
	if err := h.auth.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		h.fail(c, err, "Server error during email verification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Email verified successfully"})
}
