package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"edunet-connect/internal/domain"
)

type updateProfileRequest struct {
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Username       *string `json:"username"`
	University     *string `json:"university"`
	Major          *string `json:"major"`
	GraduationYear *int    `json:"graduationYear"`
	Bio            *string `json:"bio"`
}

// searchQuery accepts q, with search kept as an alias for older clients.
type searchQuery struct {
	Q          string `form:"q"`
	Search     string `form:"search"`
	University string `form:"university"`
	Major      string `form:"major"`
	Limit      int    `form:"limit" binding:"omitempty,min=1,max=50"`
}

type avatarRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type confirmAvatarRequest struct {
	Avatar string `json:"avatar" binding:"required"`
}

func (h *Handler) getProfile(c *gin.Context) {
	h.me(c)
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), currentUserID(c), domain.ProfileUpdate{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Username:       req.Username,
		University:     req.University,
		Major:          req.Major,
		GraduationYear: req.GraduationYear,
		Bio:            req.Bio,
	})
	if err != nil {
		h.fail(c, err, "Server error during profile update")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Profile updated successfully",
		"user":    h.userToResponse(c, user),
	})
}

func (h *Handler) searchUsers(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid search parameters"})
		return
	}

	term := q.Q
	if term == "" {
		term = q.Search
	}
	users, err := h.users.Search(c.Request.Context(), domain.UserSearch{
		Query:      term,
		University: q.University,
		Major:      q.Major,
		Limit:      q.Limit,
	})
	if err != nil {
		h.fail(c, err, "Server error while searching users")
		return
	}

	resp := make([]PublicUserResponse, len(users))
	for i := range users {
		resp[i] = h.publicUserToResponse(c, &users[i])
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(resp), "users": resp})
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "Server error")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": h.publicUserToResponse(c, user)})
}

func (h *Handler) avatarUploadURL(c *gin.Context) {
	var req avatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Content type is required"})
		return
	}

	uploadURL, key, err := h.users.AvatarUploadURL(c.Request.Context(), currentUserID(c), req.ContentType)
	if err != nil {
		h.fail(c, err, "Server error while preparing avatar upload")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "uploadUrl": uploadURL, "avatar": key})
}

func (h *Handler) confirmAvatar(c *gin.Context) {
	var req confirmAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Avatar key is required"})
		return
	}

	user, err := h.users.ConfirmAvatar(c.Request.Context(), currentUserID(c), req.Avatar)
	if err != nil {
		h.fail(c, err, "Server error while updating avatar")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Avatar updated successfully",
		"user":    h.userToResponse(c, user),
	})
}
