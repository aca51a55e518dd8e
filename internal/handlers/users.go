package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatify-service/internal/apperr"
	"chatify-service/internal/repositories"
)

// UserHandler exposes user lookup endpoints.
type UserHandler struct {
	userRepo repositories.UserRepository
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(userRepo repositories.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// Search looks a user up by exact handle, case-insensitively. The caller is
// excluded from results.
func (h *UserHandler) Search(c *gin.Context) {
	handle := c.Query("handle")
	if handle == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "handle query parameter is required"})
		return
	}

	user, err := h.userRepo.GetByHandle(c.Request.Context(), handle)
	if err != nil {
		respondError(c, err)
		return
	}
	if user.ID == c.GetString("userID") {
		respondError(c, apperr.ErrUserNotFound)
		return
	}

	c.JSON(http.StatusOK, user.Public())
}
