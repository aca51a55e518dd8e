package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatify-service/internal/auth"
	"chatify-service/internal/models"
	"chatify-service/internal/presence"
	"chatify-service/internal/repositories"
	"chatify-service/internal/telemetry"
)

// AuthHandler manages signup, login and session teardown.
type AuthHandler struct {
	userRepo repositories.UserRepository
	manager  *auth.Manager
	tracker  *presence.Tracker
	emitter  *telemetry.AuditEmitter
	log      *zap.SugaredLogger
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(userRepo repositories.UserRepository, manager *auth.Manager, tracker *presence.Tracker, emitter *telemetry.AuditEmitter, log *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		userRepo: userRepo,
		manager:  manager,
		tracker:  tracker,
		emitter:  emitter,
		log:      log,
	}
}

type sessionResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// Signup registers a user, creates their presence record online and opens a
// session.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req struct {
		Email       string `json:"email" binding:"required,email"`
		Password    string `json:"password" binding:"required,min=8"`
		DisplayName string `json:"display_name" binding:"required"`
		Handle      string `json:"handle" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := h.manager.HashPassword(req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.userRepo.CreateUser(c.Request.Context(), req.Email, hash, req.DisplayName, req.Handle)
	if err != nil {
		respondError(c, err)
		return
	}

	if _, err := h.tracker.SetOnline(c.Request.Context(), user.ID); err != nil {
		// The account exists either way; report the degraded presence state
		// instead of pretending the signup failed.
		h.log.Errorw("presence set online failed on signup", "user_id", user.ID, "err", err)
	}

	token, err := h.manager.IssueToken(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "user signed up", requestIDFromContext(c), user.ID)
	c.JSON(http.StatusCreated, sessionResponse{Token: token, User: user.Public()})
}

// Login verifies credentials, marks the user online and opens a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		// Do not leak which part of the credential pair was wrong.
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err := h.manager.CheckPassword(user.PasswordHash, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if _, err := h.tracker.SetOnline(c.Request.Context(), user.ID); err != nil {
		h.log.Errorw("presence set online failed on login", "user_id", user.ID, "err", err)
	}

	token, err := h.manager.IssueToken(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "user logged in", requestIDFromContext(c), user.ID)
	c.JSON(http.StatusOK, sessionResponse{Token: token, User: user.Public()})
}

// Logout marks the user offline. The failure of the presence update is
// surfaced, not swallowed.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID := c.GetString("userID")

	if _, err := h.tracker.SetOffline(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	h.emitter.Emit(c.Request.Context(), "INFO", "user logged out", requestIDFromContext(c), userID)
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated principal.
func (h *AuthHandler) Me(c *gin.Context) {
	userID := c.GetString("userID")

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
