package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat_platform/internal/repository"
	"chat_platform/internal/service"
	"chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

type UserHandler struct {
	userService service.UserService
	presence    repository.PresenceRepository
	log         logger.Logger
}

func NewUserHandler(userService service.UserService, presence repository.PresenceRepository, log logger.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		presence:    presence,
		log:         log,
	}
}

type UpdateMeRequest struct {
	DisplayName string  `json:"display_name" binding:"required"`
	AvatarURL   *string `json:"avatar_url,omitempty"`
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	user, err := h.userService.GetMe(c.Request.Context(), userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := h.userService.UpdateMe(c.Request.Context(), userID, req.DisplayName, req.AvatarURL)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetPresence возвращает статус присутствия пользователя
func (h *UserHandler) GetPresence(c *gin.Context) {
	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	status, err := h.presence.GetStatus(c.Request.Context(), targetID)
	if err != nil {
		h.log.Error("Failed to get presence", "error", err, "user_id", targetID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": targetID, "status": status})
}
