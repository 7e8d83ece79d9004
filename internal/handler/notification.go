package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat_platform/internal/repository"
	"chat_platform/pkg/logger"
)

type NotificationHandler struct {
	notificationRepo repository.NotificationRepository
	log              logger.Logger
}

func NewNotificationHandler(notificationRepo repository.NotificationRepository, log logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationRepo: notificationRepo,
		log:              log,
	}
}

func (h *NotificationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	notifications, err := h.notificationRepo.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error("Failed to list notifications", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification ID"})
		return
	}

	if err := h.notificationRepo.MarkRead(c.Request.Context(), notificationID, userID); err != nil {
		h.log.Error("Failed to mark notification read", "error", err, "notification_id", notificationID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
