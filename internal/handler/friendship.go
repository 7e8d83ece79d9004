package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat_platform/internal/service"
	"chat_platform/internal/ws"
	"chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

type FriendshipHandler struct {
	friendshipService service.FriendshipService
	hub               *ws.Hub
	log               logger.Logger
}

func NewFriendshipHandler(friendshipService service.FriendshipService, hub *ws.Hub, log logger.Logger) *FriendshipHandler {
	return &FriendshipHandler{
		friendshipService: friendshipService,
		hub:               hub,
		log:               log,
	}
}

type SendFriendRequestRequest struct {
	AddresseeID uuid.UUID `json:"addressee_id" binding:"required"`
}

func (h *FriendshipHandler) SendRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req SendFriendRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	friendship, notification, err := h.friendshipService.SendRequest(c.Request.Context(), userID, req.AddresseeID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	// Живые соединения адресата узнают о заявке сразу
	h.hub.PushNotification(req.AddresseeID, notification)

	h.log.Info("Friend request sent", "requester_id", userID, "addressee_id", req.AddresseeID)
	c.JSON(http.StatusCreated, friendship)
}

func (h *FriendshipHandler) Accept(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	friendshipID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friendship ID"})
		return
	}

	friendship, notification, err := h.friendshipService.Accept(c.Request.Context(), friendshipID, userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.hub.PushNotification(friendship.RequesterID, notification)

	h.log.Info("Friend request accepted", "friendship_id", friendshipID, "actor_id", userID)
	c.JSON(http.StatusOK, friendship)
}

func (h *FriendshipHandler) Decline(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	friendshipID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid friendship ID"})
		return
	}

	friendship, notification, err := h.friendshipService.Decline(c.Request.Context(), friendshipID, userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.hub.PushNotification(friendship.RequesterID, notification)

	h.log.Info("Friend request declined", "friendship_id", friendshipID, "actor_id", userID)
	c.JSON(http.StatusOK, friendship)
}

func (h *FriendshipHandler) ListFriends(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	friends, err := h.friendshipService.ListFriends(c.Request.Context(), userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"friends": friends})
}

func (h *FriendshipHandler) ListPending(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requests, err := h.friendshipService.ListPending(c.Request.Context(), userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}
