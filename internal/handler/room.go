package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat_platform/internal/service"
	"chat_platform/internal/ws"
	"chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

type RoomHandler struct {
	roomService service.RoomService
	hub         *ws.Hub
	log         logger.Logger
}

func NewRoomHandler(roomService service.RoomService, hub *ws.Hub, log logger.Logger) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
		hub:         hub,
		log:         log,
	}
}

type CreateRoomRequest struct {
	Name       string `json:"name" binding:"required"`
	Visibility string `json:"visibility,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Capacity   int    `json:"capacity,omitempty"`
}

func (h *RoomHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	room, err := h.roomService.Create(c.Request.Context(), userID, req.Name, req.Visibility, req.Mode, req.Capacity)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.log.Info("Room created", "room_id", room.ID, "creator_id", userID)
	c.JSON(http.StatusCreated, room)
}

func (h *RoomHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	rooms, err := h.roomService.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

func (h *RoomHandler) Get(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	room, err := h.roomService.GetByID(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) Participants(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	// Состав видят только участники
	member, err := h.roomService.IsParticipant(c.Request.Context(), roomID, userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	participants, err := h.roomService.GetParticipants(c.Request.Context(), roomID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *RoomHandler) Join(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	outcome, err := h.roomService.Join(c.Request.Context(), roomID, userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	// Членство поменялось через REST - канал комнаты должен узнать об этом
	switch outcome.Status {
	case service.JoinStatusJoined:
		h.hub.AdmitToRoom(c.Request.Context(), roomID, userID, currentUserName(c))
	case service.JoinStatusPending:
		h.hub.NotifyJoinRequest(c.Request.Context(), outcome.Request)
	}

	c.JSON(http.StatusOK, outcome)
}

func (h *RoomHandler) Leave(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	if err := h.roomService.Leave(c.Request.Context(), roomID, userID); err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.hub.EvictFromRoom(c.Request.Context(), roomID, userID, currentUserName(c))
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

func (h *RoomHandler) ListJoinRequests(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	roomID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room ID"})
		return
	}

	requests, err := h.roomService.ListJoinRequests(c.Request.Context(), roomID, userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": requests})
}

func (h *RoomHandler) ApproveJoinRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, err := uuid.Parse(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request ID"})
		return
	}

	request, participant, err := h.roomService.ApproveJoinRequest(c.Request.Context(), requestID, userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	// Одобрение заявки происходит только здесь, сокетного события у него нет
	h.hub.AdmitToRoom(c.Request.Context(), request.RoomID, request.UserID, "")

	h.log.Info("Join request approved", "request_id", requestID, "actor_id", userID)
	c.JSON(http.StatusOK, gin.H{"request": request, "participant": participant})
}

func (h *RoomHandler) DenyJoinRequest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	requestID, err := uuid.Parse(c.Param("request_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request ID"})
		return
	}

	request, err := h.roomService.DenyJoinRequest(c.Request.Context(), requestID, userID)
	if err != nil {
		c.JSON(errors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	h.log.Info("Join request denied", "request_id", requestID, "actor_id", userID)
	c.JSON(http.StatusOK, gin.H{"request": request})
}
