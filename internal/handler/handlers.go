package handler

import (
	"chat_platform/internal/config"
	"chat_platform/internal/repository"
	"chat_platform/internal/service"
	"chat_platform/internal/ws"
	"chat_platform/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	User         *UserHandler
	Room         *RoomHandler
	Chat         *ChatHandler
	Friendship   *FriendshipHandler
	Notification *NotificationHandler
	Media        *MediaHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(services *service.Services, repos *repository.Repositories, hub *ws.Hub, cfg *config.Config, log logger.Logger) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(cfg),
		Auth:         NewAuthHandler(services.Auth, log),
		User:         NewUserHandler(services.User, repos.Presence, log),
		Room:         NewRoomHandler(services.Room, hub, log),
		Chat:         NewChatHandler(services.Chat, log),
		Friendship:   NewFriendshipHandler(services.Friendship, hub, log),
		Notification: NewNotificationHandler(repos.Notification, log),
		Media:        NewMediaHandler(services.Media, log),
		WebSocket:    NewWebSocketHandler(hub, log),
	}
}
