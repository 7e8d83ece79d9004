package service

import (
	"chat_platform/internal/config"
	"chat_platform/internal/repository"
	"chat_platform/pkg/logger"
)

type Services struct {
	Auth       AuthService
	User       UserService
	Room       RoomService
	Chat       ChatService
	Friendship FriendshipService
	Media      MediaService
	RateLimit  RateLimitService
}

func NewServices(repos *repository.Repositories, cfg *config.Config, log logger.Logger) *Services {
	return &Services{
		Auth:       NewAuthService(repos.User, cfg.JWT, log),
		User:       NewUserService(repos.User, log),
		Room:       NewRoomService(repos.Room, cfg, log),
		Chat:       NewChatService(repos.Message, repos.Room, repos.Friendship, cfg, log),
		Friendship: NewFriendshipService(repos.Friendship, repos.User, repos.Notification, log),
		Media:      NewMediaService(repos.Room, cfg.LiveKit, log),
		RateLimit:  NewRateLimitService(repos.RateLimit, log),
	}
}
