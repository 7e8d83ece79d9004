package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"chat_platform/pkg/logger"
)

type Repositories struct {
	User         UserRepository
	Room         RoomRepository
	Message      MessageRepository
	Friendship   FriendshipRepository
	Notification NotificationRepository
	Presence     PresenceRepository
	RateLimit    RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, rdb *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db, log),
		Room:         NewRoomRepository(db, log),
		Message:      NewMessageRepository(db, log),
		Friendship:   NewFriendshipRepository(db, log),
		Notification: NewNotificationRepository(db, log),
		Presence:     NewPresenceRepository(rdb, log),
		RateLimit:    NewRateLimitRepository(rdb, log),
	}
}
