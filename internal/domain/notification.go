package domain

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Kind      string    `json:"kind"`
	ActorID   uuid.UUID `json:"actor_id"`
	ActorName string    `json:"actor_name,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	NotificationFriendRequest  = "FRIEND_REQUEST"
	NotificationFriendAccepted = "FRIEND_ACCEPTED"
	NotificationFriendDeclined = "FRIEND_DECLINED"
)
