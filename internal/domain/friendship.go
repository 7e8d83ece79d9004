package domain

import (
	"time"

	"github.com/google/uuid"
)

type Friendship struct {
	ID          uuid.UUID  `json:"id"`
	RequesterID uuid.UUID  `json:"requester_id"`
	AddresseeID uuid.UUID  `json:"addressee_id"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
}

const (
	FriendshipStatusPending  = "PENDING"
	FriendshipStatusAccepted = "ACCEPTED"
	FriendshipStatusDeclined = "DECLINED"
)
