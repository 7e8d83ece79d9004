package domain

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Visibility      string    `json:"visibility"`
	Mode            string    `json:"mode"`
	CreatorID       uuid.UUID `json:"creator_id"`
	MaxParticipants int       `json:"max_participants"`
	LiveKitRoomName string    `json:"livekit_room_name,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type RoomParticipant struct {
	ID       uuid.UUID  `json:"id"`
	RoomID   uuid.UUID  `json:"room_id"`
	UserID   uuid.UUID  `json:"user_id"`
	Role     string     `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

type JoinRequest struct {
	ID              uuid.UUID  `json:"id"`
	RoomID          uuid.UUID  `json:"room_id"`
	UserID          uuid.UUID  `json:"user_id"`
	Status          string     `json:"status"`
	RequestedAt     time.Time  `json:"requested_at"`
	DecidedAt       *time.Time `json:"decided_at,omitempty"`
	DecidedByUserID *uuid.UUID `json:"decided_by_user_id,omitempty"`
}

const (
	RoomVisibilityPublic  = "public"
	RoomVisibilityPrivate = "private"
)

const (
	RoomModeChat  = "chat"
	RoomModeVideo = "video"
	RoomModeBoth  = "both"
)

const (
	ParticipantRoleCreator     = "creator"
	ParticipantRoleParticipant = "participant"
)

const (
	JoinRequestStatusPending  = "PENDING"
	JoinRequestStatusApproved = "APPROVED"
	JoinRequestStatusDenied   = "DENIED"
)

// ValidVisibility проверяет допустимость значения видимости комнаты
func ValidVisibility(v string) bool {
	return v == RoomVisibilityPublic || v == RoomVisibilityPrivate
}

// ValidMode проверяет допустимость режима комнаты
func ValidMode(m string) bool {
	return m == RoomModeChat || m == RoomModeVideo || m == RoomModeBoth
}
