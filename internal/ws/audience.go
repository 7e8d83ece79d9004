package ws

import (
	"github.com/google/uuid"
)

const (
	audienceKindRoom = "room"
	audienceKindDM   = "dm"
)

// Audience - адресат сообщения: комната либо пара пользователей
type Audience struct {
	Kind  string
	Room  uuid.UUID
	UserA uuid.UUID
	UserB uuid.UUID
}

func RoomAudience(roomID uuid.UUID) Audience {
	return Audience{Kind: audienceKindRoom, Room: roomID}
}

// DMAudience нормализует пару: канал определяется неупорядоченной парой пользователей
func DMAudience(a, b uuid.UUID) Audience {
	if a.String() > b.String() {
		a, b = b, a
	}
	return Audience{Kind: audienceKindDM, UserA: a, UserB: b}
}

func (a Audience) IsRoom() bool {
	return a.Kind == audienceKindRoom
}

// Key возвращает ключ сериализации доступа для этой аудитории
func (a Audience) Key() string {
	if a.IsRoom() {
		return audienceKindRoom + ":" + a.Room.String()
	}
	return audienceKindDM + ":" + a.UserA.String() + ":" + a.UserB.String()
}

// Peer возвращает собеседника в личном канале
func (a Audience) Peer(userID uuid.UUID) uuid.UUID {
	if a.UserA == userID {
		return a.UserB
	}
	return a.UserA
}
