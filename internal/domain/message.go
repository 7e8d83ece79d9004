package domain

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID          uuid.UUID  `json:"id"`
	RoomID      *uuid.UUID `json:"room_id,omitempty"`
	ReceiverID  *uuid.UUID `json:"receiver_id,omitempty"`
	SenderID    uuid.UUID  `json:"sender_id"`
	Content     string     `json:"content,omitempty"`
	MediaURL    *string    `json:"media_url,omitempty"`
	MessageType string     `json:"message_type"`
	ClientMsgID string     `json:"client_msg_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

const (
	MessageTypeText   = "TEXT"
	MessageTypeMedia  = "MEDIA"
	MessageTypeVoice  = "VOICE"
	MessageTypeSystem = "SYSTEM"
)

// ValidMessageType проверяет допустимость типа сообщения
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeMedia, MessageTypeVoice, MessageTypeSystem:
		return true
	}
	return false
}

// IsDirect возвращает true для личного сообщения (адресат - пользователь, а не комната)
func (m *Message) IsDirect() bool {
	return m.ReceiverID != nil
}
