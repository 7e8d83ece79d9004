package ws

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"chat_platform/internal/domain"
)

// Имена событий - контракт совместимости с клиентом, не менять
const (
	// Входящие события комнат
	EventCreateRoom  = "create-room"
	EventJoinRoom    = "join-room"
	EventLeaveRoom   = "leave-room"
	EventSendMessage = "send-message"
	EventStartTyping = "startTyping"
	EventStopTyping  = "stopTyping"

	// Входящие события личных сообщений
	EventDMSend        = "dm:send"
	EventDMGetMessages = "dm:get_messages"
	EventDMTyping      = "dm:typing"

	// Исходящие события
	EventRoomCreated        = "room-created"
	EventCreateError        = "create:error"
	EventRoomJoined         = "room-joined"
	EventJoinError          = "join:error"
	EventRoomLeft           = "room-left"
	EventLeaveError         = "leave:error"
	EventNewMessage         = "new-message"
	EventMessageError       = "message:error"
	EventUserTyping         = "userTyping"
	EventUserStoppedTyping  = "userStoppedTyping"
	EventDMNew              = "dm:new"
	EventDMMessages         = "dm:messages"
	EventDMTypingBroadcast  = "dm:typing"
	EventDMError            = "dm:error"
	EventNotificationFriend = "notification:friend"

	// Заявка на вступление в приватную комнату уходит её создателю
	EventNotificationJoinRequest = "notification:join-request"
)

// Envelope - общий конверт сообщения через WebSocket
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type CreateRoomPayload struct {
	Name       string `json:"name"`
	Visibility string `json:"visibility,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Capacity   int    `json:"capacity,omitempty"`
}

type JoinRoomPayload struct {
	RoomID uuid.UUID `json:"room_id"`
}

type LeaveRoomPayload struct {
	RoomID uuid.UUID `json:"room_id"`
}

type SendMessagePayload struct {
	RoomID      uuid.UUID `json:"room_id"`
	Content     string    `json:"content,omitempty"`
	MediaURL    *string   `json:"media_url,omitempty"`
	MessageType string    `json:"message_type"`
	ClientMsgID string    `json:"client_msg_id,omitempty"`
}

type TypingPayload struct {
	RoomID uuid.UUID `json:"room_id"`
}

type DMSendPayload struct {
	ReceiverID  uuid.UUID `json:"receiver_id"`
	Content     string    `json:"content,omitempty"`
	MediaURL    *string   `json:"media_url,omitempty"`
	MessageType string    `json:"message_type"`
	ClientMsgID string    `json:"client_msg_id,omitempty"`
}

type DMGetMessagesPayload struct {
	PeerID uuid.UUID `json:"peer_id"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset,omitempty"`
}

type DMTypingPayload struct {
	PeerID uuid.UUID `json:"peer_id"`
	Typing bool      `json:"typing"`
}

// WireMessage - сообщение в исходящем виде, с эхом корреляционного id отправителя
type WireMessage struct {
	*domain.Message
	SenderName string `json:"sender_name,omitempty"`
}

type RoomJoinedPayload struct {
	RoomID uuid.UUID `json:"room_id"`
	Status string    `json:"status"`
}

type RoomLeftPayload struct {
	RoomID uuid.UUID `json:"room_id"`
}

// TypingBroadcast несет полный состав печатающих для аудитории
type TypingBroadcast struct {
	RoomID *uuid.UUID  `json:"room_id,omitempty"`
	PeerID *uuid.UUID  `json:"peer_id,omitempty"`
	UserID uuid.UUID   `json:"user_id"`
	Typing []uuid.UUID `json:"typing"`
}

type DMMessagesPayload struct {
	PeerID   uuid.UUID      `json:"peer_id"`
	Messages []*WireMessage `json:"messages"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// mustMarshal кодирует исходящее событие; ошибок кодирования на собственных типах не бывает
func mustMarshal(event string, data interface{}) []byte {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			panic(fmt.Sprintf("ws: marshal %s: %v", event, err))
		}
		raw = b
	}
	out, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		panic(fmt.Sprintf("ws: marshal envelope %s: %v", event, err))
	}
	return out
}

// errorEventFor возвращает имя события ошибки для входящего события
func errorEventFor(event string) string {
	switch event {
	case EventCreateRoom:
		return EventCreateError
	case EventJoinRoom:
		return EventJoinError
	case EventLeaveRoom:
		return EventLeaveError
	case EventDMSend, EventDMGetMessages, EventDMTyping:
		return EventDMError
	default:
		return EventMessageError
	}
}
