package ws

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat_platform/internal/domain"
	"chat_platform/internal/service"
	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

// Relay проводит сообщение по пути: валидация, сохранение, рассылка.
// Сообщение сначала пишется в хранилище и только потом рассылается:
// событие new-message означает, что сообщение уже в истории.
type Relay struct {
	chat     service.ChatService
	friends  service.FriendshipService
	rooms    *RoomChannels
	registry *Registry
	typing   *TypingTracker
	log      logger.Logger
}

func NewRelay(chat service.ChatService, friends service.FriendshipService, rooms *RoomChannels, registry *Registry, typing *TypingTracker, log logger.Logger) *Relay {
	return &Relay{
		chat:     chat,
		friends:  friends,
		rooms:    rooms,
		registry: registry,
		typing:   typing,
		log:      log,
	}
}

// validateOutgoing проверяет присланное клиентом сообщение.
// SYSTEM-сообщения порождает только сервер.
func validateOutgoing(messageType, content string, mediaURL *string) error {
	if !domain.ValidMessageType(messageType) || messageType == domain.MessageTypeSystem {
		return apperrors.ErrInvalidMessage
	}

	hasContent := strings.TrimSpace(content) != ""
	hasMedia := mediaURL != nil && strings.TrimSpace(*mediaURL) != ""

	switch messageType {
	case domain.MessageTypeText:
		if !hasContent {
			return apperrors.ErrInvalidMessage
		}
	case domain.MessageTypeMedia, domain.MessageTypeVoice:
		if !hasMedia {
			return apperrors.ErrInvalidMessage
		}
	}
	return nil
}

// RoomMessage сохраняет и рассылает сообщение комнаты
func (r *Relay) RoomMessage(ctx context.Context, c *Client, p SendMessagePayload) error {
	if p.RoomID == uuid.Nil {
		return apperrors.ErrInvalidMessage
	}
	if p.MessageType == "" {
		p.MessageType = domain.MessageTypeText
	}
	if err := validateOutgoing(p.MessageType, p.Content, p.MediaURL); err != nil {
		return err
	}

	member, err := r.rooms.Contains(ctx, p.RoomID, c.UserID)
	if err != nil {
		return err
	}
	if !member {
		return apperrors.ErrNotParticipant
	}

	roomID := p.RoomID
	message := &domain.Message{
		RoomID:      &roomID,
		SenderID:    c.UserID,
		Content:     strings.TrimSpace(p.Content),
		MediaURL:    p.MediaURL,
		MessageType: p.MessageType,
		ClientMsgID: p.ClientMsgID,
	}

	if err := r.chat.SaveMessage(ctx, message); err != nil {
		r.log.Error("Failed to save room message", "error", err, "room_id", p.RoomID, "sender_id", c.UserID)
		return apperrors.ErrInternalServer
	}

	// Отправка сообщения снимает отметку «печатает»
	r.ClearTyping(ctx, RoomAudience(p.RoomID), c.UserID)

	frame := mustMarshal(EventNewMessage, &WireMessage{Message: message, SenderName: c.UserName})
	r.rooms.Broadcast(ctx, r.registry, p.RoomID, frame)
	return nil
}

// DirectMessage сохраняет и рассылает личное сообщение обеим сторонам
func (r *Relay) DirectMessage(ctx context.Context, c *Client, p DMSendPayload) error {
	if p.ReceiverID == uuid.Nil || p.ReceiverID == c.UserID {
		return apperrors.ErrInvalidMessage
	}
	if p.MessageType == "" {
		p.MessageType = domain.MessageTypeText
	}
	if err := validateOutgoing(p.MessageType, p.Content, p.MediaURL); err != nil {
		return err
	}

	ok, err := r.friends.AreFriends(ctx, c.UserID, p.ReceiverID)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.ErrNotFriends
	}

	receiverID := p.ReceiverID
	message := &domain.Message{
		ReceiverID:  &receiverID,
		SenderID:    c.UserID,
		Content:     strings.TrimSpace(p.Content),
		MediaURL:    p.MediaURL,
		MessageType: p.MessageType,
		ClientMsgID: p.ClientMsgID,
	}

	if err := r.chat.SaveMessage(ctx, message); err != nil {
		r.log.Error("Failed to save direct message", "error", err, "receiver_id", p.ReceiverID, "sender_id", c.UserID)
		return apperrors.ErrInternalServer
	}

	r.ClearTyping(ctx, DMAudience(c.UserID, p.ReceiverID), c.UserID)

	frame := mustMarshal(EventDMNew, &WireMessage{Message: message, SenderName: c.UserName})
	r.registry.Send(p.ReceiverID, frame)
	r.registry.Send(c.UserID, frame)
	return nil
}

// SystemRoomNotice рассылает служебное сообщение комнаты; в историю оно не пишется
func (r *Relay) SystemRoomNotice(ctx context.Context, roomID uuid.UUID, text string) {
	roomRef := roomID
	message := &domain.Message{
		ID:          uuid.New(),
		RoomID:      &roomRef,
		Content:     text,
		MessageType: domain.MessageTypeSystem,
		CreatedAt:   time.Now(),
	}
	r.rooms.Broadcast(ctx, r.registry, roomID, mustMarshal(EventNewMessage, &WireMessage{Message: message}))
}

// StartTyping отмечает пользователя печатающим и рассылает, если набор изменился
func (r *Relay) StartTyping(ctx context.Context, aud Audience, userID uuid.UUID) {
	if !r.typing.Start(aud, userID) {
		return
	}
	r.broadcastTyping(ctx, aud, userID, true)
}

// ClearTyping снимает отметку и рассылает, если она стояла
func (r *Relay) ClearTyping(ctx context.Context, aud Audience, userID uuid.UUID) {
	if !r.typing.Stop(aud, userID) {
		return
	}
	r.broadcastTyping(ctx, aud, userID, false)
}

// BroadcastTypingStopped рассылает протухание отметки; сама отметка уже снята трекером
func (r *Relay) BroadcastTypingStopped(ctx context.Context, aud Audience, userID uuid.UUID) {
	r.broadcastTyping(ctx, aud, userID, false)
}

func (r *Relay) broadcastTyping(ctx context.Context, aud Audience, userID uuid.UUID, started bool) {
	if aud.IsRoom() {
		event := EventUserStoppedTyping
		if started {
			event = EventUserTyping
		}
		roomID := aud.Room
		payload := &TypingBroadcast{RoomID: &roomID, UserID: userID, Typing: r.typing.Typers(aud)}
		r.rooms.Broadcast(ctx, r.registry, aud.Room, mustMarshal(event, payload), userID)
		return
	}

	// В личном канале собеседник видит peer_id печатающего
	peer := aud.Peer(userID)
	r.registry.Send(peer, mustMarshal(EventDMTypingBroadcast, &DMTypingPayload{PeerID: userID, Typing: started}))
}
