package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chat_platform/internal/config"
	"chat_platform/internal/domain"
	"chat_platform/internal/service"
	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

const eventTimeout = 10 * time.Second

// Hub связывает реестр соединений, каналы комнат, трекер набора и релей.
// Один экземпляр на процесс, внедряется через конструктор.
type Hub struct {
	registry *Registry
	rooms    *RoomChannels
	typing   *TypingTracker
	relay    *Relay

	roomService service.RoomService
	chatService service.ChatService
	log         logger.Logger
}

func NewHub(services *service.Services, registry *Registry, cfg *config.Config, log logger.Logger) *Hub {
	h := &Hub{
		registry:    registry,
		roomService: services.Room,
		chatService: services.Chat,
		log:         log,
	}

	h.rooms = NewRoomChannels(func(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
		participants, err := services.Room.GetParticipants(ctx, roomID)
		if err != nil {
			return nil, err
		}
		members := make([]uuid.UUID, 0, len(participants))
		for _, p := range participants {
			members = append(members, p.UserID)
		}
		return members, nil
	}, log)

	h.typing = NewTypingTracker(cfg.Chat.TypingExpiry, func(aud Audience, userID uuid.UUID) {
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		h.relay.BroadcastTypingStopped(ctx, aud, userID)
	})

	h.relay = NewRelay(services.Chat, services.Friendship, h.rooms, registry, h.typing, log)
	return h
}

// ServeClient обслуживает соединение до его закрытия
func (h *Hub) ServeClient(userID uuid.UUID, userName string, conn *websocket.Conn) {
	c := NewClient(userID, userName, conn, h.log)
	c.heartbeat = func() { h.registry.Touch(userID) }
	h.registry.Register(c)
	h.log.Info("WebSocket client connected", "user_id", userID)

	go c.writePump()
	c.readPump(h.handleFrame)

	h.registry.Unregister(c)
	h.dropTyping(c)
	h.log.Info("WebSocket client disconnected", "user_id", userID)
}

// dropTyping снимает отметки набора при обрыве последнего соединения пользователя
func (h *Hub) dropTyping(c *Client) {
	if h.registry.IsOnline(c.UserID) {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()
	for _, aud := range h.typing.ClearUser(c.UserID) {
		h.relay.BroadcastTypingStopped(ctx, aud, c.UserID)
	}
}

// handleFrame разбирает конверт и диспетчеризует событие.
// Набор событий закрыт: неизвестное событие - ошибка отправителю, а не no-op.
func (h *Hub) handleFrame(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		c.Enqueue(mustMarshal(EventMessageError, &ErrorPayload{Message: "malformed event envelope"}))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
	defer cancel()

	var err error
	switch env.Event {
	case EventCreateRoom:
		err = h.onCreateRoom(ctx, c, env.Data)
	case EventJoinRoom:
		err = h.onJoinRoom(ctx, c, env.Data)
	case EventLeaveRoom:
		err = h.onLeaveRoom(ctx, c, env.Data)
	case EventSendMessage:
		err = h.onSendMessage(ctx, c, env.Data)
	case EventStartTyping:
		err = h.onTyping(ctx, c, env.Data, true)
	case EventStopTyping:
		err = h.onTyping(ctx, c, env.Data, false)
	case EventDMSend:
		err = h.onDMSend(ctx, c, env.Data)
	case EventDMGetMessages:
		err = h.onDMGetMessages(ctx, c, env.Data)
	case EventDMTyping:
		err = h.onDMTyping(ctx, c, env.Data)
	default:
		err = fmt.Errorf("%w: unknown event %q", apperrors.ErrBadRequest, env.Event)
	}

	if err != nil {
		c.Enqueue(mustMarshal(errorEventFor(env.Event), &ErrorPayload{Message: clientMessage(err)}))
	}
}

// clientMessage возвращает текст ошибки, пригодный для клиента
func clientMessage(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrInternalServer):
		return "internal server error"
	default:
		return err.Error()
	}
}

func (h *Hub) onCreateRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var p CreateRoomPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return apperrors.ErrBadRequest
	}

	room, err := h.roomService.Create(ctx, c.UserID, p.Name, p.Visibility, p.Mode, p.Capacity)
	if err != nil {
		return err
	}
	if err := h.rooms.Add(ctx, room.ID, c.UserID); err != nil {
		h.log.Error("Failed to register creator in room channel", "error", err, "room_id", room.ID)
	}

	// Подтверждение приходит во все соединения создателя
	h.registry.Send(c.UserID, mustMarshal(EventRoomCreated, room))
	return nil
}

func (h *Hub) onJoinRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var p JoinRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == uuid.Nil {
		return apperrors.ErrBadRequest
	}

	outcome, err := h.roomService.Join(ctx, p.RoomID, c.UserID)
	if err != nil {
		return err
	}

	h.registry.Send(c.UserID, mustMarshal(EventRoomJoined, &RoomJoinedPayload{RoomID: p.RoomID, Status: outcome.Status}))

	switch outcome.Status {
	case service.JoinStatusJoined:
		h.AdmitToRoom(ctx, p.RoomID, c.UserID, c.UserName)
	case service.JoinStatusPending:
		h.NotifyJoinRequest(ctx, outcome.Request)
	}
	return nil
}

// AdmitToRoom вносит нового участника в канал комнаты.
// Вызывается и из сокетного пути, и из REST-слоя: членство меняется
// в Postgres, но рассылка идёт по состоянию канала, и без синхронизации
// принятый через REST участник остался бы невидим до перезапуска.
func (h *Hub) AdmitToRoom(ctx context.Context, roomID, userID uuid.UUID, userName string) {
	if err := h.rooms.Add(ctx, roomID, userID); err != nil {
		h.log.Error("Failed to register participant in room channel", "error", err, "room_id", roomID)
		return
	}
	if userName != "" {
		h.relay.SystemRoomNotice(ctx, roomID, fmt.Sprintf("%s joined the room", userName))
	}
}

// EvictFromRoom исключает участника из канала комнаты после выхода через REST
func (h *Hub) EvictFromRoom(ctx context.Context, roomID, userID uuid.UUID, userName string) {
	h.relay.ClearTyping(ctx, RoomAudience(roomID), userID)
	if err := h.rooms.Remove(ctx, roomID, userID); err != nil {
		h.log.Error("Failed to remove participant from room channel", "error", err, "room_id", roomID)
		return
	}
	if userName != "" {
		h.relay.SystemRoomNotice(ctx, roomID, fmt.Sprintf("%s left the room", userName))
	}
}

// NotifyJoinRequest доставляет создателю комнаты заявку на вступление
// в его живые соединения; создатель без соединений увидит заявку в списке
func (h *Hub) NotifyJoinRequest(ctx context.Context, request *domain.JoinRequest) {
	if request == nil {
		return
	}
	room, err := h.roomService.GetByID(ctx, request.RoomID)
	if err != nil {
		h.log.Error("Failed to resolve room for join request notification", "error", err, "room_id", request.RoomID)
		return
	}
	h.registry.Send(room.CreatorID, mustMarshal(EventNotificationJoinRequest, request))
}

func (h *Hub) onLeaveRoom(ctx context.Context, c *Client, data json.RawMessage) error {
	var p LeaveRoomPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == uuid.Nil {
		return apperrors.ErrBadRequest
	}

	if err := h.roomService.Leave(ctx, p.RoomID, c.UserID); err != nil {
		return err
	}

	h.registry.Send(c.UserID, mustMarshal(EventRoomLeft, &RoomLeftPayload{RoomID: p.RoomID}))
	h.EvictFromRoom(ctx, p.RoomID, c.UserID, c.UserName)
	return nil
}

func (h *Hub) onSendMessage(ctx context.Context, c *Client, data json.RawMessage) error {
	var p SendMessagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return apperrors.ErrBadRequest
	}
	return h.relay.RoomMessage(ctx, c, p)
}

func (h *Hub) onTyping(ctx context.Context, c *Client, data json.RawMessage, started bool) error {
	var p TypingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.RoomID == uuid.Nil {
		return apperrors.ErrBadRequest
	}

	member, err := h.rooms.Contains(ctx, p.RoomID, c.UserID)
	if err != nil {
		return err
	}
	if !member {
		return apperrors.ErrNotParticipant
	}

	aud := RoomAudience(p.RoomID)
	if started {
		h.relay.StartTyping(ctx, aud, c.UserID)
	} else {
		h.relay.ClearTyping(ctx, aud, c.UserID)
	}
	return nil
}

func (h *Hub) onDMSend(ctx context.Context, c *Client, data json.RawMessage) error {
	var p DMSendPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return apperrors.ErrBadRequest
	}
	return h.relay.DirectMessage(ctx, c, p)
}

func (h *Hub) onDMGetMessages(ctx context.Context, c *Client, data json.RawMessage) error {
	var p DMGetMessagesPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PeerID == uuid.Nil {
		return apperrors.ErrBadRequest
	}

	messages, err := h.chatService.GetDirectMessages(ctx, c.UserID, p.PeerID, p.Limit, p.Offset)
	if err != nil {
		return err
	}

	wire := make([]*WireMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, &WireMessage{Message: m})
	}

	// История уходит только в запросившее соединение
	c.Enqueue(mustMarshal(EventDMMessages, &DMMessagesPayload{PeerID: p.PeerID, Messages: wire}))
	return nil
}

func (h *Hub) onDMTyping(ctx context.Context, c *Client, data json.RawMessage) error {
	var p DMTypingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.PeerID == uuid.Nil || p.PeerID == c.UserID {
		return apperrors.ErrBadRequest
	}

	aud := DMAudience(c.UserID, p.PeerID)
	if p.Typing {
		h.relay.StartTyping(ctx, aud, c.UserID)
	} else {
		h.relay.ClearTyping(ctx, aud, c.UserID)
	}
	return nil
}

// PushNotification доставляет уведомление в живые соединения адресата.
// Вызывается из REST-слоя после сохранения уведомления.
func (h *Hub) PushNotification(userID uuid.UUID, notification *domain.Notification) {
	if notification == nil {
		return
	}
	h.registry.Send(userID, mustMarshal(EventNotificationFriend, notification))
}
