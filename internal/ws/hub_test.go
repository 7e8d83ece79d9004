package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat_platform/internal/config"
	"chat_platform/internal/domain"
	"chat_platform/internal/service"
	apperrors "chat_platform/pkg/errors"
)

type fakeRoomService struct {
	room         *domain.Room
	createErr    error
	joinOutcome  *service.JoinOutcome
	joinErr      error
	leaveErr     error
	participants []*domain.RoomParticipant
}

func (f *fakeRoomService) Create(ctx context.Context, creatorID uuid.UUID, name, visibility, mode string, capacity int) (*domain.Room, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.room, nil
}

func (f *fakeRoomService) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	return f.room, nil
}

func (f *fakeRoomService) List(ctx context.Context, limit, offset int) ([]*domain.Room, error) {
	return nil, nil
}

func (f *fakeRoomService) Join(ctx context.Context, roomID, userID uuid.UUID) (*service.JoinOutcome, error) {
	if f.joinErr != nil {
		return nil, f.joinErr
	}
	return f.joinOutcome, nil
}

func (f *fakeRoomService) Leave(ctx context.Context, roomID, userID uuid.UUID) error {
	return f.leaveErr
}

func (f *fakeRoomService) ApproveJoinRequest(ctx context.Context, requestID, actorID uuid.UUID) (*domain.JoinRequest, *domain.RoomParticipant, error) {
	return nil, nil, nil
}

func (f *fakeRoomService) DenyJoinRequest(ctx context.Context, requestID, actorID uuid.UUID) (*domain.JoinRequest, error) {
	return nil, nil
}

func (f *fakeRoomService) ListJoinRequests(ctx context.Context, roomID, actorID uuid.UUID) ([]*domain.JoinRequest, error) {
	return nil, nil
}

func (f *fakeRoomService) GetParticipants(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomParticipant, error) {
	return f.participants, nil
}

func (f *fakeRoomService) IsParticipant(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	for _, p := range f.participants {
		if p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

type hubFixture struct {
	hub     *Hub
	rooms   *fakeRoomService
	chat    *fakeChatService
	friends *fakeFriendshipService
}

func newHubFixture(t *testing.T) *hubFixture {
	t.Helper()
	log := testLogger()

	f := &hubFixture{
		rooms:   &fakeRoomService{},
		chat:    &fakeChatService{},
		friends: &fakeFriendshipService{friends: true},
	}
	services := &service.Services{
		Room:       f.rooms,
		Chat:       f.chat,
		Friendship: f.friends,
	}
	cfg := &config.Config{Chat: config.ChatConfig{TypingExpiry: time.Minute}}
	f.hub = NewHub(services, NewRegistry(nil, 0, log), cfg, log)
	return f
}

func (f *hubFixture) connect(t *testing.T, name string) *Client {
	t.Helper()
	c := NewClient(uuid.New(), name, nil, testLogger())
	f.hub.registry.Register(c)
	return c
}

func frame(t *testing.T, event string, payload interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	raw, err := json.Marshal(Envelope{Event: event, Data: data})
	require.NoError(t, err)
	return raw
}

func TestHandleFrameMalformed(t *testing.T) {
	f := newHubFixture(t)
	c := f.connect(t, "alice")

	f.hub.handleFrame(c, []byte("{not json"))

	env := readFrame(t, c)
	assert.Equal(t, EventMessageError, env.Event)
}

func TestHandleFrameUnknownEvent(t *testing.T) {
	f := newHubFixture(t)
	c := f.connect(t, "alice")

	f.hub.handleFrame(c, frame(t, "teleport", struct{}{}))

	env := readFrame(t, c)
	assert.Equal(t, EventMessageError, env.Event)
}

func TestCreateRoomConfirmsToCreator(t *testing.T) {
	f := newHubFixture(t)
	c := f.connect(t, "alice")
	f.rooms.room = &domain.Room{ID: uuid.New(), Name: "standup", CreatorID: c.UserID}

	f.hub.handleFrame(c, frame(t, EventCreateRoom, CreateRoomPayload{Name: "standup"}))

	env := readFrame(t, c)
	assert.Equal(t, EventRoomCreated, env.Event)

	var room domain.Room
	require.NoError(t, json.Unmarshal(env.Data, &room))
	assert.Equal(t, f.rooms.room.ID, room.ID)

	// Создатель сразу числится в канале комнаты
	ok, err := f.hub.rooms.Contains(context.Background(), f.rooms.room.ID, c.UserID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCreateRoomFailureRoutedToCreateError(t *testing.T) {
	f := newHubFixture(t)
	c := f.connect(t, "alice")
	f.rooms.createErr = apperrors.ErrBadRequest

	f.hub.handleFrame(c, frame(t, EventCreateRoom, CreateRoomPayload{}))

	env := readFrame(t, c)
	assert.Equal(t, EventCreateError, env.Event)
}

func TestJoinRoomNotifiesRoom(t *testing.T) {
	f := newHubFixture(t)
	roomID := uuid.New()
	joiner := f.connect(t, "alice")
	resident := f.connect(t, "bob")
	require.NoError(t, f.hub.rooms.Add(context.Background(), roomID, resident.UserID))
	f.rooms.joinOutcome = &service.JoinOutcome{Status: service.JoinStatusJoined}

	f.hub.handleFrame(joiner, frame(t, EventJoinRoom, JoinRoomPayload{RoomID: roomID}))

	env := readFrame(t, joiner)
	assert.Equal(t, EventRoomJoined, env.Event)

	var joined RoomJoinedPayload
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, service.JoinStatusJoined, joined.Status)

	// Вошедший получает и своё служебное сообщение
	notice := readFrame(t, joiner)
	assert.Equal(t, EventNewMessage, notice.Event)

	notice = readFrame(t, resident)
	assert.Equal(t, EventNewMessage, notice.Event)

	var msg WireMessage
	require.NoError(t, json.Unmarshal(notice.Data, &msg))
	assert.Equal(t, domain.MessageTypeSystem, msg.MessageType)
}

func TestJoinRoomPendingSkipsNotice(t *testing.T) {
	f := newHubFixture(t)
	roomID := uuid.New()
	joiner := f.connect(t, "alice")
	f.rooms.joinOutcome = &service.JoinOutcome{Status: service.JoinStatusPending}

	f.hub.handleFrame(joiner, frame(t, EventJoinRoom, JoinRoomPayload{RoomID: roomID}))

	env := readFrame(t, joiner)
	assert.Equal(t, EventRoomJoined, env.Event)
	assert.Empty(t, joiner.send)

	ok, err := f.hub.rooms.Contains(context.Background(), roomID, joiner.UserID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestJoinRoomFullRoutedToJoinError(t *testing.T) {
	f := newHubFixture(t)
	joiner := f.connect(t, "alice")
	f.rooms.joinErr = apperrors.ErrRoomFull

	f.hub.handleFrame(joiner, frame(t, EventJoinRoom, JoinRoomPayload{RoomID: uuid.New()}))

	env := readFrame(t, joiner)
	assert.Equal(t, EventJoinError, env.Event)
}

func TestLeaveRoomRemovesFromChannel(t *testing.T) {
	f := newHubFixture(t)
	roomID := uuid.New()
	leaver := f.connect(t, "alice")
	resident := f.connect(t, "bob")
	require.NoError(t, f.hub.rooms.Add(context.Background(), roomID, leaver.UserID))
	require.NoError(t, f.hub.rooms.Add(context.Background(), roomID, resident.UserID))

	f.hub.handleFrame(leaver, frame(t, EventLeaveRoom, LeaveRoomPayload{RoomID: roomID}))

	env := readFrame(t, leaver)
	assert.Equal(t, EventRoomLeft, env.Event)

	notice := readFrame(t, resident)
	assert.Equal(t, EventNewMessage, notice.Event)

	ok, err := f.hub.rooms.Contains(context.Background(), roomID, leaver.UserID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApprovedParticipantVisibleToRoomChannel(t *testing.T) {
	f := newHubFixture(t)
	roomID := uuid.New()
	resident := f.connect(t, "bob")
	approved := f.connect(t, "carol")
	f.rooms.participants = []*domain.RoomParticipant{
		{RoomID: roomID, UserID: resident.UserID},
	}

	// Канал гидратируется из хранилища один раз и дальше живёт своей памятью
	ok, err := f.hub.rooms.Contains(context.Background(), roomID, resident.UserID)
	require.NoError(t, err)
	require.True(t, ok)

	// Одобрение заявки пишет участника в хранилище и синхронизирует канал
	f.rooms.participants = append(f.rooms.participants, &domain.RoomParticipant{RoomID: roomID, UserID: approved.UserID})
	f.hub.AdmitToRoom(context.Background(), roomID, approved.UserID, "")

	ok, err = f.hub.rooms.Contains(context.Background(), roomID, approved.UserID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Сообщение жильца доходит до принятого участника
	f.hub.handleFrame(resident, frame(t, EventSendMessage, SendMessagePayload{RoomID: roomID, Content: "welcome"}))
	env := readFrame(t, approved)
	assert.Equal(t, EventNewMessage, env.Event)

	// И принятый участник сам может писать в комнату
	f.hub.handleFrame(approved, frame(t, EventSendMessage, SendMessagePayload{RoomID: roomID, Content: "thanks"}))
	env = readFrame(t, resident)
	assert.Equal(t, EventNewMessage, env.Event)
}

func TestEvictFromRoomRemovesFromChannel(t *testing.T) {
	f := newHubFixture(t)
	roomID := uuid.New()
	leaver := f.connect(t, "alice")
	resident := f.connect(t, "bob")
	require.NoError(t, f.hub.rooms.Add(context.Background(), roomID, leaver.UserID))
	require.NoError(t, f.hub.rooms.Add(context.Background(), roomID, resident.UserID))

	f.hub.EvictFromRoom(context.Background(), roomID, leaver.UserID, "alice")

	ok, err := f.hub.rooms.Contains(context.Background(), roomID, leaver.UserID)
	require.NoError(t, err)
	assert.False(t, ok)

	notice := readFrame(t, resident)
	assert.Equal(t, EventNewMessage, notice.Event)
	assert.Empty(t, leaver.send)
}

func TestPendingJoinNotifiesCreator(t *testing.T) {
	f := newHubFixture(t)
	roomID := uuid.New()
	creator := f.connect(t, "admin")
	joiner := f.connect(t, "alice")
	f.rooms.room = &domain.Room{ID: roomID, CreatorID: creator.UserID, Visibility: domain.RoomVisibilityPrivate}
	f.rooms.joinOutcome = &service.JoinOutcome{
		Status:  service.JoinStatusPending,
		Request: &domain.JoinRequest{ID: uuid.New(), RoomID: roomID, UserID: joiner.UserID, Status: domain.JoinRequestStatusPending},
	}

	f.hub.handleFrame(joiner, frame(t, EventJoinRoom, JoinRoomPayload{RoomID: roomID}))

	env := readFrame(t, joiner)
	assert.Equal(t, EventRoomJoined, env.Event)

	env = readFrame(t, creator)
	assert.Equal(t, EventNotificationJoinRequest, env.Event)

	var request domain.JoinRequest
	require.NoError(t, json.Unmarshal(env.Data, &request))
	assert.Equal(t, joiner.UserID, request.UserID)
	assert.Equal(t, roomID, request.RoomID)
}

func TestDMGetMessagesRepliesToRequestingConnectionOnly(t *testing.T) {
	f := newHubFixture(t)
	peerID := uuid.New()
	f.chat.history = []*domain.Message{
		{ID: uuid.New(), SenderID: peerID, Content: "old", MessageType: domain.MessageTypeText},
	}

	requester := f.connect(t, "alice")
	otherTab := NewClient(requester.UserID, "alice", nil, testLogger())
	f.hub.registry.Register(otherTab)

	f.hub.handleFrame(requester, frame(t, EventDMGetMessages, DMGetMessagesPayload{PeerID: peerID}))

	env := readFrame(t, requester)
	assert.Equal(t, EventDMMessages, env.Event)

	var payload DMMessagesPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, peerID, payload.PeerID)
	require.Len(t, payload.Messages, 1)
	assert.Equal(t, "old", payload.Messages[0].Content)

	assert.Empty(t, otherTab.send)
}

func TestDMTypingSelfRejected(t *testing.T) {
	f := newHubFixture(t)
	c := f.connect(t, "alice")

	f.hub.handleFrame(c, frame(t, EventDMTyping, DMTypingPayload{PeerID: c.UserID, Typing: true}))

	env := readFrame(t, c)
	assert.Equal(t, EventDMError, env.Event)
}

func TestTypingRequiresMembership(t *testing.T) {
	f := newHubFixture(t)
	c := f.connect(t, "alice")

	f.hub.handleFrame(c, frame(t, EventStartTyping, TypingPayload{RoomID: uuid.New()}))

	env := readFrame(t, c)
	assert.Equal(t, EventMessageError, env.Event)
}
