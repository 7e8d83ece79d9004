package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat_platform/internal/domain"
	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

type memMessageRepo struct {
	messages  []*domain.Message
	lastLimit int
}

func (m *memMessageRepo) Create(ctx context.Context, message *domain.Message) error {
	m.messages = append(m.messages, message)
	return nil
}

func (m *memMessageRepo) GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	m.lastLimit = limit
	var out []*domain.Message
	for _, msg := range m.messages {
		if msg.RoomID != nil && *msg.RoomID == roomID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessageRepo) GetDirectMessages(ctx context.Context, userA, userB uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	m.lastLimit = limit
	var out []*domain.Message
	for _, msg := range m.messages {
		if msg.ReceiverID == nil {
			continue
		}
		pair := (msg.SenderID == userA && *msg.ReceiverID == userB) ||
			(msg.SenderID == userB && *msg.ReceiverID == userA)
		if pair {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *memMessageRepo) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	for _, msg := range m.messages {
		if msg.ID == messageID {
			return msg, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

type memFriendshipRepo struct {
	friendships []*domain.Friendship
}

func (m *memFriendshipRepo) Create(ctx context.Context, friendship *domain.Friendship) error {
	m.friendships = append(m.friendships, friendship)
	return nil
}

func (m *memFriendshipRepo) GetByID(ctx context.Context, friendshipID uuid.UUID) (*domain.Friendship, error) {
	for _, f := range m.friendships {
		if f.ID == friendshipID {
			return f, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memFriendshipRepo) GetByPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Friendship, error) {
	for _, f := range m.friendships {
		pair := (f.RequesterID == userA && f.AddresseeID == userB) ||
			(f.RequesterID == userB && f.AddresseeID == userA)
		if pair {
			return f, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memFriendshipRepo) Update(ctx context.Context, friendship *domain.Friendship) error {
	for i, f := range m.friendships {
		if f.ID == friendship.ID {
			m.friendships[i] = friendship
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (m *memFriendshipRepo) ListFriends(ctx context.Context, userID uuid.UUID) ([]*domain.User, error) {
	return nil, nil
}

func (m *memFriendshipRepo) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Friendship, error) {
	return nil, nil
}

type chatFixture struct {
	svc      ChatService
	messages *memMessageRepo
	rooms    *memRoomRepo
	friends  *memFriendshipRepo
}

func newChatFixture() *chatFixture {
	f := &chatFixture{
		messages: &memMessageRepo{},
		rooms:    newMemRoomRepo(),
		friends:  &memFriendshipRepo{},
	}
	f.svc = NewChatService(f.messages, f.rooms, f.friends, testConfig(), logger.New("error"))
	return f
}

func TestSaveMessageFillsIdentity(t *testing.T) {
	f := newChatFixture()
	roomID := uuid.New()

	msg := &domain.Message{
		RoomID:      &roomID,
		SenderID:    uuid.New(),
		Content:     "hi",
		MessageType: domain.MessageTypeText,
	}
	require.NoError(t, f.svc.SaveMessage(context.Background(), msg))

	assert.NotEqual(t, uuid.Nil, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.Len(t, f.messages.messages, 1)
}

func TestGetRoomMessagesRequiresMembership(t *testing.T) {
	f := newChatFixture()
	roomID := uuid.New()
	f.rooms.rooms[roomID] = &domain.Room{ID: roomID, Name: "r", MaxParticipants: 10}

	_, err := f.svc.GetRoomMessages(context.Background(), roomID, uuid.New(), 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

func TestGetRoomMessagesClampsLimit(t *testing.T) {
	f := newChatFixture()
	roomID := uuid.New()
	userID := uuid.New()
	f.rooms.rooms[roomID] = &domain.Room{ID: roomID, Name: "r", MaxParticipants: 10}
	require.NoError(t, f.rooms.CreateParticipant(context.Background(), &domain.RoomParticipant{
		ID: uuid.New(), RoomID: roomID, UserID: userID,
	}))

	_, err := f.svc.GetRoomMessages(context.Background(), roomID, userID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, f.messages.lastLimit)

	_, err = f.svc.GetRoomMessages(context.Background(), roomID, userID, 500, 0)
	require.NoError(t, err)
	assert.Equal(t, 50, f.messages.lastLimit)

	_, err = f.svc.GetRoomMessages(context.Background(), roomID, userID, 25, 0)
	require.NoError(t, err)
	assert.Equal(t, 25, f.messages.lastLimit)
}

func TestGetDirectMessagesRequiresFriendship(t *testing.T) {
	f := newChatFixture()
	userID := uuid.New()
	peerID := uuid.New()

	_, err := f.svc.GetDirectMessages(context.Background(), userID, peerID, 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFriends)

	// Неподтверждённая заявка - ещё не дружба
	f.friends.friendships = append(f.friends.friendships, &domain.Friendship{
		ID: uuid.New(), RequesterID: userID, AddresseeID: peerID, Status: domain.FriendshipStatusPending,
	})
	_, err = f.svc.GetDirectMessages(context.Background(), userID, peerID, 0, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFriends)

	f.friends.friendships[0].Status = domain.FriendshipStatusAccepted
	_, err = f.svc.GetDirectMessages(context.Background(), userID, peerID, 0, 0)
	assert.NoError(t, err)
}
