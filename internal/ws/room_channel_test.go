package ws

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

func testLogger() logger.Logger {
	return logger.New("error")
}

func TestRoomChannelsLazyLoad(t *testing.T) {
	roomID := uuid.New()
	member := uuid.New()
	calls := 0

	rc := NewRoomChannels(func(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
		calls++
		assert.Equal(t, roomID, id)
		return []uuid.UUID{member}, nil
	}, testLogger())

	ok, err := rc.Contains(context.Background(), roomID, member)
	require.NoError(t, err)
	assert.True(t, ok)

	// Состав грузится из хранилища один раз
	_, err = rc.Members(context.Background(), roomID)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRoomChannelsLoaderError(t *testing.T) {
	rc := NewRoomChannels(func(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
		return nil, apperrors.ErrRoomNotFound
	}, testLogger())

	_, err := rc.Members(context.Background(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestRoomChannelsAddRemove(t *testing.T) {
	rc := NewRoomChannels(nil, testLogger())
	roomID := uuid.New()
	userID := uuid.New()

	require.NoError(t, rc.Add(context.Background(), roomID, userID))

	ok, err := rc.Contains(context.Background(), roomID, userID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, rc.Remove(context.Background(), roomID, userID))

	ok, err = rc.Contains(context.Background(), roomID, userID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRoomChannelsBroadcast(t *testing.T) {
	registry := NewRegistry(nil, 0, testLogger())
	rc := NewRoomChannels(nil, testLogger())
	roomID := uuid.New()

	a := NewClient(uuid.New(), "a", nil, testLogger())
	b := NewClient(uuid.New(), "b", nil, testLogger())
	outsider := NewClient(uuid.New(), "c", nil, testLogger())
	registry.Register(a)
	registry.Register(b)
	registry.Register(outsider)

	require.NoError(t, rc.Add(context.Background(), roomID, a.UserID))
	require.NoError(t, rc.Add(context.Background(), roomID, b.UserID))

	rc.Broadcast(context.Background(), registry, roomID, []byte("hello"))

	assert.Equal(t, []byte("hello"), <-a.send)
	assert.Equal(t, []byte("hello"), <-b.send)
	assert.Empty(t, outsider.send)
}

func TestRoomChannelsBroadcastExclude(t *testing.T) {
	registry := NewRegistry(nil, 0, testLogger())
	rc := NewRoomChannels(nil, testLogger())
	roomID := uuid.New()

	a := NewClient(uuid.New(), "a", nil, testLogger())
	b := NewClient(uuid.New(), "b", nil, testLogger())
	registry.Register(a)
	registry.Register(b)

	require.NoError(t, rc.Add(context.Background(), roomID, a.UserID))
	require.NoError(t, rc.Add(context.Background(), roomID, b.UserID))

	rc.Broadcast(context.Background(), registry, roomID, []byte("x"), a.UserID)

	assert.Empty(t, a.send)
	assert.Equal(t, []byte("x"), <-b.send)
}
