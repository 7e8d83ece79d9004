package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat_platform/internal/config"
	"chat_platform/internal/domain"
	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

// memRoomRepo - хранилище комнат в памяти для тестов сервиса
type memRoomRepo struct {
	rooms        map[uuid.UUID]*domain.Room
	participants []*domain.RoomParticipant
	requests     map[uuid.UUID]*domain.JoinRequest
}

func newMemRoomRepo() *memRoomRepo {
	return &memRoomRepo{
		rooms:    make(map[uuid.UUID]*domain.Room),
		requests: make(map[uuid.UUID]*domain.JoinRequest),
	}
}

func (m *memRoomRepo) Create(ctx context.Context, room *domain.Room) error {
	m.rooms[room.ID] = room
	return nil
}

func (m *memRoomRepo) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	room, ok := m.rooms[roomID]
	if !ok {
		return nil, apperrors.ErrRoomNotFound
	}
	return room, nil
}

func (m *memRoomRepo) List(ctx context.Context, limit, offset int) ([]*domain.Room, error) {
	rooms := make([]*domain.Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (m *memRoomRepo) UpdateCreator(ctx context.Context, roomID, creatorID uuid.UUID) error {
	room, ok := m.rooms[roomID]
	if !ok {
		return apperrors.ErrRoomNotFound
	}
	room.CreatorID = creatorID
	return nil
}

func (m *memRoomRepo) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*domain.RoomParticipant, error) {
	for _, p := range m.participants {
		if p.RoomID == roomID && p.UserID == userID && p.LeftAt == nil {
			return p, nil
		}
	}
	return nil, apperrors.ErrNotParticipant
}

func (m *memRoomRepo) GetParticipantsByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomParticipant, error) {
	var active []*domain.RoomParticipant
	for _, p := range m.participants {
		if p.RoomID == roomID && p.LeftAt == nil {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].JoinedAt.Before(active[j].JoinedAt)
	})
	return active, nil
}

func (m *memRoomRepo) CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	active, _ := m.GetParticipantsByRoom(ctx, roomID)
	return len(active), nil
}

func (m *memRoomRepo) CreateParticipant(ctx context.Context, participant *domain.RoomParticipant) error {
	m.participants = append(m.participants, participant)
	return nil
}

func (m *memRoomRepo) UpdateParticipant(ctx context.Context, participant *domain.RoomParticipant) error {
	for i, p := range m.participants {
		if p.ID == participant.ID {
			m.participants[i] = participant
			return nil
		}
	}
	return apperrors.ErrNotParticipant
}

func (m *memRoomRepo) CreateJoinRequest(ctx context.Context, request *domain.JoinRequest) error {
	m.requests[request.ID] = request
	return nil
}

func (m *memRoomRepo) GetJoinRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.JoinRequest, error) {
	request, ok := m.requests[requestID]
	if !ok {
		return nil, apperrors.ErrRequestNotFound
	}
	return request, nil
}

func (m *memRoomRepo) GetPendingJoinRequest(ctx context.Context, roomID, userID uuid.UUID) (*domain.JoinRequest, error) {
	for _, r := range m.requests {
		if r.RoomID == roomID && r.UserID == userID && r.Status == domain.JoinRequestStatusPending {
			return r, nil
		}
	}
	return nil, apperrors.ErrRequestNotFound
}

func (m *memRoomRepo) ListJoinRequests(ctx context.Context, roomID uuid.UUID, status string) ([]*domain.JoinRequest, error) {
	var out []*domain.JoinRequest
	for _, r := range m.requests {
		if r.RoomID == roomID && r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRoomRepo) UpdateJoinRequest(ctx context.Context, request *domain.JoinRequest) error {
	m.requests[request.ID] = request
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Chat: config.ChatConfig{
			DefaultRoomCapacity: 10,
			HistoryPageSize:     50,
			TypingExpiry:        5 * time.Second,
		},
	}
}

func newRoomFixture() (RoomService, *memRoomRepo) {
	repo := newMemRoomRepo()
	return NewRoomService(repo, testConfig(), logger.New("error")), repo
}

func TestCreateRoomDefaults(t *testing.T) {
	svc, repo := newRoomFixture()
	creatorID := uuid.New()

	room, err := svc.Create(context.Background(), creatorID, " standup ", "", "", 0)
	require.NoError(t, err)

	assert.Equal(t, "standup", room.Name)
	assert.Equal(t, domain.RoomVisibilityPublic, room.Visibility)
	assert.Equal(t, domain.RoomModeChat, room.Mode)
	assert.Equal(t, 10, room.MaxParticipants)

	// Создатель сразу участник с ролью создателя
	participant, err := repo.GetParticipant(context.Background(), room.ID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantRoleCreator, participant.Role)
}

func TestCreateRoomRejectsBadInput(t *testing.T) {
	svc, _ := newRoomFixture()
	creatorID := uuid.New()

	_, err := svc.Create(context.Background(), creatorID, "  ", "", "", 0)
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), creatorID, "x", "HIDDEN", "", 0)
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), creatorID, "x", "", "hologram", 0)
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), creatorID, "x", "", "", 1)
	assert.Error(t, err)
}

func TestJoinPublicRoom(t *testing.T) {
	svc, _ := newRoomFixture()
	room, err := svc.Create(context.Background(), uuid.New(), "open", "", "", 0)
	require.NoError(t, err)

	userID := uuid.New()
	outcome, err := svc.Join(context.Background(), room.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusJoined, outcome.Status)
	require.NotNil(t, outcome.Participant)
	assert.Equal(t, domain.ParticipantRoleParticipant, outcome.Participant.Role)
}

func TestJoinIdempotentForMember(t *testing.T) {
	svc, _ := newRoomFixture()
	room, err := svc.Create(context.Background(), uuid.New(), "open", "", "", 0)
	require.NoError(t, err)

	userID := uuid.New()
	_, err = svc.Join(context.Background(), room.ID, userID)
	require.NoError(t, err)

	outcome, err := svc.Join(context.Background(), room.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusAlreadyMember, outcome.Status)
}

func TestJoinFullRoom(t *testing.T) {
	svc, _ := newRoomFixture()
	room, err := svc.Create(context.Background(), uuid.New(), "tight", "", "", 2)
	require.NoError(t, err)

	_, err = svc.Join(context.Background(), room.ID, uuid.New())
	require.NoError(t, err)

	_, err = svc.Join(context.Background(), room.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrRoomFull)
}

func TestJoinPrivateRoomCreatesRequest(t *testing.T) {
	svc, _ := newRoomFixture()
	room, err := svc.Create(context.Background(), uuid.New(), "secret", domain.RoomVisibilityPrivate, "", 0)
	require.NoError(t, err)

	userID := uuid.New()
	outcome, err := svc.Join(context.Background(), room.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusPending, outcome.Status)
	require.NotNil(t, outcome.Request)

	// Повторная попытка возвращает ту же заявку
	again, err := svc.Join(context.Background(), room.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusPending, again.Status)
	assert.Equal(t, outcome.Request.ID, again.Request.ID)
}

func TestJoinUnknownRoom(t *testing.T) {
	svc, _ := newRoomFixture()

	_, err := svc.Join(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrRoomNotFound)
}

func TestLeaveTransfersOwnership(t *testing.T) {
	svc, repo := newRoomFixture()
	creatorID := uuid.New()
	room, err := svc.Create(context.Background(), creatorID, "open", "", "", 0)
	require.NoError(t, err)

	second := uuid.New()
	third := uuid.New()
	_, err = svc.Join(context.Background(), room.ID, second)
	require.NoError(t, err)
	_, err = svc.Join(context.Background(), room.ID, third)
	require.NoError(t, err)

	require.NoError(t, svc.Leave(context.Background(), room.ID, creatorID))

	// Владение переходит к самому раннему из оставшихся
	updated, err := repo.GetByID(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, second, updated.CreatorID)

	promoted, err := repo.GetParticipant(context.Background(), room.ID, second)
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantRoleCreator, promoted.Role)

	// Ушедший больше не участник
	_, err = repo.GetParticipant(context.Background(), room.ID, creatorID)
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

func TestLeaveNotParticipant(t *testing.T) {
	svc, _ := newRoomFixture()
	room, err := svc.Create(context.Background(), uuid.New(), "open", "", "", 0)
	require.NoError(t, err)

	err = svc.Leave(context.Background(), room.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)
}

func TestApproveJoinRequest(t *testing.T) {
	svc, _ := newRoomFixture()
	creatorID := uuid.New()
	room, err := svc.Create(context.Background(), creatorID, "secret", domain.RoomVisibilityPrivate, "", 0)
	require.NoError(t, err)

	applicant := uuid.New()
	outcome, err := svc.Join(context.Background(), room.ID, applicant)
	require.NoError(t, err)

	// Решение принимает только создатель
	_, _, err = svc.ApproveJoinRequest(context.Background(), outcome.Request.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	request, participant, err := svc.ApproveJoinRequest(context.Background(), outcome.Request.ID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, domain.JoinRequestStatusApproved, request.Status)
	assert.Equal(t, applicant, participant.UserID)

	// Решённая заявка необратима
	_, _, err = svc.ApproveJoinRequest(context.Background(), outcome.Request.ID, creatorID)
	assert.ErrorIs(t, err, apperrors.ErrRequestDecided)
}

func TestDenyJoinRequest(t *testing.T) {
	svc, repo := newRoomFixture()
	creatorID := uuid.New()
	room, err := svc.Create(context.Background(), creatorID, "secret", domain.RoomVisibilityPrivate, "", 0)
	require.NoError(t, err)

	applicant := uuid.New()
	outcome, err := svc.Join(context.Background(), room.ID, applicant)
	require.NoError(t, err)

	request, err := svc.DenyJoinRequest(context.Background(), outcome.Request.ID, creatorID)
	require.NoError(t, err)
	assert.Equal(t, domain.JoinRequestStatusDenied, request.Status)

	// Отказ не делает заявителя участником
	_, err = repo.GetParticipant(context.Background(), room.ID, applicant)
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	_, err = svc.DenyJoinRequest(context.Background(), outcome.Request.ID, creatorID)
	assert.ErrorIs(t, err, apperrors.ErrRequestDecided)
}

func TestListJoinRequestsCreatorOnly(t *testing.T) {
	svc, _ := newRoomFixture()
	creatorID := uuid.New()
	room, err := svc.Create(context.Background(), creatorID, "secret", domain.RoomVisibilityPrivate, "", 0)
	require.NoError(t, err)

	_, err = svc.Join(context.Background(), room.ID, uuid.New())
	require.NoError(t, err)

	_, err = svc.ListJoinRequests(context.Background(), room.ID, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	requests, err := svc.ListJoinRequests(context.Background(), room.ID, creatorID)
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}
