package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"chat_platform/internal/config"
	"chat_platform/internal/domain"
	"chat_platform/internal/repository"
	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

const (
	JoinStatusJoined        = "joined"
	JoinStatusPending       = "pending"
	JoinStatusAlreadyMember = "already_member"
)

// JoinOutcome описывает результат попытки входа в комнату
type JoinOutcome struct {
	Status      string                  `json:"status"`
	Participant *domain.RoomParticipant `json:"participant,omitempty"`
	Request     *domain.JoinRequest     `json:"request,omitempty"`
}

type RoomService interface {
	Create(ctx context.Context, creatorID uuid.UUID, name, visibility, mode string, capacity int) (*domain.Room, error)
	GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Room, error)
	Join(ctx context.Context, roomID, userID uuid.UUID) (*JoinOutcome, error)
	Leave(ctx context.Context, roomID, userID uuid.UUID) error
	ApproveJoinRequest(ctx context.Context, requestID, actorID uuid.UUID) (*domain.JoinRequest, *domain.RoomParticipant, error)
	DenyJoinRequest(ctx context.Context, requestID, actorID uuid.UUID) (*domain.JoinRequest, error)
	ListJoinRequests(ctx context.Context, roomID, actorID uuid.UUID) ([]*domain.JoinRequest, error)
	GetParticipants(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomParticipant, error)
	IsParticipant(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

type roomService struct {
	roomRepo repository.RoomRepository
	cfg      *config.Config
	log      logger.Logger
}

func NewRoomService(roomRepo repository.RoomRepository, cfg *config.Config, log logger.Logger) RoomService {
	return &roomService{
		roomRepo: roomRepo,
		cfg:      cfg,
		log:      log,
	}
}

func (s *roomService) Create(ctx context.Context, creatorID uuid.UUID, name, visibility, mode string, capacity int) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("room name is required")
	}
	if visibility == "" {
		visibility = domain.RoomVisibilityPublic
	}
	if !domain.ValidVisibility(visibility) {
		return nil, errors.New("invalid room visibility")
	}
	if mode == "" {
		mode = domain.RoomModeChat
	}
	if !domain.ValidMode(mode) {
		return nil, errors.New("invalid room mode")
	}
	if capacity == 0 {
		capacity = s.cfg.Chat.DefaultRoomCapacity
	}
	if capacity <= 1 {
		return nil, errors.New("room capacity must be greater than 1")
	}

	room := &domain.Room{
		ID:              uuid.New(),
		Name:            name,
		Visibility:      visibility,
		Mode:            mode,
		CreatorID:       creatorID,
		MaxParticipants: capacity,
		LiveKitRoomName: uuid.New().String(),
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	if err := s.roomRepo.Create(ctx, room); err != nil {
		s.log.Error("Failed to create room", "error", err)
		return nil, errors.New("failed to create room")
	}

	// Создатель сразу становится участником
	creator := &domain.RoomParticipant{
		ID:       uuid.New(),
		RoomID:   room.ID,
		UserID:   creatorID,
		Role:     domain.ParticipantRoleCreator,
		JoinedAt: time.Now(),
	}
	if err := s.roomRepo.CreateParticipant(ctx, creator); err != nil {
		s.log.Error("Failed to add creator as participant", "error", err, "room_id", room.ID)
		return nil, errors.New("failed to create room")
	}

	return room, nil
}

func (s *roomService) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	return s.roomRepo.GetByID(ctx, roomID)
}

func (s *roomService) List(ctx context.Context, limit, offset int) ([]*domain.Room, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.roomRepo.List(ctx, limit, offset)
}

func (s *roomService) Join(ctx context.Context, roomID, userID uuid.UUID) (*JoinOutcome, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	// Повторный вход уже состоящего участника - идемпотентный no-op
	existing, err := s.roomRepo.GetParticipant(ctx, roomID, userID)
	if err == nil {
		return &JoinOutcome{Status: JoinStatusAlreadyMember, Participant: existing}, nil
	}
	if !errors.Is(err, apperrors.ErrNotParticipant) {
		return nil, err
	}

	// Приватная комната: вместо прямого входа создается заявка для создателя
	if room.Visibility == domain.RoomVisibilityPrivate && room.CreatorID != userID {
		pending, err := s.roomRepo.GetPendingJoinRequest(ctx, roomID, userID)
		if err == nil {
			return &JoinOutcome{Status: JoinStatusPending, Request: pending}, nil
		}
		if !errors.Is(err, apperrors.ErrRequestNotFound) {
			return nil, err
		}

		request := &domain.JoinRequest{
			ID:          uuid.New(),
			RoomID:      roomID,
			UserID:      userID,
			Status:      domain.JoinRequestStatusPending,
			RequestedAt: time.Now(),
		}
		if err := s.roomRepo.CreateJoinRequest(ctx, request); err != nil {
			return nil, err
		}
		return &JoinOutcome{Status: JoinStatusPending, Request: request}, nil
	}

	// Проверка вместимости
	count, err := s.roomRepo.CountParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if count >= room.MaxParticipants {
		return nil, apperrors.ErrRoomFull
	}

	participant := &domain.RoomParticipant{
		ID:       uuid.New(),
		RoomID:   roomID,
		UserID:   userID,
		Role:     domain.ParticipantRoleParticipant,
		JoinedAt: time.Now(),
	}
	if err := s.roomRepo.CreateParticipant(ctx, participant); err != nil {
		return nil, err
	}

	return &JoinOutcome{Status: JoinStatusJoined, Participant: participant}, nil
}

func (s *roomService) Leave(ctx context.Context, roomID, userID uuid.UUID) error {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return err
	}

	participant, err := s.roomRepo.GetParticipant(ctx, roomID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	participant.LeftAt = &now
	if err := s.roomRepo.UpdateParticipant(ctx, participant); err != nil {
		return err
	}

	// Если уходит создатель - владение переходит к самому раннему из оставшихся
	if room.CreatorID == userID {
		remaining, err := s.roomRepo.GetParticipantsByRoom(ctx, roomID)
		if err != nil {
			s.log.Warn("Failed to load remaining participants", "error", err, "room_id", roomID)
			return nil
		}
		if len(remaining) > 0 {
			next := remaining[0]
			next.Role = domain.ParticipantRoleCreator
			if err := s.roomRepo.UpdateParticipant(ctx, next); err != nil {
				s.log.Warn("Failed to promote new creator", "error", err, "room_id", roomID)
				return nil
			}
			if err := s.roomRepo.UpdateCreator(ctx, roomID, next.UserID); err != nil {
				s.log.Warn("Failed to update room creator", "error", err, "room_id", roomID)
				return nil
			}
			s.log.Info("Room ownership transferred", "room_id", roomID, "new_creator", next.UserID)
		}
	}

	return nil
}

func (s *roomService) ApproveJoinRequest(ctx context.Context, requestID, actorID uuid.UUID) (*domain.JoinRequest, *domain.RoomParticipant, error) {
	request, err := s.roomRepo.GetJoinRequestByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}

	room, err := s.roomRepo.GetByID(ctx, request.RoomID)
	if err != nil {
		return nil, nil, err
	}

	// Только создатель комнаты принимает решение
	if room.CreatorID != actorID {
		return nil, nil, apperrors.ErrForbidden
	}

	// Терминальные состояния необратимы
	if request.Status != domain.JoinRequestStatusPending {
		return nil, nil, apperrors.ErrRequestDecided
	}

	count, err := s.roomRepo.CountParticipants(ctx, request.RoomID)
	if err != nil {
		return nil, nil, err
	}
	if count >= room.MaxParticipants {
		return nil, nil, apperrors.ErrRoomFull
	}

	now := time.Now()
	request.Status = domain.JoinRequestStatusApproved
	request.DecidedAt = &now
	request.DecidedByUserID = &actorID
	if err := s.roomRepo.UpdateJoinRequest(ctx, request); err != nil {
		return nil, nil, err
	}

	participant := &domain.RoomParticipant{
		ID:       uuid.New(),
		RoomID:   request.RoomID,
		UserID:   request.UserID,
		Role:     domain.ParticipantRoleParticipant,
		JoinedAt: now,
	}
	if err := s.roomRepo.CreateParticipant(ctx, participant); err != nil {
		return nil, nil, err
	}

	return request, participant, nil
}

func (s *roomService) DenyJoinRequest(ctx context.Context, requestID, actorID uuid.UUID) (*domain.JoinRequest, error) {
	request, err := s.roomRepo.GetJoinRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	room, err := s.roomRepo.GetByID(ctx, request.RoomID)
	if err != nil {
		return nil, err
	}

	if room.CreatorID != actorID {
		return nil, apperrors.ErrForbidden
	}

	if request.Status != domain.JoinRequestStatusPending {
		return nil, apperrors.ErrRequestDecided
	}

	// Отказ не затрагивает состав участников
	now := time.Now()
	request.Status = domain.JoinRequestStatusDenied
	request.DecidedAt = &now
	request.DecidedByUserID = &actorID
	if err := s.roomRepo.UpdateJoinRequest(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

func (s *roomService) ListJoinRequests(ctx context.Context, roomID, actorID uuid.UUID) ([]*domain.JoinRequest, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.CreatorID != actorID {
		return nil, apperrors.ErrForbidden
	}

	return s.roomRepo.ListJoinRequests(ctx, roomID, domain.JoinRequestStatusPending)
}

func (s *roomService) GetParticipants(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomParticipant, error) {
	return s.roomRepo.GetParticipantsByRoom(ctx, roomID)
}

func (s *roomService) IsParticipant(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	_, err := s.roomRepo.GetParticipant(ctx, roomID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotParticipant) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
