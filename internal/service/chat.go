package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"chat_platform/internal/config"
	"chat_platform/internal/domain"
	"chat_platform/internal/repository"
	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

type ChatService interface {
	SaveMessage(ctx context.Context, message *domain.Message) error
	GetRoomMessages(ctx context.Context, roomID, userID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	GetDirectMessages(ctx context.Context, userID, peerID uuid.UUID, limit, offset int) ([]*domain.Message, error)
}

type chatService struct {
	messageRepo    repository.MessageRepository
	roomRepo       repository.RoomRepository
	friendshipRepo repository.FriendshipRepository
	cfg            *config.Config
	log            logger.Logger
}

func NewChatService(messageRepo repository.MessageRepository, roomRepo repository.RoomRepository, friendshipRepo repository.FriendshipRepository, cfg *config.Config, log logger.Logger) ChatService {
	return &chatService{
		messageRepo:    messageRepo,
		roomRepo:       roomRepo,
		friendshipRepo: friendshipRepo,
		cfg:            cfg,
		log:            log,
	}
}

func (s *chatService) SaveMessage(ctx context.Context, message *domain.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	return s.messageRepo.Create(ctx, message)
}

func (s *chatService) GetRoomMessages(ctx context.Context, roomID, userID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	// История доступна только участникам
	if _, err := s.roomRepo.GetParticipant(ctx, roomID, userID); err != nil {
		return nil, err
	}

	limit = s.clampLimit(limit)
	return s.messageRepo.GetRoomMessages(ctx, roomID, limit, offset)
}

func (s *chatService) GetDirectMessages(ctx context.Context, userID, peerID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	// Переписка доступна только друзьям
	friendship, err := s.friendshipRepo.GetByPair(ctx, userID, peerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFriends
		}
		return nil, err
	}
	if friendship.Status != domain.FriendshipStatusAccepted {
		return nil, apperrors.ErrNotFriends
	}

	limit = s.clampLimit(limit)
	return s.messageRepo.GetDirectMessages(ctx, userID, peerID, limit, offset)
}

func (s *chatService) clampLimit(limit int) int {
	if limit <= 0 || limit > 100 {
		return s.cfg.Chat.HistoryPageSize
	}
	return limit
}
