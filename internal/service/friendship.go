package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"chat_platform/internal/domain"
	"chat_platform/internal/repository"
	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

type FriendshipService interface {
	SendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*domain.Friendship, *domain.Notification, error)
	Accept(ctx context.Context, friendshipID, actorID uuid.UUID) (*domain.Friendship, *domain.Notification, error)
	Decline(ctx context.Context, friendshipID, actorID uuid.UUID) (*domain.Friendship, *domain.Notification, error)
	AreFriends(ctx context.Context, userA, userB uuid.UUID) (bool, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]*domain.User, error)
	ListPending(ctx context.Context, userID uuid.UUID) ([]*domain.Friendship, error)
}

type friendshipService struct {
	friendshipRepo   repository.FriendshipRepository
	userRepo         repository.UserRepository
	notificationRepo repository.NotificationRepository
	log              logger.Logger
}

func NewFriendshipService(friendshipRepo repository.FriendshipRepository, userRepo repository.UserRepository, notificationRepo repository.NotificationRepository, log logger.Logger) FriendshipService {
	return &friendshipService{
		friendshipRepo:   friendshipRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		log:              log,
	}
}

func (s *friendshipService) SendRequest(ctx context.Context, requesterID, addresseeID uuid.UUID) (*domain.Friendship, *domain.Notification, error) {
	if requesterID == addresseeID {
		return nil, nil, errors.New("cannot send friend request to yourself")
	}

	if _, err := s.userRepo.GetByID(ctx, addresseeID); err != nil {
		return nil, nil, apperrors.ErrNotFound
	}

	// Повторная заявка по существующей паре не создается
	existing, err := s.friendshipRepo.GetByPair(ctx, requesterID, addresseeID)
	if err == nil {
		if existing.Status == domain.FriendshipStatusPending {
			return existing, nil, nil
		}
		return nil, nil, errors.New("friendship already decided")
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, err
	}

	friendship := &domain.Friendship{
		ID:          uuid.New(),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      domain.FriendshipStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := s.friendshipRepo.Create(ctx, friendship); err != nil {
		return nil, nil, err
	}

	notification := s.notify(ctx, addresseeID, requesterID, domain.NotificationFriendRequest)
	return friendship, notification, nil
}

func (s *friendshipService) Accept(ctx context.Context, friendshipID, actorID uuid.UUID) (*domain.Friendship, *domain.Notification, error) {
	friendship, err := s.friendshipRepo.GetByID(ctx, friendshipID)
	if err != nil {
		return nil, nil, err
	}

	// Принять заявку может только адресат
	if friendship.AddresseeID != actorID {
		return nil, nil, apperrors.ErrForbidden
	}
	if friendship.Status != domain.FriendshipStatusPending {
		return nil, nil, errors.New("friendship already decided")
	}

	now := time.Now()
	friendship.Status = domain.FriendshipStatusAccepted
	friendship.DecidedAt = &now
	if err := s.friendshipRepo.Update(ctx, friendship); err != nil {
		return nil, nil, err
	}

	notification := s.notify(ctx, friendship.RequesterID, actorID, domain.NotificationFriendAccepted)
	return friendship, notification, nil
}

func (s *friendshipService) Decline(ctx context.Context, friendshipID, actorID uuid.UUID) (*domain.Friendship, *domain.Notification, error) {
	friendship, err := s.friendshipRepo.GetByID(ctx, friendshipID)
	if err != nil {
		return nil, nil, err
	}

	if friendship.AddresseeID != actorID {
		return nil, nil, apperrors.ErrForbidden
	}
	if friendship.Status != domain.FriendshipStatusPending {
		return nil, nil, errors.New("friendship already decided")
	}

	now := time.Now()
	friendship.Status = domain.FriendshipStatusDeclined
	friendship.DecidedAt = &now
	if err := s.friendshipRepo.Update(ctx, friendship); err != nil {
		return nil, nil, err
	}

	notification := s.notify(ctx, friendship.RequesterID, actorID, domain.NotificationFriendDeclined)
	return friendship, notification, nil
}

func (s *friendshipService) AreFriends(ctx context.Context, userA, userB uuid.UUID) (bool, error) {
	friendship, err := s.friendshipRepo.GetByPair(ctx, userA, userB)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return friendship.Status == domain.FriendshipStatusAccepted, nil
}

func (s *friendshipService) ListFriends(ctx context.Context, userID uuid.UUID) ([]*domain.User, error) {
	return s.friendshipRepo.ListFriends(ctx, userID)
}

func (s *friendshipService) ListPending(ctx context.Context, userID uuid.UUID) ([]*domain.Friendship, error) {
	return s.friendshipRepo.ListPendingForUser(ctx, userID)
}

// notify сохраняет уведомление для получателя (best effort, ошибка не прерывает операцию)
func (s *friendshipService) notify(ctx context.Context, userID, actorID uuid.UUID, kind string) *domain.Notification {
	actorName := ""
	if actor, err := s.userRepo.GetByID(ctx, actorID); err == nil {
		actorName = actor.DisplayName
	}

	notification := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		ActorID:   actorID,
		ActorName: actorName,
		CreatedAt: time.Now(),
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		s.log.Warn("Failed to persist notification", "error", err, "user_id", userID, "kind", kind)
	}
	return notification
}
