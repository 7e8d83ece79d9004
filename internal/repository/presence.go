package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chat_platform/internal/domain"
	"chat_platform/pkg/logger"
)

const (
	// Префикс ключей Redis
	presenceKeyPrefix = "presence:user:%s"
)

type PresenceRepository interface {
	SetOnline(ctx context.Context, userID uuid.UUID, ttl time.Duration) error
	Refresh(ctx context.Context, userID uuid.UUID, ttl time.Duration) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	GetStatus(ctx context.Context, userID uuid.UUID) (string, error)
}

type presenceRepository struct {
	rdb *redis.Client
	log logger.Logger
}

func NewPresenceRepository(rdb *redis.Client, log logger.Logger) PresenceRepository {
	return &presenceRepository{rdb: rdb, log: log}
}

func (r *presenceRepository) key(userID uuid.UUID) string {
	return fmt.Sprintf(presenceKeyPrefix, userID.String())
}

func (r *presenceRepository) SetOnline(ctx context.Context, userID uuid.UUID, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, r.key(userID), domain.PresenceOnline, ttl).Err(); err != nil {
		r.log.Error("Failed to set presence online", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *presenceRepository) Refresh(ctx context.Context, userID uuid.UUID, ttl time.Duration) error {
	if err := r.rdb.Expire(ctx, r.key(userID), ttl).Err(); err != nil {
		r.log.Warn("Failed to refresh presence TTL", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *presenceRepository) SetOffline(ctx context.Context, userID uuid.UUID) error {
	if err := r.rdb.Del(ctx, r.key(userID)).Err(); err != nil {
		r.log.Error("Failed to set presence offline", "error", err, "user_id", userID)
		return err
	}
	return nil
}

func (r *presenceRepository) GetStatus(ctx context.Context, userID uuid.UUID) (string, error) {
	status, err := r.rdb.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return domain.PresenceOffline, nil
	}
	if err != nil {
		r.log.Error("Failed to get presence", "error", err, "user_id", userID)
		return "", err
	}
	return status, nil
}
