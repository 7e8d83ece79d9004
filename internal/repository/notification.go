package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat_platform/internal/domain"
	"chat_platform/pkg/logger"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
}

type notificationRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, log logger.Logger) NotificationRepository {
	return &notificationRepository{db: db, log: log}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, kind, actor_id, actor_name, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		notification.ID, notification.UserID, notification.Kind,
		notification.ActorID, notification.ActorName, notification.IsRead, notification.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create notification", "error", err, "user_id", notification.UserID)
		return err
	}

	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, kind, actor_id, actor_name, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		r.log.Error("Failed to list notifications", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	var notifications []*domain.Notification
	for rows.Next() {
		notification := &domain.Notification{}
		err := rows.Scan(
			&notification.ID, &notification.UserID, &notification.Kind,
			&notification.ActorID, &notification.ActorName, &notification.IsRead, &notification.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan notification", "error", err)
			return nil, err
		}
		notifications = append(notifications, notification)
	}

	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE
		WHERE id = $1 AND user_id = $2
	`

	_, err := r.db.Exec(ctx, query, notificationID, userID)
	if err != nil {
		r.log.Error("Failed to mark notification read", "error", err, "notification_id", notificationID)
		return err
	}

	return nil
}
