package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chat_platform/internal/domain"
	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

type MessageRepository interface {
	Create(ctx context.Context, message *domain.Message) error
	GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*domain.Message, error)
	GetDirectMessages(ctx context.Context, userA, userB uuid.UUID, limit, offset int) ([]*domain.Message, error)
	GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error)
}

type messageRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewMessageRepository(db *pgxpool.Pool, log logger.Logger) MessageRepository {
	return &messageRepository{db: db, log: log}
}

func (r *messageRepository) Create(ctx context.Context, message *domain.Message) error {
	query := `
		INSERT INTO messages (id, room_id, receiver_id, sender_id, content, media_url, message_type, client_msg_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		message.ID, message.RoomID, message.ReceiverID, message.SenderID,
		message.Content, message.MediaURL, message.MessageType, message.ClientMsgID, message.CreatedAt,
	).Scan(&message.CreatedAt)

	if err != nil {
		r.log.Error("Failed to create message", "error", err, "sender_id", message.SenderID)
		return err
	}

	return nil
}

func (r *messageRepository) GetRoomMessages(ctx context.Context, roomID uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	query := `
		SELECT id, room_id, receiver_id, sender_id, content, media_url, message_type, client_msg_id, created_at
		FROM messages
		WHERE room_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, roomID, limit, offset)
	if err != nil {
		r.log.Error("Failed to get room messages", "error", err, "room_id", roomID)
		return nil, err
	}
	defer rows.Close()

	return r.scanMessages(rows)
}

func (r *messageRepository) GetDirectMessages(ctx context.Context, userA, userB uuid.UUID, limit, offset int) ([]*domain.Message, error) {
	// Личный канал определяется неупорядоченной парой пользователей
	query := `
		SELECT id, room_id, receiver_id, sender_id, content, media_url, message_type, client_msg_id, created_at
		FROM messages
		WHERE room_id IS NULL
		  AND ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, userA, userB, limit, offset)
	if err != nil {
		r.log.Error("Failed to get direct messages", "error", err)
		return nil, err
	}
	defer rows.Close()

	return r.scanMessages(rows)
}

func (r *messageRepository) GetByID(ctx context.Context, messageID uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, room_id, receiver_id, sender_id, content, media_url, message_type, client_msg_id, created_at
		FROM messages
		WHERE id = $1
	`

	message := &domain.Message{}
	var clientMsgID sql.NullString
	err := r.db.QueryRow(ctx, query, messageID).Scan(
		&message.ID, &message.RoomID, &message.ReceiverID, &message.SenderID,
		&message.Content, &message.MediaURL, &message.MessageType, &clientMsgID, &message.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get message", "error", err, "message_id", messageID)
		return nil, err
	}
	if clientMsgID.Valid {
		message.ClientMsgID = clientMsgID.String
	}

	return message, nil
}

func (r *messageRepository) scanMessages(rows pgx.Rows) ([]*domain.Message, error) {
	var messages []*domain.Message
	for rows.Next() {
		message := &domain.Message{}
		var clientMsgID sql.NullString
		err := rows.Scan(
			&message.ID, &message.RoomID, &message.ReceiverID, &message.SenderID,
			&message.Content, &message.MediaURL, &message.MessageType, &clientMsgID, &message.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan message", "error", err)
			return nil, err
		}
		if clientMsgID.Valid {
			message.ClientMsgID = clientMsgID.String
		}
		messages = append(messages, message)
	}

	// Разворачиваем в хронологический порядок (от старых к новым)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}
