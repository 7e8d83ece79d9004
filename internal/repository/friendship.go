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

type FriendshipRepository interface {
	Create(ctx context.Context, friendship *domain.Friendship) error
	GetByID(ctx context.Context, friendshipID uuid.UUID) (*domain.Friendship, error)
	GetByPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Friendship, error)
	Update(ctx context.Context, friendship *domain.Friendship) error
	ListFriends(ctx context.Context, userID uuid.UUID) ([]*domain.User, error)
	ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Friendship, error)
}

type friendshipRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewFriendshipRepository(db *pgxpool.Pool, log logger.Logger) FriendshipRepository {
	return &friendshipRepository{db: db, log: log}
}

func (r *friendshipRepository) Create(ctx context.Context, friendship *domain.Friendship) error {
	query := `
		INSERT INTO friendships (id, requester_id, addressee_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		friendship.ID, friendship.RequesterID, friendship.AddresseeID,
		friendship.Status, friendship.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create friendship", "error", err)
		return err
	}

	return nil
}

func (r *friendshipRepository) GetByID(ctx context.Context, friendshipID uuid.UUID) (*domain.Friendship, error) {
	query := `
		SELECT id, requester_id, addressee_id, status, created_at, decided_at
		FROM friendships
		WHERE id = $1
	`
	return r.scanFriendship(r.db.QueryRow(ctx, query, friendshipID))
}

func (r *friendshipRepository) GetByPair(ctx context.Context, userA, userB uuid.UUID) (*domain.Friendship, error) {
	// Дружба ищется по неупорядоченной паре
	query := `
		SELECT id, requester_id, addressee_id, status, created_at, decided_at
		FROM friendships
		WHERE (requester_id = $1 AND addressee_id = $2) OR (requester_id = $2 AND addressee_id = $1)
	`
	return r.scanFriendship(r.db.QueryRow(ctx, query, userA, userB))
}

func (r *friendshipRepository) scanFriendship(row pgx.Row) (*domain.Friendship, error) {
	friendship := &domain.Friendship{}
	var decidedAt sql.NullTime
	err := row.Scan(
		&friendship.ID, &friendship.RequesterID, &friendship.AddresseeID,
		&friendship.Status, &friendship.CreatedAt, &decidedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		r.log.Error("Failed to get friendship", "error", err)
		return nil, err
	}
	if decidedAt.Valid {
		friendship.DecidedAt = &decidedAt.Time
	}

	return friendship, nil
}

func (r *friendshipRepository) Update(ctx context.Context, friendship *domain.Friendship) error {
	query := `
		UPDATE friendships
		SET status = $2, decided_at = $3
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, friendship.ID, friendship.Status, friendship.DecidedAt)
	if err != nil {
		r.log.Error("Failed to update friendship", "error", err, "friendship_id", friendship.ID)
		return err
	}

	return nil
}

func (r *friendshipRepository) ListFriends(ctx context.Context, userID uuid.UUID) ([]*domain.User, error) {
	query := `
		SELECT u.id, u.email, u.password_hash, u.display_name, u.avatar_url, u.is_active, u.last_login_at, u.created_at, u.updated_at
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.requester_id = $1 THEN f.addressee_id ELSE f.requester_id END
		WHERE (f.requester_id = $1 OR f.addressee_id = $1) AND f.status = $2
		ORDER BY u.display_name ASC
	`

	rows, err := r.db.Query(ctx, query, userID, domain.FriendshipStatusAccepted)
	if err != nil {
		r.log.Error("Failed to list friends", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	var friends []*domain.User
	for rows.Next() {
		user := &domain.User{}
		var lastLoginAt sql.NullTime
		err := rows.Scan(
			&user.ID, &user.Email, &user.PasswordHash, &user.DisplayName, &user.AvatarURL,
			&user.IsActive, &lastLoginAt, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan friend", "error", err)
			return nil, err
		}
		if lastLoginAt.Valid {
			user.LastLoginAt = &lastLoginAt.Time
		}
		user.PasswordHash = ""
		friends = append(friends, user)
	}

	return friends, nil
}

func (r *friendshipRepository) ListPendingForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Friendship, error) {
	query := `
		SELECT id, requester_id, addressee_id, status, created_at, decided_at
		FROM friendships
		WHERE addressee_id = $1 AND status = $2
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query, userID, domain.FriendshipStatusPending)
	if err != nil {
		r.log.Error("Failed to list pending friendships", "error", err, "user_id", userID)
		return nil, err
	}
	defer rows.Close()

	var friendships []*domain.Friendship
	for rows.Next() {
		friendship := &domain.Friendship{}
		var decidedAt sql.NullTime
		err := rows.Scan(
			&friendship.ID, &friendship.RequesterID, &friendship.AddresseeID,
			&friendship.Status, &friendship.CreatedAt, &decidedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan friendship", "error", err)
			return nil, err
		}
		if decidedAt.Valid {
			friendship.DecidedAt = &decidedAt.Time
		}
		friendships = append(friendships, friendship)
	}

	return friendships, nil
}
