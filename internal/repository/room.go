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

type RoomRepository interface {
	Create(ctx context.Context, room *domain.Room) error
	GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Room, error)
	UpdateCreator(ctx context.Context, roomID, creatorID uuid.UUID) error

	GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*domain.RoomParticipant, error)
	GetParticipantsByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomParticipant, error)
	CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error)
	CreateParticipant(ctx context.Context, participant *domain.RoomParticipant) error
	UpdateParticipant(ctx context.Context, participant *domain.RoomParticipant) error

	CreateJoinRequest(ctx context.Context, request *domain.JoinRequest) error
	GetJoinRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.JoinRequest, error)
	GetPendingJoinRequest(ctx context.Context, roomID, userID uuid.UUID) (*domain.JoinRequest, error)
	ListJoinRequests(ctx context.Context, roomID uuid.UUID, status string) ([]*domain.JoinRequest, error)
	UpdateJoinRequest(ctx context.Context, request *domain.JoinRequest) error
}

type roomRepository struct {
	db  *pgxpool.Pool
	log logger.Logger
}

func NewRoomRepository(db *pgxpool.Pool, log logger.Logger) RoomRepository {
	return &roomRepository{db: db, log: log}
}

func (r *roomRepository) Create(ctx context.Context, room *domain.Room) error {
	query := `
		INSERT INTO rooms (id, name, visibility, mode, creator_id, max_participants, livekit_room_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		room.ID, room.Name, room.Visibility, room.Mode, room.CreatorID,
		room.MaxParticipants, room.LiveKitRoomName, room.CreatedAt, room.UpdatedAt,
	).Scan(&room.CreatedAt, &room.UpdatedAt)

	if err != nil {
		r.log.Error("Failed to create room", "error", err, "name", room.Name)
		return err
	}

	return nil
}

func (r *roomRepository) GetByID(ctx context.Context, roomID uuid.UUID) (*domain.Room, error) {
	query := `
		SELECT id, name, visibility, mode, creator_id, max_participants, livekit_room_name, created_at, updated_at
		FROM rooms
		WHERE id = $1
	`

	room := &domain.Room{}
	err := r.db.QueryRow(ctx, query, roomID).Scan(
		&room.ID, &room.Name, &room.Visibility, &room.Mode, &room.CreatorID,
		&room.MaxParticipants, &room.LiveKitRoomName, &room.CreatedAt, &room.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRoomNotFound
		}
		r.log.Error("Failed to get room", "error", err, "room_id", roomID)
		return nil, err
	}

	return room, nil
}

func (r *roomRepository) List(ctx context.Context, limit, offset int) ([]*domain.Room, error) {
	query := `
		SELECT id, name, visibility, mode, creator_id, max_participants, livekit_room_name, created_at, updated_at
		FROM rooms
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to list rooms", "error", err)
		return nil, err
	}
	defer rows.Close()

	var rooms []*domain.Room
	for rows.Next() {
		room := &domain.Room{}
		err := rows.Scan(
			&room.ID, &room.Name, &room.Visibility, &room.Mode, &room.CreatorID,
			&room.MaxParticipants, &room.LiveKitRoomName, &room.CreatedAt, &room.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan room", "error", err)
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}

func (r *roomRepository) UpdateCreator(ctx context.Context, roomID, creatorID uuid.UUID) error {
	query := `
		UPDATE rooms
		SET creator_id = $2, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, roomID, creatorID)
	if err != nil {
		r.log.Error("Failed to update room creator", "error", err, "room_id", roomID)
		return err
	}

	return nil
}

func (r *roomRepository) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*domain.RoomParticipant, error) {
	query := `
		SELECT id, room_id, user_id, role, joined_at, left_at
		FROM room_participants
		WHERE room_id = $1 AND user_id = $2 AND left_at IS NULL
	`

	participant := &domain.RoomParticipant{}
	var leftAt sql.NullTime
	err := r.db.QueryRow(ctx, query, roomID, userID).Scan(
		&participant.ID, &participant.RoomID, &participant.UserID,
		&participant.Role, &participant.JoinedAt, &leftAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotParticipant
		}
		r.log.Error("Failed to get participant", "error", err, "room_id", roomID, "user_id", userID)
		return nil, err
	}
	if leftAt.Valid {
		participant.LeftAt = &leftAt.Time
	}

	return participant, nil
}

func (r *roomRepository) GetParticipantsByRoom(ctx context.Context, roomID uuid.UUID) ([]*domain.RoomParticipant, error) {
	query := `
		SELECT id, room_id, user_id, role, joined_at, left_at
		FROM room_participants
		WHERE room_id = $1 AND left_at IS NULL
		ORDER BY joined_at ASC
	`

	rows, err := r.db.Query(ctx, query, roomID)
	if err != nil {
		r.log.Error("Failed to get participants", "error", err, "room_id", roomID)
		return nil, err
	}
	defer rows.Close()

	var participants []*domain.RoomParticipant
	for rows.Next() {
		participant := &domain.RoomParticipant{}
		var leftAt sql.NullTime
		err := rows.Scan(
			&participant.ID, &participant.RoomID, &participant.UserID,
			&participant.Role, &participant.JoinedAt, &leftAt,
		)
		if err != nil {
			r.log.Error("Failed to scan participant", "error", err)
			return nil, err
		}
		if leftAt.Valid {
			participant.LeftAt = &leftAt.Time
		}
		participants = append(participants, participant)
	}

	return participants, nil
}

func (r *roomRepository) CountParticipants(ctx context.Context, roomID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM room_participants
		WHERE room_id = $1 AND left_at IS NULL
	`

	var count int
	if err := r.db.QueryRow(ctx, query, roomID).Scan(&count); err != nil {
		r.log.Error("Failed to count participants", "error", err, "room_id", roomID)
		return 0, err
	}

	return count, nil
}

func (r *roomRepository) CreateParticipant(ctx context.Context, participant *domain.RoomParticipant) error {
	query := `
		INSERT INTO room_participants (id, room_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		participant.ID, participant.RoomID, participant.UserID, participant.Role, participant.JoinedAt,
	)
	if err != nil {
		r.log.Error("Failed to create participant", "error", err, "room_id", participant.RoomID)
		return err
	}

	return nil
}

func (r *roomRepository) UpdateParticipant(ctx context.Context, participant *domain.RoomParticipant) error {
	query := `
		UPDATE room_participants
		SET role = $2, left_at = $3
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, participant.ID, participant.Role, participant.LeftAt)
	if err != nil {
		r.log.Error("Failed to update participant", "error", err, "participant_id", participant.ID)
		return err
	}

	return nil
}

func (r *roomRepository) CreateJoinRequest(ctx context.Context, request *domain.JoinRequest) error {
	query := `
		INSERT INTO join_requests (id, room_id, user_id, status, requested_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		request.ID, request.RoomID, request.UserID, request.Status, request.RequestedAt,
	)
	if err != nil {
		r.log.Error("Failed to create join request", "error", err, "room_id", request.RoomID)
		return err
	}

	return nil
}

func (r *roomRepository) GetJoinRequestByID(ctx context.Context, requestID uuid.UUID) (*domain.JoinRequest, error) {
	query := `
		SELECT id, room_id, user_id, status, requested_at, decided_at, decided_by_user_id
		FROM join_requests
		WHERE id = $1
	`
	return r.scanJoinRequest(r.db.QueryRow(ctx, query, requestID))
}

func (r *roomRepository) GetPendingJoinRequest(ctx context.Context, roomID, userID uuid.UUID) (*domain.JoinRequest, error) {
	query := `
		SELECT id, room_id, user_id, status, requested_at, decided_at, decided_by_user_id
		FROM join_requests
		WHERE room_id = $1 AND user_id = $2 AND status = $3
	`
	return r.scanJoinRequest(r.db.QueryRow(ctx, query, roomID, userID, domain.JoinRequestStatusPending))
}

func (r *roomRepository) scanJoinRequest(row pgx.Row) (*domain.JoinRequest, error) {
	request := &domain.JoinRequest{}
	var decidedAt sql.NullTime
	err := row.Scan(
		&request.ID, &request.RoomID, &request.UserID, &request.Status,
		&request.RequestedAt, &decidedAt, &request.DecidedByUserID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrRequestNotFound
		}
		r.log.Error("Failed to get join request", "error", err)
		return nil, err
	}
	if decidedAt.Valid {
		request.DecidedAt = &decidedAt.Time
	}

	return request, nil
}

func (r *roomRepository) ListJoinRequests(ctx context.Context, roomID uuid.UUID, status string) ([]*domain.JoinRequest, error) {
	query := `
		SELECT id, room_id, user_id, status, requested_at, decided_at, decided_by_user_id
		FROM join_requests
		WHERE room_id = $1 AND status = $2
		ORDER BY requested_at ASC
	`

	rows, err := r.db.Query(ctx, query, roomID, status)
	if err != nil {
		r.log.Error("Failed to list join requests", "error", err, "room_id", roomID)
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.JoinRequest
	for rows.Next() {
		request := &domain.JoinRequest{}
		var decidedAt sql.NullTime
		err := rows.Scan(
			&request.ID, &request.RoomID, &request.UserID, &request.Status,
			&request.RequestedAt, &decidedAt, &request.DecidedByUserID,
		)
		if err != nil {
			r.log.Error("Failed to scan join request", "error", err)
			return nil, err
		}
		if decidedAt.Valid {
			request.DecidedAt = &decidedAt.Time
		}
		requests = append(requests, request)
	}

	return requests, nil
}

func (r *roomRepository) UpdateJoinRequest(ctx context.Context, request *domain.JoinRequest) error {
	query := `
		UPDATE join_requests
		SET status = $2, decided_at = $3, decided_by_user_id = $4
		WHERE id = $1
	`

	_, err := r.db.Exec(ctx, query, request.ID, request.Status, request.DecidedAt, request.DecidedByUserID)
	if err != nil {
		r.log.Error("Failed to update join request", "error", err, "request_id", request.ID)
		return err
	}

	return nil
}
