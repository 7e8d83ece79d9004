package ws

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"chat_platform/pkg/logger"
)

// MembersLoader загружает состав участников комнаты из хранилища
type MembersLoader func(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error)

type roomState struct {
	mu      sync.Mutex
	members map[uuid.UUID]struct{}
	loaded  bool
}

// RoomChannels хранит состав участников комнат в памяти для рассылки.
// Доступ сериализуется по ключу комнаты, а не одним глобальным замком,
// чтобы события разных комнат не выстраивались в одну очередь.
type RoomChannels struct {
	mu     sync.Mutex
	rooms  map[uuid.UUID]*roomState
	loader MembersLoader
	log    logger.Logger
}

func NewRoomChannels(loader MembersLoader, log logger.Logger) *RoomChannels {
	return &RoomChannels{
		rooms:  make(map[uuid.UUID]*roomState),
		loader: loader,
		log:    log,
	}
}

// state возвращает состояние комнаты, создавая его при первом обращении.
// Внешний замок держится только на время обращения к карте комнат.
func (rc *RoomChannels) state(roomID uuid.UUID) *roomState {
	rc.mu.Lock()
	defer rc.mu.Unlock()

	st, ok := rc.rooms[roomID]
	if !ok {
		st = &roomState{members: make(map[uuid.UUID]struct{})}
		rc.rooms[roomID] = st
	}
	return st
}

func (rc *RoomChannels) ensureLoaded(ctx context.Context, roomID uuid.UUID, st *roomState) error {
	if st.loaded || rc.loader == nil {
		st.loaded = true
		return nil
	}
	members, err := rc.loader(ctx, roomID)
	if err != nil {
		return err
	}
	for _, userID := range members {
		st.members[userID] = struct{}{}
	}
	st.loaded = true
	return nil
}

// Add включает пользователя в состав комнаты; повторное добавление - no-op
func (rc *RoomChannels) Add(ctx context.Context, roomID, userID uuid.UUID) error {
	st := rc.state(roomID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := rc.ensureLoaded(ctx, roomID, st); err != nil {
		return err
	}
	st.members[userID] = struct{}{}
	return nil
}

// Remove исключает пользователя из состава комнаты
func (rc *RoomChannels) Remove(ctx context.Context, roomID, userID uuid.UUID) error {
	st := rc.state(roomID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := rc.ensureLoaded(ctx, roomID, st); err != nil {
		return err
	}
	delete(st.members, userID)
	return nil
}

// Members возвращает снимок состава комнаты
func (rc *RoomChannels) Members(ctx context.Context, roomID uuid.UUID) ([]uuid.UUID, error) {
	st := rc.state(roomID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := rc.ensureLoaded(ctx, roomID, st); err != nil {
		return nil, err
	}
	members := make([]uuid.UUID, 0, len(st.members))
	for userID := range st.members {
		members = append(members, userID)
	}
	return members, nil
}

// Contains проверяет членство пользователя в комнате
func (rc *RoomChannels) Contains(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	st := rc.state(roomID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if err := rc.ensureLoaded(ctx, roomID, st); err != nil {
		return false, err
	}
	_, ok := st.members[userID]
	return ok, nil
}

// Broadcast доставляет данные во все живые соединения всех участников комнаты.
// Участники без живых соединений просто пропускаются.
func (rc *RoomChannels) Broadcast(ctx context.Context, registry *Registry, roomID uuid.UUID, data []byte, exclude ...uuid.UUID) {
	members, err := rc.Members(ctx, roomID)
	if err != nil {
		rc.log.Error("Failed to resolve room members for broadcast", "error", err, "room_id", roomID)
		return
	}

	skip := make(map[uuid.UUID]struct{}, len(exclude))
	for _, userID := range exclude {
		skip[userID] = struct{}{}
	}

	for _, userID := range members {
		if _, ok := skip[userID]; ok {
			continue
		}
		registry.Send(userID, data)
	}
}
