package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"chat_platform/internal/config"
	"chat_platform/internal/domain"
	"chat_platform/internal/repository"
	apperrors "chat_platform/pkg/errors"
	"chat_platform/pkg/logger"
)

type MediaService interface {
	GetToken(ctx context.Context, roomID, userID uuid.UUID, displayName string) (string, string, error)
}

type mediaService struct {
	roomRepo repository.RoomRepository
	cfg      config.LiveKitConfig
	log      logger.Logger
}

func NewMediaService(roomRepo repository.RoomRepository, cfg config.LiveKitConfig, log logger.Logger) MediaService {
	return &mediaService{
		roomRepo: roomRepo,
		cfg:      cfg,
		log:      log,
	}
}

func (s *mediaService) GetToken(ctx context.Context, roomID, userID uuid.UUID, displayName string) (string, string, error) {
	room, err := s.roomRepo.GetByID(ctx, roomID)
	if err != nil {
		return "", "", apperrors.ErrRoomNotFound
	}

	// Медиа-токены выдаются только для комнат с видео-режимом
	if room.Mode != domain.RoomModeVideo && room.Mode != domain.RoomModeBoth {
		return "", "", errors.New("room does not allow video")
	}

	// Токен получают только участники
	if _, err := s.roomRepo.GetParticipant(ctx, roomID, userID); err != nil {
		return "", "", apperrors.ErrNotParticipant
	}

	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)
	canPublish := true
	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         room.LiveKitRoomName,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}

	at.AddGrant(grant).
		SetIdentity(userID.String()).
		SetName(displayName).
		SetValidFor(time.Hour)

	token, err := at.ToJWT()
	if err != nil {
		s.log.Error("Failed to generate LiveKit token", "error", err)
		return "", "", errors.New("failed to generate token")
	}

	return token, s.cfg.URL, nil
}
