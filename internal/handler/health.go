package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat_platform/internal/config"
)

type HealthHandler struct {
	environment string
	liveKitURL  string
}

func NewHealthHandler(cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		environment: cfg.Environment,
		liveKitURL:  cfg.LiveKit.URL,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "chat-platform",
	})
}

// ServerInfo возвращает информацию о сервере для клиентов
func (h *HealthHandler) ServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"environment": h.environment,
		"livekit_url": h.liveKitURL,
		"api_base":    "/api/v1",
	})
}
