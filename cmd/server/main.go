package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"chat_platform/internal/config"
	"chat_platform/internal/handler"
	"chat_platform/internal/middleware"
	"chat_platform/internal/repository"
	"chat_platform/internal/service"
	"chat_platform/internal/ws"
	"chat_platform/pkg/logger"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	appLogger := logger.New(cfg.Log.Level)

	// Подключение к PostgreSQL
	dbPool, err := pgxpool.New(context.Background(), cfg.Database.DSN)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", "error", err)
	}
	defer dbPool.Close()

	// Проверка подключения к БД
	if err := dbPool.Ping(context.Background()); err != nil {
		appLogger.Fatal("Failed to ping database", "error", err)
	}
	appLogger.Info("Database connection established")

	// Подключение к Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	// Проверка подключения к Redis
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", "error", err)
	}
	appLogger.Info("Redis connection established")

	// Инициализация репозиториев
	repos := repository.NewRepositories(dbPool, rdb, appLogger)

	// Инициализация сервисов
	services := service.NewServices(repos, cfg, appLogger)

	// Реестр соединений и хаб реального времени
	registry := ws.NewRegistry(repos.Presence, cfg.Chat.PresenceTTL, appLogger)
	hub := ws.NewHub(services, registry, cfg, appLogger)

	// Инициализация middleware
	authMiddleware := middleware.NewAuthMiddleware(services.Auth, appLogger)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(services.RateLimit, appLogger)

	// Инициализация handlers
	handlers := handler.NewHandlers(services, repos, hub, cfg, appLogger)

	// Настройка роутера
	router := setupRouter(handlers, authMiddleware, rateLimitMiddleware, cfg, appLogger)

	// Запуск HTTP сервера
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		appLogger.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ожидание сигнала для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Fatal("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exited")
}

func setupRouter(
	handlers *handler.Handlers,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	cfg *config.Config,
	log logger.Logger,
) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler())

	// Health check
	router.GET("/health", handlers.Health.Check)

	// Server info - для получения настроек сервера
	router.GET("/server-info", handlers.Health.ServerInfo)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Публичные endpoints
		public := v1.Group("/auth")
		{
			public.POST("/register", rateLimitMiddleware.Limit(10, 60), handlers.Auth.Register)
			public.POST("/login", rateLimitMiddleware.Limit(10, 60), handlers.Auth.Login)
			public.POST("/refresh", handlers.Auth.RefreshToken)
			public.POST("/logout", handlers.Auth.Logout)
		}

		// Защищенные endpoints
		protected := v1.Group("")
		protected.Use(authMiddleware.RequireAuth())
		{
			// Пользователи
			users := protected.Group("/users")
			{
				users.GET("/me", handlers.User.GetMe)
				users.PUT("/me", handlers.User.UpdateMe)
				users.GET("/:id/presence", handlers.User.GetPresence)
			}

			// Комнаты
			rooms := protected.Group("/rooms")
			{
				rooms.POST("", handlers.Room.Create)
				rooms.GET("", handlers.Room.List)
				rooms.GET("/:id", handlers.Room.Get)
				rooms.POST("/:id/join", handlers.Room.Join)
				rooms.POST("/:id/leave", handlers.Room.Leave)
				rooms.GET("/:id/participants", handlers.Room.Participants)
				rooms.GET("/:id/join-requests", handlers.Room.ListJoinRequests)
				rooms.POST("/:id/join-requests/:request_id/approve", handlers.Room.ApproveJoinRequest)
				rooms.POST("/:id/join-requests/:request_id/deny", handlers.Room.DenyJoinRequest)
				rooms.GET("/:id/messages", handlers.Chat.RoomMessages)
				rooms.POST("/:id/media/token", handlers.Media.GetToken)
			}

			// Личные сообщения
			protected.GET("/dm/:id/messages", handlers.Chat.DirectMessages)

			// Друзья
			friends := protected.Group("/friends")
			{
				friends.GET("", handlers.Friendship.ListFriends)
				friends.GET("/requests", handlers.Friendship.ListPending)
				friends.POST("/requests", handlers.Friendship.SendRequest)
				friends.POST("/requests/:id/accept", handlers.Friendship.Accept)
				friends.POST("/requests/:id/decline", handlers.Friendship.Decline)
			}

			// Уведомления
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", handlers.Notification.List)
				notifications.POST("/:id/read", handlers.Notification.MarkRead)
			}
		}
	}

	// WebSocket endpoint - одно соединение на все комнаты и личные каналы
	router.GET("/ws", authMiddleware.RequireAuth(), handlers.WebSocket.Handle)

	return router
}
