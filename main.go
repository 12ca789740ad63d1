package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"polydate-server/internal/config"
	"polydate-server/internal/database"
	"polydate-server/internal/handlers"
	"polydate-server/internal/middleware"
	"polydate-server/internal/models"
	"polydate-server/internal/redis"
	"polydate-server/internal/services"
	"polydate-server/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("no .env file found")
	}

	cfg := config.Load()

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	redisClient, err := redis.Initialize(cfg.RedisURL)
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to redis")
	}

	storage, err := services.NewStorageService(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize photo storage")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := storage.EnsureBucket(ctx); err != nil {
		logrus.WithError(err).Warn("photo bucket unavailable, uploads will fail until it is")
	}
	cancel()

	hub := websocket.NewHub()
	go hub.Run()

	handlers.RegisterValidators()

	authHandler := handlers.NewAuthHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(db, cfg, storage)
	feedHandler := handlers.NewFeedHandler(db, cfg)
	swipeHandler := handlers.NewSwipeHandler(db, redisClient, cfg, hub)
	matchHandler := handlers.NewMatchHandler(db, cfg)
	messageHandler := handlers.NewMessageHandler(db, redisClient, cfg, hub)
	notificationHandler := handlers.NewNotificationHandler(db, cfg)

	router := setupRoutes(cfg, db, redisClient, hub,
		authHandler, profileHandler, feedHandler, swipeHandler,
		matchHandler, messageHandler, notificationHandler)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logrus.WithField("port", cfg.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("forced shutdown")
	}
}

func setupRoutes(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, hub *websocket.Hub,
	authHandler *handlers.AuthHandler, profileHandler *handlers.ProfileHandler,
	feedHandler *handlers.FeedHandler, swipeHandler *handlers.SwipeHandler,
	matchHandler *handlers.MatchHandler, messageHandler *handlers.MessageHandler,
	notificationHandler *handlers.NotificationHandler) *gin.Engine {

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/telegram", authHandler.TelegramAuth)
		}

		users := v1.Group("/users")
		users.Use(middleware.AuthRequired(cfg.JWTSecret))
		{
			users.GET("/me", profileHandler.GetMe)
			users.PUT("/me", profileHandler.SaveMe)
			users.POST("/me/photos", profileHandler.UploadPhoto)
			users.DELETE("/me/photos", profileHandler.DeletePhoto)
		}

		feed := v1.Group("/feed")
		feed.Use(middleware.AuthRequired(cfg.JWTSecret))
		{
			feed.GET("", feedHandler.NextBatch)
		}

		swipes := v1.Group("/swipes")
		swipes.Use(middleware.AuthRequired(cfg.JWTSecret))
		swipes.Use(middleware.RateLimit(redisClient, "swipes", cfg.SwipesPerMinute, time.Minute))
		{
			swipes.POST("", swipeHandler.RecordSwipe)
		}

		matches := v1.Group("/matches")
		matches.Use(middleware.AuthRequired(cfg.JWTSecret))
		{
			matches.GET("", matchHandler.GetMatches)
			matches.GET("/:match_id/messages", messageHandler.GetMessages)
			matches.POST("/:match_id/messages",
				middleware.RateLimit(redisClient, "messages", cfg.MessagesPerMinute, time.Minute),
				messageHandler.SendMessage)
			matches.PUT("/:match_id/read", messageHandler.MarkAsRead)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired(cfg.JWTSecret))
		{
			notifications.GET("", notificationHandler.GetNotifications)
			notifications.PUT("/read", notificationHandler.MarkAllRead)
		}

		v1.GET("/ws", middleware.AuthRequired(cfg.JWTSecret), func(c *gin.Context) {
			telegramID, _ := c.Get("telegram_id")
			var user models.User
			if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
				c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
				return
			}
			websocket.HandleWebSocket(hub, c, user.ID)
		})
	}

	return router
}
