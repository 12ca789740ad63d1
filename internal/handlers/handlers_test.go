package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"polydate-server/internal/config"
	"polydate-server/internal/database"
	"polydate-server/internal/handlers"
	"polydate-server/internal/middleware"
	"polydate-server/internal/models"
	"polydate-server/internal/redis"
	ws "polydate-server/internal/websocket"
)

// testEnv wires the real router against an isolated in-memory SQLite
// database and a miniredis instance, so handler tests exercise the
// same code paths as production minus the network.
type testEnv struct {
	db     *gorm.DB
	rdb    *redis.Client
	router *gin.Engine
	cfg    *config.Config
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gin.SetMode(gin.TestMode)
	handlers.RegisterValidators()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb, err := redis.Initialize("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Close() })

	cfg := config.Load()
	cfg.JWTSecret = "test-secret"

	hub := ws.NewHub()
	go hub.Run()

	env := &testEnv{db: db, rdb: rdb, cfg: cfg}
	env.router = buildRouter(cfg, db, rdb, hub)
	return env
}

func buildRouter(cfg *config.Config, db *gorm.DB, rdb *redis.Client, hub *ws.Hub) *gin.Engine {
	authHandler := handlers.NewAuthHandler(db, cfg)
	profileHandler := handlers.NewProfileHandler(db, cfg, nil)
	feedHandler := handlers.NewFeedHandler(db, cfg)
	swipeHandler := handlers.NewSwipeHandler(db, rdb, cfg, hub)
	matchHandler := handlers.NewMatchHandler(db, cfg)
	messageHandler := handlers.NewMessageHandler(db, rdb, cfg, hub)
	notificationHandler := handlers.NewNotificationHandler(db, cfg)

	router := gin.New()
	v1 := router.Group("/api/v1")

	v1.POST("/auth/telegram", authHandler.TelegramAuth)

	authed := v1.Group("")
	authed.Use(middleware.AuthRequired(cfg.JWTSecret))
	{
		authed.GET("/users/me", profileHandler.GetMe)
		authed.PUT("/users/me", profileHandler.SaveMe)
		authed.GET("/feed", feedHandler.NextBatch)
		authed.POST("/swipes", swipeHandler.RecordSwipe)
		authed.GET("/matches", matchHandler.GetMatches)
		authed.GET("/matches/:match_id/messages", messageHandler.GetMessages)
		authed.POST("/matches/:match_id/messages", messageHandler.SendMessage)
		authed.PUT("/matches/:match_id/read", messageHandler.MarkAsRead)
		authed.GET("/notifications", notificationHandler.GetNotifications)
		authed.PUT("/notifications/read", notificationHandler.MarkAllRead)
	}

	return router
}

func authToken(t *testing.T, secret string, telegramID int64) string {
	t.Helper()

	claims := jwt.MapClaims{
		"telegram_id": telegramID,
		"exp":         time.Now().Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

// do performs a request as the user with the given telegram id
// (0 = unauthenticated).
func (e *testEnv) do(t *testing.T, method, path string, telegramID int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if telegramID != 0 {
		req.Header.Set("Authorization", "Bearer "+authToken(t, e.cfg.JWTSecret, telegramID))
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()

	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// seedUser inserts a profile directly, bypassing the API.
func seedUser(t *testing.T, db *gorm.DB, telegramID int64, firstName, gender, lookingFor string, active bool) models.User {
	t.Helper()

	user := models.User{
		TelegramID: telegramID,
		FirstName:  firstName,
		Gender:     gender,
		LookingFor: lookingFor,
		IsActive:   active,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func (e *testEnv) swipe(t *testing.T, telegramID int64, toUserID uint, direction string) *httptest.ResponseRecorder {
	t.Helper()

	return e.do(t, "POST", "/api/v1/swipes", telegramID, map[string]interface{}{
		"to_user_id": toUserID,
		"direction":  direction,
	})
}

func (e *testEnv) countMatches(t *testing.T, user1, user2 uint) int64 {
	t.Helper()

	u1, u2 := models.CanonicalPair(user1, user2)
	var count int64
	require.NoError(t, e.db.Model(&models.Match{}).
		Where("user1_id = ? AND user2_id = ?", u1, u2).
		Count(&count).Error)
	return count
}
