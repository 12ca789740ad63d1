package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polydate-server/internal/models"
)

func TestGetNotifications_ListAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	_, _, _ = matchUsers(t, env, 201, 202)

	w := env.do(t, "GET", "/api/v1/notifications", 201, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)
	assert.Equal(t, "match", resp.Notifications[0].Type)
	assert.False(t, resp.Notifications[0].IsRead)

	w = env.do(t, "PUT", "/api/v1/notifications/read", 201, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/api/v1/notifications", 201, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)
	assert.True(t, resp.Notifications[0].IsRead)
}

func TestGetNotifications_NoProfileYet(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/notifications", 999, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Notifications []models.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Notifications)
}

// A store outage must surface as a retryable failure, never as a
// normal empty list.
func TestListEndpoints_StoreUnavailable(t *testing.T) {
	env := newTestEnv(t)
	seedUser(t, env.db, 201, "One", "female", "all", true)

	sqlDB, err := env.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	for _, path := range []string{
		"/api/v1/matches",
		"/api/v1/notifications",
		"/api/v1/feed",
	} {
		w := env.do(t, "GET", path, 201, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}
