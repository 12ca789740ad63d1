package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"polydate-server/internal/models"
)

func feedProfiles(t *testing.T, body map[string]json.RawMessage) []models.User {
	t.Helper()

	var profiles []models.User
	require.NoError(t, json.Unmarshal(body["profiles"], &profiles))
	return profiles
}

func TestNextBatch_NoProfileYet(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/v1/feed", 999, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, feedProfiles(t, decodeBody(t, w)))
}

func TestNextBatch_GenderPreferenceFilter(t *testing.T) {
	env := newTestEnv(t)

	seedUser(t, env.db, 100, "Dana", "male", "female", true)
	alice := seedUser(t, env.db, 101, "Alice", "female", "all", true)
	seedUser(t, env.db, 102, "Bob", "male", "female", true)

	w := env.do(t, "GET", "/api/v1/feed", 100, nil)

	require.Equal(t, http.StatusOK, w.Code)
	profiles := feedProfiles(t, decodeBody(t, w))
	require.Len(t, profiles, 1)
	assert.Equal(t, alice.ID, profiles[0].ID)
}

func TestNextBatch_LookingForAllSeesEveryone(t *testing.T) {
	env := newTestEnv(t)

	seedUser(t, env.db, 100, "Dana", "female", "all", true)
	seedUser(t, env.db, 101, "Alice", "female", "all", true)
	seedUser(t, env.db, 102, "Bob", "male", "female", true)

	w := env.do(t, "GET", "/api/v1/feed", 100, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, feedProfiles(t, decodeBody(t, w)), 2)
}

func TestNextBatch_ExcludesInactive(t *testing.T) {
	env := newTestEnv(t)

	seedUser(t, env.db, 100, "Dana", "female", "all", true)
	seedUser(t, env.db, 101, "Ghost", "male", "all", false)

	w := env.do(t, "GET", "/api/v1/feed", 100, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, feedProfiles(t, decodeBody(t, w)))
}

// Once a user has swiped someone, in either direction, that person
// must never show up in their feed again.
func TestNextBatch_ExcludesSwiped(t *testing.T) {
	env := newTestEnv(t)

	me := seedUser(t, env.db, 100, "Dana", "female", "all", true)
	liked := seedUser(t, env.db, 101, "Alice", "female", "all", true)
	disliked := seedUser(t, env.db, 102, "Bob", "male", "all", true)
	fresh := seedUser(t, env.db, 103, "Carol", "female", "all", true)

	require.Equal(t, http.StatusOK, env.swipe(t, 100, liked.ID, "like").Code)
	require.Equal(t, http.StatusOK, env.swipe(t, 100, disliked.ID, "dislike").Code)

	for i := 0; i < 3; i++ {
		w := env.do(t, "GET", "/api/v1/feed", 100, nil)
		require.Equal(t, http.StatusOK, w.Code)

		profiles := feedProfiles(t, decodeBody(t, w))
		require.Len(t, profiles, 1)
		assert.Equal(t, fresh.ID, profiles[0].ID)
	}

	// The reverse direction does not drive exclusion: someone liking
	// me does not remove them from my feed.
	require.Equal(t, http.StatusOK, env.swipe(t, 103, me.ID, "like").Code)
	w := env.do(t, "GET", "/api/v1/feed", 100, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, feedProfiles(t, decodeBody(t, w)), 1)
}

func TestNextBatch_LimitCapped(t *testing.T) {
	env := newTestEnv(t)

	seedUser(t, env.db, 100, "Dana", "female", "all", true)
	for i := int64(0); i < 5; i++ {
		seedUser(t, env.db, 200+i, "Candidate", "male", "all", true)
	}

	w := env.do(t, "GET", "/api/v1/feed?limit=2", 100, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, feedProfiles(t, decodeBody(t, w)), 2)
}
