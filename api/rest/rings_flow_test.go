package rest_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/pulsefit/pulsefit-server/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRings_UpsertAndReadOwn(t *testing.T) {
	s := newServer(t)
	tok, uid := login(t, s, "alice")

	w := doAuth(s.r, http.MethodPut, "/api/rings/2026-08-27", tok, map[string]interface{}{
		"calories_burned": 500, "steps": 12000, "workout_minutes": 60,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doAuth(s.r, http.MethodGet, fmt.Sprintf("/api/users/%d/rings/2026-08-27", uid), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats model.RingStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 12000, stats.Steps)
}

func TestRings_StrangerBlockedByDefaultTier(t *testing.T) {
	s := newServer(t)
	aliceTok, aliceID := login(t, s, "alice")
	bobTok, _ := login(t, s, "bob")

	require.Equal(t, http.StatusOK,
		doAuth(s.r, http.MethodPut, "/api/rings/2026-08-27", aliceTok,
			map[string]interface{}{"steps": 100}).Code)

	// Default tier is friends; Bob is a stranger.
	w := doAuth(s.r, http.MethodGet, fmt.Sprintf("/api/users/%d/rings/2026-08-27", aliceID), bobTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRings_FriendSeesAfterAccept(t *testing.T) {
	s := newServer(t)
	aliceTok, aliceID := login(t, s, "alice")
	bobTok, bobID := login(t, s, "bob")

	require.Equal(t, http.StatusOK,
		doAuth(s.r, http.MethodPut, "/api/rings/2026-08-27", aliceTok,
			map[string]interface{}{"steps": 100}).Code)

	require.Equal(t, http.StatusCreated,
		doAuth(s.r, http.MethodPost, "/api/social/requests", aliceTok,
			map[string]interface{}{"to_id": bobID}).Code)
	require.Equal(t, http.StatusOK,
		doAuth(s.r, http.MethodPost, fmt.Sprintf("/api/social/requests/%d/respond", aliceID),
			bobTok, map[string]string{"action": "accept"}).Code)

	w := doAuth(s.r, http.MethodGet, fmt.Sprintf("/api/users/%d/rings/2026-08-27", aliceID), bobTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRings_PrivacyUpdateTakesEffect(t *testing.T) {
	s := newServer(t)
	aliceTok, aliceID := login(t, s, "alice")
	bobTok, _ := login(t, s, "bob")

	require.Equal(t, http.StatusOK,
		doAuth(s.r, http.MethodPut, "/api/rings/2026-08-27", aliceTok,
			map[string]interface{}{"steps": 100}).Code)

	w := doAuth(s.r, http.MethodPut, "/api/users/me/privacy", aliceTok,
		map[string]string{"rings_visibility": "public"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doAuth(s.r, http.MethodGet, fmt.Sprintf("/api/users/%d/rings/2026-08-27", aliceID), bobTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRings_BadDate(t *testing.T) {
	s := newServer(t)
	tok, _ := login(t, s, "alice")

	w := doAuth(s.r, http.MethodPut, "/api/rings/27-08-2026", tok,
		map[string]interface{}{"steps": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRings_RangeDefaultsToLastWeek(t *testing.T) {
	s := newServer(t)
	tok, uid := login(t, s, "alice")

	w := doAuth(s.r, http.MethodGet, fmt.Sprintf("/api/users/%d/rings", uid), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string][]model.RingStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp["stats"])
}

func TestNotifications_MarkRead(t *testing.T) {
	s := newServer(t)
	aliceTok, _ := login(t, s, "alice")
	bobTok, bobID := login(t, s, "bob")

	require.Equal(t, http.StatusCreated,
		doAuth(s.r, http.MethodPost, "/api/social/requests", aliceTok,
			map[string]interface{}{"to_id": bobID}).Code)
	s.fanout.Stop()

	w := doAuth(s.r, http.MethodGet, "/api/notifications", bobTok, nil)
	var resp struct {
		Notifications []model.Notification `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Notifications, 1)
	id := resp.Notifications[0].ID

	require.Equal(t, http.StatusOK,
		doAuth(s.r, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", id), bobTok, nil).Code)

	// Unread filter is now empty; marking someone else's is 404.
	w = doAuth(s.r, http.MethodGet, "/api/notifications?unread=1", bobTok, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Notifications)

	assert.Equal(t, http.StatusNotFound,
		doAuth(s.r, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", id), aliceTok, nil).Code)
}

func TestNotifications_ReadAll(t *testing.T) {
	s := newServer(t)
	aliceTok, _ := login(t, s, "alice")
	carolTok, _ := login(t, s, "carol")
	bobTok, bobID := login(t, s, "bob")

	for _, tok := range []string{aliceTok, carolTok} {
		require.Equal(t, http.StatusCreated,
			doAuth(s.r, http.MethodPost, "/api/social/requests", tok,
				map[string]interface{}{"to_id": bobID}).Code)
	}
	s.fanout.Stop()

	require.Equal(t, http.StatusOK,
		doAuth(s.r, http.MethodPost, "/api/notifications/read-all", bobTok, nil).Code)

	w := doAuth(s.r, http.MethodGet, "/api/notifications", bobTok, nil)
	var resp struct {
		Unread int64 `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Unread)
}

func TestUserSearch(t *testing.T) {
	s := newServer(t)
	tok, _ := login(t, s, "alice")
	login(t, s, "alfred")
	login(t, s, "bob")

	w := doAuth(s.r, http.MethodGet, "/api/users/search?q=al", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string][]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp["users"], 2)

	w = doAuth(s.r, http.MethodGet, "/api/users/search?q=a", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "query must be at least two chars")
}
