package api

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-replypilot/internal/database"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
)

const testAPIKey = "test-key"

func newTestRouter(t *testing.T, hub *websocket.Hub) *echo.Echo {
	t.Helper()
	db, err := database.Connect(database.SQLitePrefix + filepath.Join(t.TempDir(), "router.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })
	require.NoError(t, database.Migrate(db))

	return NewRouter(&RouterConfig{
		DB:                db,
		Messages:          repository.NewMessageRepository(db),
		Participants:      repository.NewParticipantRepository(db),
		ReplyLog:          repository.NewReplyLogRepository(db),
		Tracking:          repository.NewTrackingRepository(db),
		Hub:               hub,
		OperatorAddress:   "me@ops.com",
		ReplyCooldown:     48 * time.Hour,
		InstantOpenWindow: 30 * time.Second,
		APIKey:            testAPIKey,
		RateLimit:         1000,
		RateBurst:         1000,
	})
}

func do(e *echo.Echo, method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if authed {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+testAPIKey)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthIsPublic(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := do(e, http.MethodGet, "/health", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodGet, "/ready", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_APIRequiresKey(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := do(e, http.MethodGet, "/api/participants", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, http.MethodGet, "/api/participants", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := do(e, http.MethodGet, "/health", "", false)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRouter_CampaignDecisionEndToEnd(t *testing.T) {
	e := newTestRouter(t, nil)

	rec := do(e, http.MethodPost, "/api/participants",
		`{"email": "Dana@Cust.com", "campaign": "spring", "display_name": "Dana"}`, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := `{
		"campaign": "spring",
		"thread": {"id": "t1", "messages": [
			{"id": "m1", "from": "dana@cust.com", "to": ["me@ops.com"], "cc": ["boss@cust.com"],
			 "timestamp": "2025-03-01T10:00:00Z", "location": "INBOX"}
		]}
	}`
	rec = do(e, http.MethodPost, "/api/decisions", body, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"should_reply":true`)
	assert.Contains(t, rec.Body.String(), `"primary_recipient":"dana@cust.com"`)
	assert.Contains(t, rec.Body.String(), `"boss@cust.com"`)
}

func TestRouter_WebsocketRoute(t *testing.T) {
	hasWS := func(e *echo.Echo) bool {
		for _, r := range e.Routes() {
			if r.Path == "/ws" && r.Method == http.MethodGet {
				return true
			}
		}
		return false
	}

	assert.False(t, hasWS(newTestRouter(t, nil)))
	assert.True(t, hasWS(newTestRouter(t, websocket.NewHub(nil))))
}
