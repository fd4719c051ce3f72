package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
)

func newWSServer(t *testing.T, origins string) (*websocket.Hub, string) {
	t.Helper()
	hub := websocket.NewHub(nil)
	go hub.Run()

	e := echo.New()
	h := NewWSHandler(hub, websocket.NewSecureUpgrader(origins, nil), nil)
	e.GET("/ws", h.Serve)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func TestWSHandler_SubscribeAndReceive(t *testing.T) {
	hub, url := newWSServer(t, "http://localhost:3000")

	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(websocket.WSMessage{
		Type:     websocket.MessageTypeSubscribe,
		Campaign: "spring",
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var ack websocket.WSMessage
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, websocket.MessageTypeSubscribed, ack.Type)

	hub.Broadcast("spring", websocket.MessageTypeReplySent, &websocket.SendPayload{
		ThreadID:  "t1",
		Recipient: "dana@cust.com",
	})

	var got websocket.WSMessage
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, websocket.MessageTypeReplySent, got.Type)
	assert.Equal(t, "spring", got.Campaign)
}

func TestWSHandler_RejectsForeignOrigin(t *testing.T) {
	_, url := newWSServer(t, "https://dash.example.com")

	header := http.Header{}
	header.Set("Origin", "https://evil.example.net")
	_, resp, err := gorillaws.DefaultDialer.Dial(url, header)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWSHandler_PlainHTTPRequest(t *testing.T) {
	_, url := newWSServer(t, "")

	resp, err := http.Get("http" + strings.TrimPrefix(url, "ws"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
