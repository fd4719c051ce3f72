package websocket

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/webrana-replypilot/internal/logger"
)

func TestParseOrigins(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", []string{defaultOrigin}},
		{"comma only", ",,,", []string{defaultOrigin}},
		{"trims whitespace", "  http://localhost:3000  ,  http://example.com  ", []string{"http://localhost:3000", "http://example.com"}},
		{"drops empty entries", "http://a.com,,http://b.com,", []string{"http://a.com", "http://b.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseOrigins(tt.raw))
		})
	}
}

func TestNewSecureUpgrader_CheckOrigin(t *testing.T) {
	upgrader := NewSecureUpgrader("http://localhost:3000, http://app.example.com", nil)

	tests := []struct {
		origin   string
		expected bool
	}{
		{"http://localhost:3000", true},
		{"http://app.example.com", true},
		{"", true},
		{"http://malicious.com", false},
		{"HTTP://LOCALHOST:3000", false},
		{"http://localhost:3000/some/path", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.expected, upgrader.CheckOrigin(req))
		})
	}
}

func TestNewSecureUpgrader_LogsRejectedOrigin(t *testing.T) {
	var buf bytes.Buffer
	secLogger := logger.NewSecurityLoggerWithHandler(slog.NewJSONHandler(&buf, nil))
	upgrader := NewSecureUpgrader("http://localhost:3000", secLogger)

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "http://evil.test")

	assert.False(t, upgrader.CheckOrigin(req))
	assert.Contains(t, buf.String(), "invalid_origin")
	assert.Contains(t, buf.String(), "http://evil.test")
}

func TestNewSecureUpgrader_BufferSizes(t *testing.T) {
	upgrader := NewSecureUpgrader("", nil)

	assert.Equal(t, 1024, upgrader.ReadBufferSize)
	assert.Equal(t, 1024, upgrader.WriteBufferSize)
}

func TestDefaultUpgrader_AllowsAll(t *testing.T) {
	upgrader := DefaultUpgrader()

	for _, origin := range []string{"http://localhost:3000", "http://malicious.com", ""} {
		req := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		assert.True(t, upgrader.CheckOrigin(req), "origin %q", origin)
	}
}

func TestHub_NewHub(t *testing.T) {
	hub := NewHub(nil)

	assert.NotNil(t, hub)
	assert.NotNil(t, hub.clients)
	assert.NotNil(t, hub.subscriptions)
	assert.NotNil(t, hub.register)
	assert.NotNil(t, hub.unregister)
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("expected a broadcast message")
		return WSMessage{}
	}
}

func assertNothingReceived(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_BroadcastToCampaignSubscribers(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	spring := NewClient(hub, nil, nil)
	other := NewClient(hub, nil, nil)
	hub.Register(spring)
	hub.Register(other)
	hub.Subscribe(spring, "spring")
	hub.Subscribe(other, "autumn")

	hub.Broadcast("spring", MessageTypeReplySent, &SendPayload{
		ThreadID:   "t-1",
		Recipient:  "dana@cust.com",
		CC:         []string{"boss@cust.com"},
		Reason:     "NEEDS_REPLY",
		TrackingID: "trk-1",
	})

	msg := receive(t, spring)
	assert.Equal(t, MessageTypeReplySent, msg.Type)
	assert.Equal(t, "spring", msg.Campaign)
	event, ok := msg.Event.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "dana@cust.com", event["recipient"])
	assert.Equal(t, "trk-1", event["tracking_id"])

	assertNothingReceived(t, other)
}

func TestHub_WildcardSubscriberReceivesEveryCampaign(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	all := NewClient(hub, nil, nil)
	both := NewClient(hub, nil, nil)
	hub.Register(all)
	hub.Register(both)
	hub.Subscribe(all, AllCampaigns)
	hub.Subscribe(both, AllCampaigns)
	hub.Subscribe(both, "spring")

	hub.Broadcast("spring", MessageTypeEmailOpened, &OpenPayload{TrackingID: "trk-1", Unique: true})

	assert.Equal(t, MessageTypeEmailOpened, receive(t, all).Type)
	assert.Equal(t, MessageTypeEmailOpened, receive(t, both).Type)
	assertNothingReceived(t, both)
}

func TestHub_UnregisterClosesSendChannel(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()

	client := NewClient(hub, nil, nil)
	hub.Register(client)
	hub.Subscribe(client, "spring")
	hub.Unregister(client)

	// Unregister is processed before the broadcast below, both go through Run.
	hub.Broadcast("spring", MessageTypeReplySent, &SendPayload{Recipient: "x@y.com"})

	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(time.Second):
		t.Fatal("send channel was not closed")
	}

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	assert.Empty(t, hub.subscriptions)
}
