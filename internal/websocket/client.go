package websocket

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/welldanyogia/webrana-replypilot/internal/validator"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
	maxMessageSize   = 512
	sendBuffer       = 256
	maxSubscriptions = 64
)

// Client is one event-feed connection. ReadPump and WritePump each run on
// their own goroutine; the hub closes send on unregister.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	// owned by the ReadPump goroutine
	campaigns map[string]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
		logger:    logger,
		campaigns: make(map[string]struct{}),
	}
}

// ReadPump handles subscription requests until the peer goes away or stops
// answering pings.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	c.conn.SetReadLimit(maxMessageSize)
	_ = extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && c.logger != nil {
				c.logger.Warn("event feed connection dropped", slog.Any("error", err))
			}
			return
		}
		c.handleMessage(data)
	}
}

// WritePump delivers queued events and keeps the connection alive with pings.
func (c *Client) WritePump() {
	keepalive := time.NewTicker(pingPeriod)
	defer func() {
		keepalive.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, open := <-c.send:
			if !open {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-keepalive.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// handleMessage applies a subscribe or unsubscribe request and acknowledges it
func (c *Client) handleMessage(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("invalid message format")
		return
	}
	if msg.Type != MessageTypeSubscribe && msg.Type != MessageTypeUnsubscribe {
		c.sendError("unknown message type")
		return
	}

	if err := validator.ValidateCampaign(msg.Campaign); err != nil {
		if errors.Is(err, validator.ErrEmptyInput) {
			c.sendError("campaign is required")
		} else {
			c.sendError("invalid campaign name")
		}
		return
	}

	if msg.Type == MessageTypeUnsubscribe {
		delete(c.campaigns, msg.Campaign)
		c.hub.Unsubscribe(c, msg.Campaign)
		c.reply(WSMessage{Type: MessageTypeUnsubscribed, Campaign: msg.Campaign})
		return
	}

	if _, ok := c.campaigns[msg.Campaign]; !ok && len(c.campaigns) >= maxSubscriptions {
		c.sendError("too many subscriptions")
		return
	}
	c.campaigns[msg.Campaign] = struct{}{}
	c.hub.Subscribe(c, msg.Campaign)
	c.reply(WSMessage{Type: MessageTypeSubscribed, Campaign: msg.Campaign})
}

func (c *Client) sendError(errMsg string) {
	c.reply(WSMessage{Type: MessageTypeError, Error: errMsg})
}

// reply queues a message for this client only. A full buffer drops it.
func (c *Client) reply(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}
