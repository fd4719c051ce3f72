// Package websocket streams campaign events (replies, outreach sends,
// opens, inbound mail) to dashboard clients. Clients subscribe per campaign
// name, or to AllCampaigns.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// MessageType is the type field of every frame on the event feed.
type MessageType string

const (
	MessageTypeSubscribe       MessageType = "subscribe"
	MessageTypeUnsubscribe     MessageType = "unsubscribe"
	MessageTypeSubscribed      MessageType = "subscribed"
	MessageTypeUnsubscribed    MessageType = "unsubscribed"
	MessageTypeReplySent       MessageType = "reply_sent"
	MessageTypeReplyFailed     MessageType = "reply_failed"
	MessageTypeOutreachSent    MessageType = "outreach_sent"
	MessageTypeEmailOpened     MessageType = "email_opened"
	MessageTypeMessageReceived MessageType = "message_received"
	MessageTypeError           MessageType = "error"
)

// AllCampaigns subscribes a client to every campaign's events
const AllCampaigns = "*"

// WSMessage is the JSON frame exchanged with clients.
type WSMessage struct {
	Type     MessageType `json:"type"`
	Campaign string      `json:"campaign,omitempty"`
	Event    any         `json:"event,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// SendPayload describes a reply or outreach send attempt
type SendPayload struct {
	ThreadID   string   `json:"thread_id,omitempty"`
	Recipient  string   `json:"recipient"`
	CC         []string `json:"cc,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	TrackingID string   `json:"tracking_id,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// OpenPayload describes a recorded email open
type OpenPayload struct {
	TrackingID string    `json:"tracking_id"`
	Recipient  string    `json:"recipient"`
	Unique     bool      `json:"unique"`
	OpenedAt   time.Time `json:"opened_at"`
}

// InboundPayload describes a message accepted by the SMTP ingest
type InboundPayload struct {
	ThreadID   string    `json:"thread_id"`
	From       string    `json:"from"`
	FromName   string    `json:"from_name,omitempty"`
	Subject    string    `json:"subject,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// Hub fans campaign events out to subscribed clients. All membership and
// delivery happens on the Run goroutine, in arrival order, so a client that
// has seen its subscribed ack receives every later broadcast for it.
type Hub struct {
	clients       map[*Client]bool
	subscriptions map[string]map[*Client]bool // campaign -> clients

	register     chan *Client
	unregister   chan *Client
	subscription chan subscriptionChange
	broadcast    chan broadcastMessage

	// guards the maps for readers outside Run
	mu     sync.RWMutex
	logger *slog.Logger
}

type subscriptionChange struct {
	client   *Client
	campaign string
	follow   bool
}

type broadcastMessage struct {
	campaign string
	message  []byte
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		subscriptions: make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		subscription:  make(chan subscriptionChange),
		broadcast:     make(chan broadcastMessage, 256),
		logger:        logger,
	}
}

// Run serves the hub until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.remove(c)
		case change := <-h.subscription:
			h.apply(change)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	for campaign := range h.subscriptions {
		h.drop(campaign, c)
	}
}

func (h *Hub) apply(change subscriptionChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !change.follow {
		h.drop(change.campaign, change.client)
		return
	}
	set := h.subscriptions[change.campaign]
	if set == nil {
		set = make(map[*Client]bool)
		h.subscriptions[change.campaign] = set
	}
	set[change.client] = true
	if h.logger != nil {
		h.logger.Debug("event feed subscription", slog.String("campaign", change.campaign))
	}
}

// drop removes c from a campaign and forgets empty campaigns. Caller holds h.mu.
func (h *Hub) drop(campaign string, c *Client) {
	set, ok := h.subscriptions[campaign]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.subscriptions, campaign)
	}
}

// deliver queues msg for every recipient without blocking; slow clients miss it.
func (h *Hub) deliver(msg broadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.recipients(msg.campaign) {
		select {
		case c.send <- msg.message:
		default:
		}
	}
}

// recipients merges the campaign's subscribers with the wildcard subscribers.
// Caller holds h.mu.
func (h *Hub) recipients(campaign string) map[*Client]bool {
	all := h.subscriptions[AllCampaigns]
	if campaign == AllCampaigns || len(all) == 0 {
		return h.subscriptions[campaign]
	}
	merged := make(map[*Client]bool, len(all)+len(h.subscriptions[campaign]))
	for c := range all {
		merged[c] = true
	}
	for c := range h.subscriptions[campaign] {
		merged[c] = true
	}
	return merged
}

func (h *Hub) Register(c *Client)   { h.register <- c }
func (h *Hub) Unregister(c *Client) { h.unregister <- c }

func (h *Hub) Subscribe(c *Client, campaign string) {
	h.subscription <- subscriptionChange{client: c, campaign: campaign, follow: true}
}

func (h *Hub) Unsubscribe(c *Client, campaign string) {
	h.subscription <- subscriptionChange{client: c, campaign: campaign}
}

// Broadcast sends an event to the campaign's subscribers and to AllCampaigns
// subscribers.
func (h *Hub) Broadcast(campaign string, eventType MessageType, event any) {
	data, err := json.Marshal(WSMessage{Type: eventType, Campaign: campaign, Event: event})
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to encode event", slog.String("type", string(eventType)), slog.Any("error", err))
		}
		return
	}
	h.broadcast <- broadcastMessage{campaign: campaign, message: data}
}
