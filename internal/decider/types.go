// Package decider decides whether an automated reply is due on a mail thread,
// who receives it and who is copied.
//
// Everything in this package is pure: no I/O, no clock, no shared state.
// Decide may be called concurrently for independent threads.
package decider

import (
	"time"
)

// Location is the provenance of a message inside the operator's mailbox.
type Location string

const (
	LocationInbox Location = "INBOX"
	LocationSent  Location = "SENT"
	LocationOther Location = "OTHER"
)

// rank orders locations for the latest-message tie-break: OTHER loses.
func (l Location) rank() int {
	if l == LocationSent || l == LocationInbox {
		return 1
	}
	return 0
}

// Message is one immutable unit of mailbox content.
// From, To and CC hold normalized addresses.
type Message struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"thread_id"`
	From      string    `json:"from"`
	To        []string  `json:"to,omitempty"`
	CC        []string  `json:"cc,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Location  Location  `json:"location"`

	// RFC 5322 threading headers, carried through for the reply.
	MessageIDHeader string   `json:"message_id_header,omitempty"`
	References      []string `json:"references,omitempty"`
}

// Thread groups the messages of one conversation. Order is not assumed.
type Thread struct {
	ID       string    `json:"id"`
	Messages []Message `json:"messages"`
}

// WatchedParticipant is a campaign identity eligible for automated replies.
type WatchedParticipant struct {
	EmailNormalized string            `json:"email"`
	DisplayName     string            `json:"display_name,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Reason explains a ReplyDecision.
type Reason string

const (
	ReasonNoMessages      Reason = "NO_MESSAGES"
	ReasonRecentlyReplied Reason = "RECENTLY_REPLIED"
	ReasonStaleOwnReply   Reason = "STALE_OWN_REPLY"
	ReasonNeedsReply      Reason = "NEEDS_REPLY"
	ReasonNotWatched      Reason = "NOT_WATCHED"
)

// ReplyDecision is the outcome of Decide for one thread.
type ReplyDecision struct {
	ShouldReply      bool     `json:"should_reply"`
	PrimaryRecipient string   `json:"primary_recipient,omitempty"`
	CCList           []string `json:"cc_list"`
	Reason           Reason   `json:"reason"`

	// Participant is the watched identity the thread matched, if any.
	Participant *WatchedParticipant `json:"participant,omitempty"`

	// ReplyTo is the message the reply should answer.
	ReplyTo *Message `json:"reply_to,omitempty"`
}
