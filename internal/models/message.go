package models

import (
	"strings"
	"time"
)

// Message locations
const (
	LocationInbox = "INBOX"
	LocationSent  = "SENT"
	LocationOther = "OTHER"
)

// Message is a mail message persisted by the SMTP ingest listener or by the
// reply service after sending. Address columns hold normalized addresses
// joined by commas.
type Message struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ProviderID      string    `gorm:"uniqueIndex;not null;size:255" json:"provider_id"`
	ThreadID        string    `gorm:"not null;index;size:255" json:"thread_id"`
	MessageIDHeader string    `gorm:"index;size:512" json:"message_id_header,omitempty"`
	InReplyTo       string    `gorm:"size:512" json:"in_reply_to,omitempty"`
	References      string    `gorm:"type:text" json:"references,omitempty"`
	SenderEmail     string    `gorm:"not null;size:255" json:"sender_email"`
	SenderName      string    `gorm:"size:255" json:"sender_name,omitempty"`
	ToAddrs         string    `gorm:"type:text" json:"to"`
	CCAddrs         string    `gorm:"type:text" json:"cc,omitempty"`
	Subject         string    `json:"subject,omitempty"`
	BodyText        string    `json:"body_text,omitempty"`
	BodyHTML        string    `json:"body_html,omitempty"`
	Location        string    `gorm:"not null;size:16;default:INBOX;index" json:"location"`
	SentAt          time.Time `gorm:"not null;index" json:"sent_at"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for Message
func (Message) TableName() string {
	return "messages"
}

// JoinAddrs encodes an address list for the ToAddrs and CCAddrs columns
func JoinAddrs(addrs []string) string {
	return strings.Join(addrs, ",")
}

// SplitAddrs decodes an address column written by JoinAddrs
func SplitAddrs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
