// Package sender delivers composed mail through SMTP, the Gmail API or
// SendGrid. Senders never retry; Tracked adds open tracking, archiving and
// the local sent-message record on top of any of them.
package sender

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
)

// Send statuses
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Outgoing is one message to deliver.
type Outgoing struct {
	From     string
	FromName string
	To       string
	CC       []string
	Subject  string
	Text     string
	HTML     string

	// Threading. MessageID is generated when empty.
	MessageID  string
	InReplyTo  string
	References []string
	ThreadID   string

	// Campaign names the tracking campaign; empty disables campaign stats.
	Campaign string
}

// Result describes a delivered message.
type Result struct {
	MessageID   string `json:"message_id"`
	ProviderID  string `json:"provider_id,omitempty"`
	TrackingID  string `json:"tracking_id,omitempty"`
	ArchivePath string `json:"archive_path,omitempty"`
	Status      string `json:"status"`
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, out Outgoing) (Result, error)
}

// Recipients returns the envelope recipients: To followed by CC, deduplicated.
func (o Outgoing) Recipients() []string {
	return decider.NormalizeAll(append([]string{o.To}, o.CC...))
}

func (o Outgoing) validate() error {
	if !decider.IsWellFormed(decider.NormalizeAddress(o.From)) {
		return fmt.Errorf("%w: sender address %q", apperrors.ErrInvalidInput, o.From)
	}
	if !decider.IsWellFormed(decider.NormalizeAddress(o.To)) {
		return fmt.Errorf("%w: recipient address %q", apperrors.ErrInvalidInput, o.To)
	}
	return nil
}

// NewMessageID returns a Message-ID header value in the sender's domain.
func NewMessageID(from string) string {
	domain := "localhost"
	addr := decider.NormalizeAddress(from)
	if at := strings.LastIndex(addr, "@"); at != -1 && at < len(addr)-1 {
		domain = addr[at+1:]
	}
	return fmt.Sprintf("<%s@%s>", uuid.New().String(), domain)
}

// sendFailed wraps a provider error.
func sendFailed(provider string, err error) error {
	return fmt.Errorf("%s: %w: %v", provider, apperrors.ErrSendFailed, err)
}
