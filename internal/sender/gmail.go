package sender

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/gmailclient"
	"google.golang.org/api/gmail/v1"
)

// GmailSender sends through the Gmail API so replies land in the original
// conversation of the operator's mailbox.
type GmailSender struct {
	srv *gmail.Service
	now func() time.Time
}

// NewGmailSender creates a sender over an authorized Gmail service.
func NewGmailSender(srv *gmail.Service) *GmailSender {
	return &GmailSender{srv: srv, now: time.Now}
}

// Send uploads the raw message, attached to out.ThreadID when set
func (s *GmailSender) Send(ctx context.Context, out Outgoing) (Result, error) {
	if out.MessageID == "" {
		out.MessageID = NewMessageID(out.From)
	}

	raw, err := BuildMIME(out, s.now())
	if err != nil {
		return Result{Status: StatusFailed}, err
	}

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString(raw),
		ThreadId: out.ThreadID,
	}
	sent, err := s.srv.Users.Messages.Send(gmailclient.User, msg).Context(ctx).Do()
	if err != nil {
		return Result{Status: StatusFailed}, sendFailed("gmail", err)
	}

	return Result{MessageID: out.MessageID, ProviderID: sent.Id, Status: StatusSent}, nil
}
