package smtp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/mailbox"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
)

var (
	errInvalidRecipient = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 1},
		Message:      "Invalid recipient address",
	}
	errMailboxNotFound = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 1, 1},
		Message:      "Mailbox not found",
	}
	errNoRecipients = &smtp.SMTPError{
		Code:         503,
		EnhancedCode: smtp.EnhancedCode{5, 5, 1},
		Message:      "No recipients specified",
	}
	errUnparsable = &smtp.SMTPError{
		Code:         550,
		EnhancedCode: smtp.EnhancedCode{5, 6, 0},
		Message:      "Failed to parse email",
	}
	errTemporary = &smtp.SMTPError{
		Code:         451,
		EnhancedCode: smtp.EnhancedCode{4, 3, 0},
		Message:      "Temporary error",
	}
)

// Session implements the go-smtp Session interface
type Session struct {
	backend    *Backend
	remoteAddr string
	from       string
	recipients []string
}

// NewSession creates a new SMTP session
func NewSession(backend *Backend, remoteAddr string) *Session {
	return &Session{
		backend:    backend,
		remoteAddr: remoteAddr,
		recipients: make([]string, 0),
	}
}

// Mail handles the MAIL FROM command
func (s *Session) Mail(from string, opts *smtp.MailOptions) error {
	s.from = from
	if s.backend.logger != nil {
		s.backend.logger.Debug("MAIL FROM", slog.String("from", from))
	}
	return nil
}

// Rcpt accepts recipients at the operator's domain only
func (s *Session) Rcpt(to string, opts *smtp.RcptOptions) error {
	addr := decider.NormalizeAddress(to)
	if !decider.IsWellFormed(addr) {
		return errInvalidRecipient
	}

	if domainOf(addr) != s.backend.operatorDomain {
		if s.backend.secLogger != nil {
			s.backend.secLogger.InboundRejected(s.remoteAddr, s.from, "recipient outside operator domain")
		}
		return errMailboxNotFound
	}

	s.recipients = append(s.recipients, addr)
	if s.backend.logger != nil {
		s.backend.logger.Debug("RCPT TO", slog.String("to", addr))
	}
	return nil
}

// Data parses the message and stores it once, whatever the number of
// recipients, in the thread it belongs to.
func (s *Session) Data(r io.Reader) error {
	if len(s.recipients) == 0 {
		return errNoRecipients
	}

	parsed, err := mailbox.ParseMessage(r)
	if err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to parse email", slog.Any("error", err))
		}
		return errUnparsable
	}

	// Fall back to the envelope sender when the header has none
	if parsed.From == "" {
		parsed.From = decider.NormalizeAddress(s.from)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.backend.storeTimeout)
	defer cancel()
	if err := s.backend.ingest(ctx, parsed); err != nil {
		if s.backend.logger != nil {
			s.backend.logger.Error("failed to store email",
				slog.String("message_id", parsed.MessageID),
				slog.Any("error", err))
		}
		return errTemporary
	}

	if s.backend.logger != nil {
		s.backend.logger.Info("email received",
			slog.String("from", parsed.From),
			slog.Int("recipients", len(s.recipients)),
			slog.String("subject", parsed.Subject))
	}
	return nil
}

// Reset resets the session state
func (s *Session) Reset() {
	s.from = ""
	s.recipients = make([]string, 0)
}

// Logout handles the end of the session
func (s *Session) Logout() error {
	return nil
}

// ingest files a parsed message under its thread. A message from the
// operator (a BCC of an outbound mail) is stored as SENT.
func (b *Backend) ingest(ctx context.Context, parsed *mailbox.ParsedMessage) error {
	location := decider.LocationInbox
	if parsed.From == b.operator {
		location = decider.LocationSent
	}

	threadID, err := b.messageRepo.FindThreadID(ctx, parsed.Ancestors())
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to resolve thread: %w", err)
		}
		threadID = parsed.ThreadRoot()
	}

	providerID := parsed.MessageID
	if providerID == "" {
		providerID = "smtp-" + uuid.New().String()
	}
	if threadID == "" {
		threadID = providerID
	}

	msg := mailbox.ToModel(providerID, threadID, location, parsed)
	if parsed.Date.IsZero() {
		msg.SentAt = b.now().UTC()
	}

	if err := b.messageRepo.Create(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			if b.logger != nil {
				b.logger.Debug("duplicate message ignored", slog.String("message_id", providerID))
			}
			return nil
		}
		return err
	}

	if b.notifier != nil {
		b.notifier.Broadcast(websocket.AllCampaigns, websocket.MessageTypeMessageReceived, &websocket.InboundPayload{
			ThreadID:   threadID,
			From:       parsed.From,
			FromName:   parsed.FromName,
			Subject:    parsed.Subject,
			ReceivedAt: msg.SentAt,
		})
	}
	return nil
}

// domainOf returns the lowercased domain of a normalized address
func domainOf(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return strings.ToLower(addr[at+1:])
}
