package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/gmailclient"
	"golang.org/x/time/rate"
	"google.golang.org/api/gmail/v1"
)

const inboxQuery = "in:inbox -in:draft"

// GmailGateway reads the operator's mailbox through the Gmail API.
type GmailGateway struct {
	srv     *gmail.Service
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewGmailGateway creates a gateway over an authorized Gmail service.
func NewGmailGateway(srv *gmail.Service, logger *slog.Logger) *GmailGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &GmailGateway{srv: srv, logger: logger}
}

func (g *GmailGateway) shareLimiter(l *rate.Limiter) { g.limiter = l }

// wait blocks for a per-request token when the gateway sits behind Limited.
func (g *GmailGateway) wait(ctx context.Context) error {
	if g.limiter == nil {
		return nil
	}
	return g.limiter.Wait(ctx)
}

// ListThreadMessages fetches one thread with full message payloads
func (g *GmailGateway) ListThreadMessages(ctx context.Context, threadID string) ([]decider.Message, error) {
	thread, err := g.srv.Users.Threads.Get(gmailclient.User, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, unavailable("get thread", err)
	}

	out := make([]decider.Message, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		out = append(out, FromGmail(msg))
	}
	return out, nil
}

// ListInboxMessages lists inbox messages after since and fetches each one
func (g *GmailGateway) ListInboxMessages(ctx context.Context, since time.Time) ([]decider.Message, error) {
	query := fmt.Sprintf("%s after:%d", inboxQuery, since.Unix())

	var ids []string
	err := g.srv.Users.Messages.List(gmailclient.User).Q(query).Pages(ctx, func(resp *gmail.ListMessagesResponse) error {
		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		return nil
	})
	if err != nil {
		return nil, unavailable("list inbox", err)
	}

	out := make([]decider.Message, 0, len(ids))
	for _, id := range ids {
		if err := g.wait(ctx); err != nil {
			return nil, err
		}
		msg, err := g.srv.Users.Messages.Get(gmailclient.User, id).Format("full").Context(ctx).Do()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			g.logger.Warn("unable to fetch message", slog.String("message_id", id), slog.Any("error", err))
			continue
		}
		m := FromGmail(msg)
		if m.Timestamp.Before(since) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// FromGmail converts a Gmail API message.
func FromGmail(msg *gmail.Message) decider.Message {
	m := decider.Message{
		ID:        msg.Id,
		ThreadID:  msg.ThreadId,
		Timestamp: time.UnixMilli(msg.InternalDate).UTC(),
		Location:  LocationFromLabels(msg.LabelIds),
	}
	if msg.Payload == nil {
		return m
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			m.From = decider.NormalizeAddress(h.Value)
		case "to":
			m.To = decider.ParseAddressList(h.Value)
		case "cc":
			m.CC = decider.ParseAddressList(h.Value)
		case "subject":
			m.Subject = h.Value
		case "message-id":
			m.MessageIDHeader = strings.TrimSpace(h.Value)
		case "references":
			m.References = strings.Fields(h.Value)
		}
	}

	m.Body = partBody(msg.Payload, "text/plain")
	if m.Body == "" {
		m.Body = stripHTMLTags(partBody(msg.Payload, "text/html"))
	}
	return m
}

// partBody returns the first decoded part of the given MIME type
func partBody(payload *gmail.MessagePart, mimeType string) string {
	if strings.EqualFold(payload.MimeType, mimeType) && payload.Body != nil && payload.Body.Data != "" {
		if data, err := decodeBase64URL(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		if body := partBody(part, mimeType); body != "" {
			return body
		}
	}
	return ""
}

// decodeBase64URL accepts padded and unpadded URL-safe base64
func decodeBase64URL(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
