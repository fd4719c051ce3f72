package mailbox

import (
	"context"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
)

// StoreGateway serves messages persisted in the local database.
type StoreGateway struct {
	repo repository.MessageRepository
}

// NewStoreGateway creates a gateway over the message repository.
func NewStoreGateway(repo repository.MessageRepository) *StoreGateway {
	return &StoreGateway{repo: repo}
}

// ListThreadMessages returns the stored messages of a thread
func (g *StoreGateway) ListThreadMessages(ctx context.Context, threadID string) ([]decider.Message, error) {
	rows, err := g.repo.ListByThread(ctx, threadID)
	if err != nil {
		return nil, unavailable("list thread", err)
	}
	return FromModels(rows), nil
}

// ListInboxMessages returns stored inbox messages sent at or after since
func (g *StoreGateway) ListInboxMessages(ctx context.Context, since time.Time) ([]decider.Message, error) {
	rows, err := g.repo.ListByLocationSince(ctx, models.LocationInbox, since)
	if err != nil {
		return nil, unavailable("list inbox", err)
	}
	return FromModels(rows), nil
}

// FromModel converts a stored message.
func FromModel(m models.Message) decider.Message {
	return decider.Message{
		ID:              m.ProviderID,
		ThreadID:        m.ThreadID,
		From:            m.SenderEmail,
		To:              models.SplitAddrs(m.ToAddrs),
		CC:              models.SplitAddrs(m.CCAddrs),
		Subject:         m.Subject,
		Body:            bodyOf(m),
		Timestamp:       m.SentAt,
		Location:        decider.Location(m.Location),
		MessageIDHeader: m.MessageIDHeader,
		References:      strings.Fields(m.References),
	}
}

// FromModels converts stored messages, keeping their order.
func FromModels(rows []models.Message) []decider.Message {
	out := make([]decider.Message, len(rows))
	for i := range rows {
		out[i] = FromModel(rows[i])
	}
	return out
}

// ToModel converts a parsed message for storage.
func ToModel(providerID, threadID string, location decider.Location, p *ParsedMessage) *models.Message {
	sentAt := p.Date
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}
	return &models.Message{
		ProviderID:      providerID,
		ThreadID:        threadID,
		MessageIDHeader: p.MessageID,
		InReplyTo:       p.InReplyTo,
		References:      strings.Join(p.References, " "),
		SenderEmail:     p.From,
		SenderName:      p.FromName,
		ToAddrs:         models.JoinAddrs(p.To),
		CCAddrs:         models.JoinAddrs(p.CC),
		Subject:         p.Subject,
		BodyText:        p.Body(),
		BodyHTML:        p.HTML,
		Location:        string(location),
		SentAt:          sentAt,
	}
}

func bodyOf(m models.Message) string {
	if strings.TrimSpace(m.BodyText) != "" {
		return m.BodyText
	}
	return stripHTMLTags(m.BodyHTML)
}
