package mailbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-mbox"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
)

// MboxGateway serves messages from an mbox file, such as a Google Takeout
// export. The file is re-read on every call so that appends are picked up.
type MboxGateway struct {
	path   string
	logger *slog.Logger
}

// NewMboxGateway creates a gateway over the mbox file at path.
func NewMboxGateway(path string, logger *slog.Logger) *MboxGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &MboxGateway{path: path, logger: logger}
}

// ListThreadMessages returns the messages of one thread
func (g *MboxGateway) ListThreadMessages(ctx context.Context, threadID string) ([]decider.Message, error) {
	all, err := g.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []decider.Message
	for _, m := range all {
		if m.ThreadID == threadID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ListInboxMessages returns inbox messages dated at or after since
func (g *MboxGateway) ListInboxMessages(ctx context.Context, since time.Time) ([]decider.Message, error) {
	all, err := g.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []decider.Message
	for _, m := range all {
		if m.Location == decider.LocationInbox && !m.Timestamp.Before(since) {
			out = append(out, m)
		}
	}
	return out, nil
}

// ReadAll returns every message in the file.
func (g *MboxGateway) ReadAll(ctx context.Context) ([]decider.Message, error) {
	f, err := os.Open(g.path)
	if err != nil {
		return nil, unavailable("open mbox", err)
	}
	defer f.Close()

	return ReadMbox(ctx, f, g.logger)
}

// ReadMbox parses an mbox stream. Messages that fail to parse are logged and
// skipped.
func ReadMbox(ctx context.Context, r io.Reader, logger *slog.Logger) ([]decider.Message, error) {
	reader := mbox.NewReader(r)

	var messages []decider.Message
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raw, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, unavailable("read mbox", err)
		}

		parsed, err := ParseMessage(raw)
		if err != nil {
			logger.Warn("skipping unparsable mbox message", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		messages = append(messages, fromMbox(i, parsed))
	}
	return messages, nil
}

func fromMbox(index int, p *ParsedMessage) decider.Message {
	id := p.MessageID
	if id == "" {
		id = fmt.Sprintf("mbox-%d", index)
	}

	threadID := p.GmailThreadID
	if threadID == "" {
		threadID = p.ThreadRoot()
	}
	if threadID == "" {
		threadID = id
	}

	location := decider.LocationInbox
	if len(p.GmailLabels) > 0 {
		location = LocationFromLabels(p.GmailLabels)
	}

	return decider.Message{
		ID:              id,
		ThreadID:        threadID,
		From:            p.From,
		To:              p.To,
		CC:              p.CC,
		Subject:         p.Subject,
		Body:            p.Body(),
		Timestamp:       p.Date,
		Location:        location,
		MessageIDHeader: p.MessageID,
		References:      p.References,
	}
}
