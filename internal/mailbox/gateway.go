// Package mailbox reads mail threads from the operator's mailbox.
//
// A Gateway lists recent inbox messages and whole threads as decider.Message
// values. Implementations exist for the Gmail API, mbox exports and the
// local message store fed by the SMTP ingest listener.
package mailbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
	"golang.org/x/time/rate"
)

// Gateway reads messages from a mailbox.
type Gateway interface {
	// ListThreadMessages returns every message of a thread in any order.
	ListThreadMessages(ctx context.Context, threadID string) ([]decider.Message, error)
	// ListInboxMessages returns inbox messages received at or after since.
	ListInboxMessages(ctx context.Context, since time.Time) ([]decider.Message, error)
}

// unavailable marks an error as a gateway outage.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, apperrors.ErrGatewayUnavailable, err)
}

// LocationFromLabels maps mailbox labels to a message location. SENT wins
// over INBOX; anything else is OTHER.
func LocationFromLabels(labels []string) decider.Location {
	inbox := false
	for _, l := range labels {
		switch strings.ToUpper(strings.TrimSpace(l)) {
		case "SENT":
			return decider.LocationSent
		case "INBOX":
			inbox = true
		}
	}
	if inbox {
		return decider.LocationInbox
	}
	return decider.LocationOther
}

// ThreadIDs returns the distinct thread ids of messages in first-seen order.
func ThreadIDs(messages []decider.Message) []string {
	seen := make(map[string]bool, len(messages))
	var ids []string
	for _, m := range messages {
		if m.ThreadID == "" || seen[m.ThreadID] {
			continue
		}
		seen[m.ThreadID] = true
		ids = append(ids, m.ThreadID)
	}
	return ids
}

// Limited throttles calls to a Gateway. Provider quotas are per mailbox, so
// one Limited value is shared by every caller of the same mailbox.
type Limited struct {
	next    Gateway
	limiter *rate.Limiter
}

// NewLimited allows perSecond calls per second with a burst of one second's worth.
func NewLimited(next Gateway, perSecond float64) *Limited {
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	if inner, ok := next.(limiterSharer); ok {
		inner.shareLimiter(limiter)
	}
	return &Limited{next: next, limiter: limiter}
}

// limiterSharer is implemented by gateways that make more than one provider
// request per call and must draw each from the same budget.
type limiterSharer interface {
	shareLimiter(*rate.Limiter)
}

// ListThreadMessages waits for a token, then delegates
func (l *Limited) ListThreadMessages(ctx context.Context, threadID string) ([]decider.Message, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.ListThreadMessages(ctx, threadID)
}

// ListInboxMessages waits for a token, then delegates
func (l *Limited) ListInboxMessages(ctx context.Context, since time.Time) ([]decider.Message, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.next.ListInboxMessages(ctx, since)
}
