package sender

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/welldanyogia/webrana-replypilot/internal/composer"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/storage"
)

// Tracked wraps a Sender with open tracking. Every message gets a fresh
// tracking id and pixel; after a successful send the tracking record, the
// MIME archive copy and the local sent-message record are written.
type Tracked struct {
	next     Sender
	tracking repository.TrackingRepository
	messages repository.MessageRepository
	archive  storage.Archive
	baseURL  string
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// TrackedConfig holds the collaborators of a Tracked sender. Messages and
// Archive are optional.
type TrackedConfig struct {
	Next            Sender
	Tracking        repository.TrackingRepository
	Messages        repository.MessageRepository
	Archive         storage.Archive
	TrackingBaseURL string
	Logger          *slog.Logger
}

// NewTracked creates a tracking sender
func NewTracked(cfg TrackedConfig) *Tracked {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracked{
		next:     cfg.Next,
		tracking: cfg.Tracking,
		messages: cfg.Messages,
		archive:  cfg.Archive,
		baseURL:  cfg.TrackingBaseURL,
		logger:   logger,
		newID:    func() string { return uuid.New().String() },
		now:      time.Now,
	}
}

// Send delivers out with a tracking pixel. Bookkeeping failures after a
// successful delivery are logged and do not fail the send.
func (t *Tracked) Send(ctx context.Context, out Outgoing) (Result, error) {
	trackingID := t.newID()
	out.HTML = composer.InsertTrackingPixel(out.HTML, composer.PixelURL(t.baseURL, trackingID))
	if out.MessageID == "" {
		out.MessageID = NewMessageID(out.From)
	}

	result, err := t.next.Send(ctx, out)
	if err != nil {
		return Result{Status: StatusFailed}, err
	}

	sentAt := t.now().UTC()
	result.TrackingID = trackingID
	result.Status = StatusSent

	err = t.tracking.RecordSent(ctx, &models.TrackedEmail{
		TrackingID:     trackingID,
		RecipientEmail: decider.NormalizeAddress(out.To),
		SenderEmail:    decider.NormalizeAddress(out.From),
		Subject:        out.Subject,
		CampaignName:   out.Campaign,
		ThreadID:       out.ThreadID,
		SentAt:         sentAt,
	})
	if err != nil {
		t.logger.Error("failed to record sent email",
			slog.String("tracking_id", trackingID),
			slog.String("recipient", out.To),
			slog.Any("error", err))
	}

	if t.archive != nil {
		result.ArchivePath = t.archiveCopy(out, trackingID, sentAt)
	}

	if t.messages != nil && out.ThreadID != "" {
		t.recordSentMessage(ctx, out, result, sentAt)
	}

	return result, nil
}

func (t *Tracked) archiveCopy(out Outgoing, trackingID string, sentAt time.Time) string {
	raw, err := BuildMIME(out, sentAt)
	if err != nil {
		t.logger.Error("failed to build archive copy", slog.String("tracking_id", trackingID), slog.Any("error", err))
		return ""
	}
	path, err := t.archive.Save(out.Campaign, trackingID, raw)
	if err != nil {
		t.logger.Error("failed to archive sent email", slog.String("tracking_id", trackingID), slog.Any("error", err))
		return ""
	}
	return path
}

// recordSentMessage stores the reply as a SENT message of its thread, so the
// store gateway sees the operator's reply and the cooldown applies.
func (t *Tracked) recordSentMessage(ctx context.Context, out Outgoing, result Result, sentAt time.Time) {
	providerID := result.ProviderID
	if providerID == "" {
		providerID = result.MessageID
	}

	msg := &models.Message{
		ProviderID:      providerID,
		ThreadID:        out.ThreadID,
		MessageIDHeader: result.MessageID,
		InReplyTo:       out.InReplyTo,
		SenderEmail:     decider.NormalizeAddress(out.From),
		SenderName:      out.FromName,
		ToAddrs:         models.JoinAddrs(decider.NormalizeAll([]string{out.To})),
		CCAddrs:         models.JoinAddrs(decider.NormalizeAll(out.CC)),
		Subject:         out.Subject,
		BodyText:        out.Text,
		BodyHTML:        out.HTML,
		References:      strings.Join(references(out), " "),
		Location:        models.LocationSent,
		SentAt:          sentAt,
	}

	if err := t.messages.Create(ctx, msg); err != nil && !errors.Is(err, repository.ErrDuplicateEntry) {
		t.logger.Error("failed to store sent message",
			slog.String("thread_id", out.ThreadID),
			slog.String("message_id", result.MessageID),
			slog.Any("error", err))
	}
}
