package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/composer"
	"github.com/welldanyogia/webrana-replypilot/internal/crm"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/sender"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
)

// Participant outcomes of an outreach batch
const (
	OutreachSent    = "sent"
	OutreachSkipped = "skipped"
	OutreachFailed  = "failed"
)

// Metadata keys read from a participant's CRM metadata
const (
	MetaIndustry = "industry"
	MetaWebsite  = "website"
)

// OutreachResult is the outcome for one participant of an outreach batch
type OutreachResult struct {
	ParticipantID uint   `json:"participant_id"`
	Email         string `json:"email"`
	Status        string `json:"status"`
	Subject       string `json:"subject,omitempty"`
	MessageID     string `json:"message_id,omitempty"`
	TrackingID    string `json:"tracking_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// OutreachService defines the outreach batch
type OutreachService interface {
	// Run sends a first-contact email to every active participant of campaign.
	Run(ctx context.Context, campaign string) ([]OutreachResult, error)
}

type outreachService struct {
	participants repository.ParticipantRepository
	composer     *composer.Composer
	sender       sender.Sender
	notifier     Notifier
	from         string
	fromName     string
	logger       *slog.Logger
}

// OutreachDeps groups the collaborators of the outreach service. Notifier is optional.
type OutreachDeps struct {
	Participants repository.ParticipantRepository
	Composer     *composer.Composer
	Sender       sender.Sender
	Notifier     Notifier
	Logger       *slog.Logger
}

// NewOutreachService creates a new OutreachService sending as from
func NewOutreachService(deps OutreachDeps, from, fromName string) OutreachService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &outreachService{
		participants: deps.Participants,
		composer:     deps.Composer,
		sender:       deps.Sender,
		notifier:     deps.Notifier,
		from:         from,
		fromName:     fromName,
		logger:       logger,
	}
}

// Run sends a first-contact email to every active participant of campaign.
// One participant's failure does not stop the batch.
func (s *outreachService) Run(ctx context.Context, campaign string) ([]OutreachResult, error) {
	if campaign == "" {
		return nil, apperrors.NewAppError(apperrors.ErrInvalidInput, "campaign is required", apperrors.CodeInvalidInput)
	}

	participants, err := s.participants.ListActive(ctx, campaign)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}

	results := make([]OutreachResult, 0, len(participants))
	sent := 0
	for _, p := range participants {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result := s.reach(ctx, campaign, p)
		if result.Status == OutreachSent {
			sent++
		}
		results = append(results, result)
	}

	s.logger.Info("outreach batch finished",
		slog.String("campaign", campaign),
		slog.Int("participants", len(participants)),
		slog.Int("sent", sent))

	return results, nil
}

func (s *outreachService) reach(ctx context.Context, campaign string, p models.Participant) OutreachResult {
	result := OutreachResult{ParticipantID: p.ID, Email: p.Email}

	email := decider.NormalizeAddress(p.Email)
	if !decider.IsWellFormed(email) {
		result.Status = OutreachSkipped
		result.Error = "participant has no usable email address"
		return result
	}

	req := composer.OutreachRequest{
		Name:     p.DisplayName,
		Email:    email,
		Industry: p.Metadata[MetaIndustry],
		Website:  p.Metadata[MetaWebsite],
	}
	if p.Activities != "" {
		activities, err := crm.Parse(p.Activities)
		if err != nil {
			s.logger.Warn("ignoring unreadable CRM activities",
				slog.String("participant", email),
				slog.Any("error", err))
		} else {
			if latest := crm.Latest(activities); latest != nil {
				req.LastActivity = latest.Subject
			}
			req.ActivitySummary = crm.Summary(activities, activityLines)
		}
	}
	if req.LastActivity == "" && p.LastActivityAt != nil {
		req.LastActivity = p.LastActivityAt.UTC().Format(time.DateOnly)
	}

	draft := s.composer.Outreach(ctx, req)
	result.Subject = draft.Subject

	res, err := s.sender.Send(ctx, sender.Outgoing{
		From:     s.from,
		FromName: s.fromName,
		To:       email,
		Subject:  draft.Subject,
		Text:     draft.Text,
		HTML:     draft.HTML,
		Campaign: campaign,
	})
	if err != nil {
		s.logger.Error("failed to send outreach",
			slog.String("campaign", campaign),
			slog.String("recipient", email),
			slog.Any("error", err))
		result.Status = OutreachFailed
		result.Error = err.Error()
		return result
	}

	result.Status = OutreachSent
	result.MessageID = res.MessageID
	result.TrackingID = res.TrackingID

	if s.notifier != nil {
		s.notifier.Broadcast(campaign, websocket.MessageTypeOutreachSent, &websocket.SendPayload{
			Recipient:  email,
			Subject:    draft.Subject,
			TrackingID: res.TrackingID,
		})
	}
	return result
}
