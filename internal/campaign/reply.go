// Package campaign runs the automated mail batches: answering watched
// participants whose threads need a reply, and first-contact outreach to
// every active participant of a campaign.
package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/composer"
	"github.com/welldanyogia/webrana-replypilot/internal/crm"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/mailbox"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
	"github.com/welldanyogia/webrana-replypilot/internal/sender"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
)

// Thread outcomes of a reply batch
const (
	ThreadReplied        = "replied"
	ThreadSkipped        = "skipped"
	ThreadAlreadyReplied = "already_replied"
	ThreadInFlight       = "in_flight"
	ThreadFailed         = "failed"
)

// activityLines is how many CRM activities go into a prompt
const activityLines = 5

// Notifier publishes campaign events to live subscribers
type Notifier interface {
	Broadcast(campaign string, eventType websocket.MessageType, event interface{})
}

// ThreadResult is the outcome of one thread in a reply batch
type ThreadResult struct {
	ThreadID   string                `json:"thread_id"`
	Status     string                `json:"status"`
	Decision   decider.ReplyDecision `json:"decision"`
	MessageID  string                `json:"message_id,omitempty"`
	TrackingID string                `json:"tracking_id,omitempty"`
	Error      string                `json:"error,omitempty"`
}

// ReplyConfig holds the reply policy
type ReplyConfig struct {
	OperatorAddress string
	OperatorName    string

	// Campaign is the tracking campaign replies are recorded under.
	Campaign string

	// WatchCampaign limits watched participants to one campaign; empty watches all.
	WatchCampaign string

	Cooldown time.Duration
	Lookback time.Duration
}

// ReplyService defines the reply batch
type ReplyService interface {
	// Run answers every inbox thread that needs a reply and returns one
	// result per thread seen.
	Run(ctx context.Context) ([]ThreadResult, error)
}

// replyService implements ReplyService
type replyService struct {
	gateway      mailbox.Gateway
	participants repository.ParticipantRepository
	replyLog     repository.ReplyLogRepository
	composer     *composer.Composer
	sender       sender.Sender
	notifier     Notifier
	config       ReplyConfig
	logger       *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// ReplyDeps groups the collaborators of the reply service. Notifier is optional.
type ReplyDeps struct {
	Gateway      mailbox.Gateway
	Participants repository.ParticipantRepository
	ReplyLog     repository.ReplyLogRepository
	Composer     *composer.Composer
	Sender       sender.Sender
	Notifier     Notifier
	Logger       *slog.Logger
}

// NewReplyService creates a new ReplyService instance
func NewReplyService(deps ReplyDeps, config ReplyConfig) ReplyService {
	if config.Lookback <= 0 {
		config.Lookback = 72 * time.Hour
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &replyService{
		gateway:      deps.Gateway,
		participants: deps.Participants,
		replyLog:     deps.ReplyLog,
		composer:     deps.Composer,
		sender:       deps.Sender,
		notifier:     deps.Notifier,
		config:       config,
		logger:       logger,
		now:          time.Now,
		inFlight:     make(map[string]struct{}),
	}
}

// Run answers every inbox thread that needs a reply
func (s *replyService) Run(ctx context.Context) ([]ThreadResult, error) {
	now := s.now().UTC()
	inbox, err := s.gateway.ListInboxMessages(ctx, now.Add(-s.config.Lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to list inbox: %w", err)
	}

	participants, err := s.participants.ListActive(ctx, s.config.WatchCampaign)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched participants: %w", err)
	}
	watched, byEmail := WatchList(participants)

	threadIDs := mailbox.ThreadIDs(inbox)
	results := make([]ThreadResult, 0, len(threadIDs))
	for _, threadID := range threadIDs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		results = append(results, s.processThread(ctx, threadID, watched, byEmail, now))
	}

	replied := 0
	for _, r := range results {
		if r.Status == ThreadReplied {
			replied++
		}
	}
	s.logger.Info("reply batch finished",
		slog.Int("threads", len(results)),
		slog.Int("replied", replied))

	return results, nil
}

func (s *replyService) processThread(ctx context.Context, threadID string, watched []decider.WatchedParticipant, byEmail map[string]models.Participant, now time.Time) ThreadResult {
	result := ThreadResult{ThreadID: threadID}

	if !s.acquire(threadID) {
		result.Status = ThreadInFlight
		return result
	}
	defer s.release(threadID)

	messages, err := s.gateway.ListThreadMessages(ctx, threadID)
	if err != nil {
		s.logger.Error("failed to fetch thread", slog.String("thread_id", threadID), slog.Any("error", err))
		return failed(result, err)
	}

	thread := decider.Thread{ID: threadID, Messages: messages}
	decision := decider.Decide(thread, s.config.OperatorAddress, watched, s.config.Cooldown, now)
	result.Decision = decision
	if !decision.ShouldReply || decision.ReplyTo == nil {
		result.Status = ThreadSkipped
		return result
	}

	// The latest message keys the reply log: a nudge after a stale own
	// reply is keyed by that reply, an answer by the incoming message.
	latest, _ := decider.Latest(thread)
	trigger := decision.ReplyTo
	sent, err := s.replyLog.HasSent(ctx, threadID, latest.ID)
	if err != nil {
		s.logger.Error("failed to check reply log", slog.String("thread_id", threadID), slog.Any("error", err))
		return failed(result, err)
	}
	if sent {
		result.Status = ThreadAlreadyReplied
		return result
	}

	var recipientName string
	var participant models.Participant
	if decision.Participant != nil {
		recipientName = decision.Participant.DisplayName
		participant = byEmail[decision.Participant.EmailNormalized]
	}
	draft, err := s.composer.Reply(ctx, composer.ReplyRequest{
		RecipientName:   recipientName,
		RecipientEmail:  decision.PrimaryRecipient,
		Subject:         trigger.Subject,
		IncomingBody:    trigger.Body,
		ActivitySummary: s.activitySummary(participant),
	})
	if err != nil {
		s.logger.Error("failed to compose reply", slog.String("thread_id", threadID), slog.Any("error", err))
		s.logReply(ctx, threadID, latest.ID, decision, sender.Result{}, "", err)
		s.notify(decision, trigger, threadID, "", err)
		return failed(result, err)
	}

	res, err := s.sender.Send(ctx, sender.Outgoing{
		From:       s.config.OperatorAddress,
		FromName:   s.config.OperatorName,
		To:         decision.PrimaryRecipient,
		CC:         decision.CCList,
		Subject:    draft.Subject,
		Text:       draft.Text,
		HTML:       draft.HTML,
		InReplyTo:  trigger.MessageIDHeader,
		References: trigger.References,
		ThreadID:   threadID,
		Campaign:   s.config.Campaign,
	})
	s.logReply(ctx, threadID, latest.ID, decision, res, draft.Subject, err)
	s.notify(decision, trigger, threadID, res.TrackingID, err)
	if err != nil {
		s.logger.Error("failed to send reply",
			slog.String("thread_id", threadID),
			slog.String("recipient", decision.PrimaryRecipient),
			slog.Any("error", err))
		return failed(result, err)
	}

	s.logger.Info("reply sent",
		slog.String("thread_id", threadID),
		slog.String("recipient", decision.PrimaryRecipient),
		slog.Int("cc", len(decision.CCList)),
		slog.String("tracking_id", res.TrackingID))

	result.Status = ThreadReplied
	result.MessageID = res.MessageID
	result.TrackingID = res.TrackingID
	return result
}

func (s *replyService) acquire(threadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[threadID]; busy {
		return false
	}
	s.inFlight[threadID] = struct{}{}
	return true
}

func (s *replyService) release(threadID string) {
	s.mu.Lock()
	delete(s.inFlight, threadID)
	s.mu.Unlock()
}

// activitySummary renders the participant's recent CRM activities. Unreadable
// histories are logged and left out of the prompt.
func (s *replyService) activitySummary(p models.Participant) string {
	if p.Activities == "" {
		return ""
	}
	activities, err := crm.Parse(p.Activities)
	if err != nil {
		s.logger.Warn("ignoring unreadable CRM activities",
			slog.String("participant", p.Email),
			slog.Any("error", err))
		return ""
	}
	return crm.Summary(activities, activityLines)
}

// logReply writes the reply log row. A sent row is what stops the same
// trigger message from being answered twice.
func (s *replyService) logReply(ctx context.Context, threadID, triggerID string, decision decider.ReplyDecision, res sender.Result, subject string, sendErr error) {
	replyTo := decision.ReplyTo
	entry := &models.ReplyLog{
		ThreadID:         threadID,
		TriggerMessageID: triggerID,
		ReplyToMessageID: replyTo.MessageIDHeader,
		Recipient:        decision.PrimaryRecipient,
		CCList:           models.JoinAddrs(decision.CCList),
		Reason:           string(decision.Reason),
		Subject:          subject,
		Note:             crm.ReplyNote(replyTo.From, replyTo.Subject, replyTo.Body),
		TrackingID:       res.TrackingID,
		Status:           models.ReplyStatusSent,
	}
	if decision.Participant != nil {
		entry.ParticipantEmail = decision.Participant.EmailNormalized
	}
	if sendErr != nil {
		entry.Status = models.ReplyStatusFailed
		entry.Error = sendErr.Error()
	}

	if err := s.replyLog.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write reply log",
			slog.String("thread_id", entry.ThreadID),
			slog.String("trigger_message_id", entry.TriggerMessageID),
			slog.Any("error", err))
	}
}

func (s *replyService) notify(decision decider.ReplyDecision, trigger *decider.Message, threadID, trackingID string, err error) {
	if s.notifier == nil {
		return
	}
	payload := &websocket.SendPayload{
		ThreadID:   threadID,
		Recipient:  decision.PrimaryRecipient,
		CC:         decision.CCList,
		Subject:    composer.ReplySubject(trigger.Subject),
		Reason:     string(decision.Reason),
		TrackingID: trackingID,
	}
	eventType := websocket.MessageTypeReplySent
	if err != nil {
		eventType = websocket.MessageTypeReplyFailed
		payload.Error = err.Error()
	}
	s.notifier.Broadcast(s.config.Campaign, eventType, payload)
}

// WatchList converts participants into the decider's watched set, keyed by
// normalized email. Participants without a usable email are dropped.
func WatchList(participants []models.Participant) ([]decider.WatchedParticipant, map[string]models.Participant) {
	watched := make([]decider.WatchedParticipant, 0, len(participants))
	byEmail := make(map[string]models.Participant, len(participants))
	for _, p := range participants {
		email := decider.NormalizeAddress(p.Email)
		if email == "" {
			continue
		}
		watched = append(watched, decider.WatchedParticipant{
			EmailNormalized: email,
			DisplayName:     p.DisplayName,
			Metadata:        p.Metadata,
		})
		byEmail[email] = p
	}
	return watched, byEmail
}

func failed(result ThreadResult, err error) ThreadResult {
	result.Status = ThreadFailed
	result.Error = err.Error()
	return result
}
