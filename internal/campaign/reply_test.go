package campaign_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/webrana-replypilot/internal/campaign"
	"github.com/welldanyogia/webrana-replypilot/internal/composer"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	apperrors "github.com/welldanyogia/webrana-replypilot/internal/errors"
	"github.com/welldanyogia/webrana-replypilot/internal/mocks"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/sender"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
)

const (
	operator      = "jake@co.com"
	replyCampaign = "AI Email Replies"
)

type ReplyServiceSuite struct {
	suite.Suite
	gateway      *mocks.MockGateway
	participants *mocks.MockParticipantRepository
	replyLog     *mocks.MockReplyLogRepository
	sender       *mocks.MockSender
	notifier     *mocks.MockNotifier
	generator    composer.Generator
	now          time.Time
}

func (s *ReplyServiceSuite) SetupTest() {
	s.gateway = new(mocks.MockGateway)
	s.participants = new(mocks.MockParticipantRepository)
	s.replyLog = new(mocks.MockReplyLogRepository)
	s.sender = new(mocks.MockSender)
	s.notifier = new(mocks.MockNotifier)
	s.generator = composer.StaticGenerator{Text: "Tuesday at 10 works. Talk soon."}
	s.now = time.Now().UTC()
}

func (s *ReplyServiceSuite) service() campaign.ReplyService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return campaign.NewReplyService(campaign.ReplyDeps{
		Gateway:      s.gateway,
		Participants: s.participants,
		ReplyLog:     s.replyLog,
		Composer:     composer.New(s.generator, "Jake", logger),
		Sender:       s.sender,
		Notifier:     s.notifier,
		Logger:       logger,
	}, campaign.ReplyConfig{
		OperatorAddress: operator,
		OperatorName:    "Jake",
		Campaign:        replyCampaign,
		Cooldown:        27 * time.Hour,
		Lookback:        72 * time.Hour,
	})
}

// danaThread is an operator outreach answered by a watched participant, who
// copied her boss.
func (s *ReplyServiceSuite) danaThread() []decider.Message {
	return []decider.Message{
		{
			ID: "m1", ThreadID: "t-dana", From: operator, To: []string{"dana@cust.com"},
			Subject: "Pricing", Body: "Would you like to talk?",
			Timestamp: s.now.Add(-48 * time.Hour), Location: decider.LocationSent,
			MessageIDHeader: "<m1@co.com>",
		},
		{
			ID: "m2", ThreadID: "t-dana", From: "dana@cust.com", To: []string{operator},
			CC:      []string{"boss@cust.com"},
			Subject: "Re: Pricing", Body: "Sure, next week?",
			Timestamp: s.now.Add(-2 * time.Hour), Location: decider.LocationInbox,
			MessageIDHeader: "<m2@cust.com>", References: []string{"<m1@co.com>"},
		},
	}
}

func (s *ReplyServiceSuite) watchDana() {
	s.participants.On("ListActive", mock.Anything, "").Return([]models.Participant{
		{ID: 1, Email: "Dana@Cust.com", DisplayName: "Dana", Campaign: "spring", Active: true,
			Activities: `[{"subject":"Demo call","type":"call","date":"2025-02-01"}]`},
	}, nil)
}

func (s *ReplyServiceSuite) TestRun_RepliesToWatchedParticipant() {
	thread := s.danaThread()
	s.gateway.On("ListInboxMessages", mock.Anything, mock.Anything).Return(thread[1:], nil)
	s.gateway.On("ListThreadMessages", mock.Anything, "t-dana").Return(thread, nil)
	s.watchDana()
	s.replyLog.On("HasSent", mock.Anything, "t-dana", "m2").Return(false, nil)

	var sent sender.Outgoing
	s.sender.On("Send", mock.Anything, mock.AnythingOfType("sender.Outgoing")).
		Run(func(args mock.Arguments) { sent = args.Get(1).(sender.Outgoing) }).
		Return(sender.Result{MessageID: "<r1@co.com>", TrackingID: "trk-1", Status: sender.StatusSent}, nil)

	var logged *models.ReplyLog
	s.replyLog.On("Create", mock.Anything, mock.AnythingOfType("*models.ReplyLog")).
		Run(func(args mock.Arguments) { logged = args.Get(1).(*models.ReplyLog) }).
		Return(nil)
	s.notifier.On("Broadcast", replyCampaign, websocket.MessageTypeReplySent, mock.AnythingOfType("*websocket.SendPayload")).Return()

	results, err := s.service().Run(context.Background())

	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(campaign.ThreadReplied, results[0].Status)
	s.Equal("trk-1", results[0].TrackingID)
	s.Equal(decider.ReasonNeedsReply, results[0].Decision.Reason)

	s.Equal(operator, sent.From)
	s.Equal("dana@cust.com", sent.To)
	s.Equal([]string{"boss@cust.com"}, sent.CC)
	s.Equal("Re: Pricing", sent.Subject)
	s.Equal("<m2@cust.com>", sent.InReplyTo)
	s.Equal([]string{"<m1@co.com>"}, sent.References)
	s.Equal("t-dana", sent.ThreadID)
	s.Equal(replyCampaign, sent.Campaign)
	s.Contains(sent.Text, "Tuesday at 10")
	s.Contains(sent.HTML, "Tuesday at 10")

	s.Require().NotNil(logged)
	s.Equal(models.ReplyStatusSent, logged.Status)
	s.Equal("m2", logged.TriggerMessageID)
	s.Equal("<m2@cust.com>", logged.ReplyToMessageID)
	s.Equal("boss@cust.com", logged.CCList)
	s.Equal("dana@cust.com", logged.ParticipantEmail)
	s.Contains(logged.Note, "Email Reply from dana@cust.com")
	s.Equal("trk-1", logged.TrackingID)

	s.sender.AssertExpectations(s.T())
	s.notifier.AssertExpectations(s.T())
}

func (s *ReplyServiceSuite) TestRun_SkipsUnwatchedThread() {
	thread := s.danaThread()
	s.gateway.On("ListInboxMessages", mock.Anything, mock.Anything).Return(thread[1:], nil)
	s.gateway.On("ListThreadMessages", mock.Anything, "t-dana").Return(thread, nil)
	s.participants.On("ListActive", mock.Anything, "").Return([]models.Participant{}, nil)

	results, err := s.service().Run(context.Background())

	s.Require().NoError(err)
	s.Require().Len(results, 1)
	s.Equal(campaign.ThreadSkipped, results[0].Status)
	s.Equal(decider.ReasonNotWatched, results[0].Decision.Reason)
	s.sender.AssertNotCalled(s.T(), "Send", mock.Anything, mock.Anything)
}

func (s *ReplyServiceSuite) TestRun_SkipsAlreadyAnsweredMessage() {
	thread := s.danaThread()
	s.gateway.On("ListInboxMessages", mock.Anything, mock.Anything).Return(thread[1:], nil)
	s.gateway.On("ListThreadMessages", mock.Anything, "t-dana").Return(thread, nil)
	s.watchDana()
	s.replyLog.On("HasSent", mock.Anything, "t-dana", "m2").Return(true, nil)

	results, err := s.service().Run(context.Background())

	s.Require().NoError(err)
	s.Equal(campaign.ThreadAlreadyReplied, results[0].Status)
	s.sender.AssertNotCalled(s.T(), "Send", mock.Anything, mock.Anything)
}

func (s *ReplyServiceSuite) TestRun_GenerationFailureSendsNothing() {
	s.generator = composer.StaticGenerator{Err: errors.New("model overloaded")}
	thread := s.danaThread()
	s.gateway.On("ListInboxMessages", mock.Anything, mock.Anything).Return(thread[1:], nil)
	s.gateway.On("ListThreadMessages", mock.Anything, "t-dana").Return(thread, nil)
	s.watchDana()
	s.replyLog.On("HasSent", mock.Anything, "t-dana", "m2").Return(false, nil)
	s.replyLog.On("Create", mock.Anything, mock.MatchedBy(func(e *models.ReplyLog) bool {
		return e.Status == models.ReplyStatusFailed && e.Error != ""
	})).Return(nil)
	s.notifier.On("Broadcast", replyCampaign, websocket.MessageTypeReplyFailed, mock.Anything).Return()

	results, err := s.service().Run(context.Background())

	s.Require().NoError(err)
	s.Equal(campaign.ThreadFailed, results[0].Status)
	s.Contains(results[0].Error, "model overloaded")
	s.sender.AssertNotCalled(s.T(), "Send", mock.Anything, mock.Anything)
	s.replyLog.AssertExpectations(s.T())
}

func (s *ReplyServiceSuite) TestRun_SendFailureIsRecorded() {
	thread := s.danaThread()
	s.gateway.On("ListInboxMessages", mock.Anything, mock.Anything).Return(thread[1:], nil)
	s.gateway.On("ListThreadMessages", mock.Anything, "t-dana").Return(thread, nil)
	s.watchDana()
	s.replyLog.On("HasSent", mock.Anything, "t-dana", "m2").Return(false, nil)
	sendErr := apperrors.Wrap(apperrors.ErrSendFailed, "smtp")
	s.sender.On("Send", mock.Anything, mock.Anything).Return(sender.Result{Status: sender.StatusFailed}, sendErr)
	s.replyLog.On("Create", mock.Anything, mock.MatchedBy(func(e *models.ReplyLog) bool {
		return e.Status == models.ReplyStatusFailed
	})).Return(nil)
	s.notifier.On("Broadcast", replyCampaign, websocket.MessageTypeReplyFailed, mock.Anything).Return()

	results, err := s.service().Run(context.Background())

	s.Require().NoError(err)
	s.Equal(campaign.ThreadFailed, results[0].Status)
	s.sender.AssertNumberOfCalls(s.T(), "Send", 1)
	s.replyLog.AssertExpectations(s.T())
	s.notifier.AssertExpectations(s.T())
}

func (s *ReplyServiceSuite) TestRun_ThreadFetchFailureDoesNotStopBatch() {
	thread := s.danaThread()
	other := decider.Message{ID: "x1", ThreadID: "t-other", From: "someone@else.com", To: []string{operator},
		Timestamp: s.now.Add(-time.Hour), Location: decider.LocationInbox}
	s.gateway.On("ListInboxMessages", mock.Anything, mock.Anything).Return([]decider.Message{other, thread[1]}, nil)
	s.gateway.On("ListThreadMessages", mock.Anything, "t-other").Return(nil, apperrors.ErrGatewayUnavailable)
	s.gateway.On("ListThreadMessages", mock.Anything, "t-dana").Return(thread, nil)
	s.watchDana()
	s.replyLog.On("HasSent", mock.Anything, "t-dana", "m2").Return(false, nil)
	s.sender.On("Send", mock.Anything, mock.Anything).Return(sender.Result{TrackingID: "trk-2", Status: sender.StatusSent}, nil)
	s.replyLog.On("Create", mock.Anything, mock.Anything).Return(nil)
	s.notifier.On("Broadcast", mock.Anything, mock.Anything, mock.Anything).Return()

	results, err := s.service().Run(context.Background())

	s.Require().NoError(err)
	s.Require().Len(results, 2)
	s.Equal("t-other", results[0].ThreadID)
	s.Equal(campaign.ThreadFailed, results[0].Status)
	s.Equal(campaign.ThreadReplied, results[1].Status)
}

func (s *ReplyServiceSuite) TestRun_StaleOwnReplyNudgesOriginalAddressee() {
	outreach := decider.Message{
		ID: "m1", ThreadID: "t-quiet", From: operator, To: []string{"lee@cust.com"},
		Subject: "Intro", Timestamp: s.now.Add(-30 * time.Hour), Location: decider.LocationSent,
		MessageIDHeader: "<m1@co.com>",
	}
	s.gateway.On("ListInboxMessages", mock.Anything, mock.Anything).Return([]decider.Message{outreach}, nil)
	s.gateway.On("ListThreadMessages", mock.Anything, "t-quiet").Return([]decider.Message{outreach}, nil)
	s.participants.On("ListActive", mock.Anything, "").Return([]models.Participant{}, nil)
	s.replyLog.On("HasSent", mock.Anything, "t-quiet", "m1").Return(false, nil)
	s.sender.On("Send", mock.Anything, mock.MatchedBy(func(out sender.Outgoing) bool {
		return out.To == "lee@cust.com" && out.InReplyTo == "<m1@co.com>" && out.Subject == "Re: Intro"
	})).Return(sender.Result{TrackingID: "trk-3", Status: sender.StatusSent}, nil)
	s.replyLog.On("Create", mock.Anything, mock.MatchedBy(func(e *models.ReplyLog) bool {
		return e.Reason == string(decider.ReasonStaleOwnReply) && e.ParticipantEmail == ""
	})).Return(nil)
	s.notifier.On("Broadcast", replyCampaign, websocket.MessageTypeReplySent, mock.Anything).Return()

	results, err := s.service().Run(context.Background())

	s.Require().NoError(err)
	s.Equal(campaign.ThreadReplied, results[0].Status)
	s.Equal(decider.ReasonStaleOwnReply, results[0].Decision.Reason)
	s.sender.AssertExpectations(s.T())
	s.replyLog.AssertExpectations(s.T())
}

func (s *ReplyServiceSuite) TestRun_InboxFailure() {
	s.gateway.On("ListInboxMessages", mock.Anything, mock.Anything).Return(nil, apperrors.ErrGatewayUnavailable)

	results, err := s.service().Run(context.Background())

	s.ErrorIs(err, apperrors.ErrGatewayUnavailable)
	s.Nil(results)
}

func (s *ReplyServiceSuite) TestRun_CancelledContext() {
	thread := s.danaThread()
	s.gateway.On("ListInboxMessages", mock.Anything, mock.Anything).Return(thread[1:], nil)
	s.watchDana()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := s.service().Run(ctx)

	s.ErrorIs(err, context.Canceled)
	s.Empty(results)
	s.gateway.AssertNotCalled(s.T(), "ListThreadMessages", mock.Anything, mock.Anything)
}

func TestReplyServiceSuite(t *testing.T) {
	suite.Run(t, new(ReplyServiceSuite))
}
