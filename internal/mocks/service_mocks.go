package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-replypilot/internal/campaign"
	"github.com/welldanyogia/webrana-replypilot/internal/decider"
	"github.com/welldanyogia/webrana-replypilot/internal/sender"
	"github.com/welldanyogia/webrana-replypilot/internal/websocket"
)

// MockArchive implements storage.Archive
type MockArchive struct {
	mock.Mock
}

// Save stores a raw message and returns its relative path
func (m *MockArchive) Save(campaign, trackingID string, raw []byte) (string, error) {
	args := m.Called(campaign, trackingID, raw)
	return args.String(0), args.Error(1)
}

// Get opens an archived message
func (m *MockArchive) Get(filePath string) (io.ReadCloser, error) {
	args := m.Called(filePath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

// Delete removes an archived message
func (m *MockArchive) Delete(filePath string) error {
	args := m.Called(filePath)
	return args.Error(0)
}

// MockSender implements sender.Sender
type MockSender struct {
	mock.Mock
}

// Send delivers a message
func (m *MockSender) Send(ctx context.Context, out sender.Outgoing) (sender.Result, error) {
	args := m.Called(ctx, out)
	return args.Get(0).(sender.Result), args.Error(1)
}

// MockGateway implements mailbox.Gateway
type MockGateway struct {
	mock.Mock
}

// ListThreadMessages returns the messages of a thread
func (m *MockGateway) ListThreadMessages(ctx context.Context, threadID string) ([]decider.Message, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]decider.Message), args.Error(1)
}

// ListInboxMessages returns inbox messages received at or after since
func (m *MockGateway) ListInboxMessages(ctx context.Context, since time.Time) ([]decider.Message, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]decider.Message), args.Error(1)
}

// MockGenerator implements composer.Generator
type MockGenerator struct {
	mock.Mock
}

// Generate returns generated text
func (m *MockGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

// MockNotifier implements campaign.Notifier
type MockNotifier struct {
	mock.Mock
}

// Broadcast publishes a campaign event
func (m *MockNotifier) Broadcast(name string, eventType websocket.MessageType, event interface{}) {
	m.Called(name, eventType, event)
}

// MockReplyService implements campaign.ReplyService
type MockReplyService struct {
	mock.Mock
}

// Run runs a reply batch
func (m *MockReplyService) Run(ctx context.Context) ([]campaign.ThreadResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]campaign.ThreadResult), args.Error(1)
}

// MockOutreachService implements campaign.OutreachService
type MockOutreachService struct {
	mock.Mock
}

// Run runs an outreach batch
func (m *MockOutreachService) Run(ctx context.Context, name string) ([]campaign.OutreachResult, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]campaign.OutreachResult), args.Error(1)
}
