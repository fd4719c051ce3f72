package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"github.com/welldanyogia/webrana-replypilot/internal/repository"
)

// MockMessageRepository implements repository.MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Create stores a message
func (m *MockMessageRepository) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// GetByProviderID retrieves a message by its provider identifier
func (m *MockMessageRepository) GetByProviderID(ctx context.Context, providerID string) (*models.Message, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// ListByThread returns every message of a thread
func (m *MockMessageRepository) ListByThread(ctx context.Context, threadID string) ([]models.Message, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// ListByLocationSince returns messages in a location sent at or after since
func (m *MockMessageRepository) ListByLocationSince(ctx context.Context, location string, since time.Time) ([]models.Message, error) {
	args := m.Called(ctx, location, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// FindThreadID resolves a thread from Message-ID headers
func (m *MockMessageRepository) FindThreadID(ctx context.Context, messageIDHeaders []string) (string, error) {
	args := m.Called(ctx, messageIDHeaders)
	return args.String(0), args.Error(1)
}

// Delete removes a message
func (m *MockMessageRepository) Delete(ctx context.Context, providerID string) error {
	args := m.Called(ctx, providerID)
	return args.Error(0)
}

// MockParticipantRepository implements repository.ParticipantRepository
type MockParticipantRepository struct {
	mock.Mock
}

// Create creates a participant
func (m *MockParticipantRepository) Create(ctx context.Context, participant *models.Participant) error {
	args := m.Called(ctx, participant)
	return args.Error(0)
}

// GetByID retrieves a participant by its ID
func (m *MockParticipantRepository) GetByID(ctx context.Context, id uint) (*models.Participant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participant), args.Error(1)
}

// GetByEmail retrieves a participant of a campaign by email
func (m *MockParticipantRepository) GetByEmail(ctx context.Context, campaign, email string) (*models.Participant, error) {
	args := m.Called(ctx, campaign, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Participant), args.Error(1)
}

// List retrieves a page of participants and the total count
func (m *MockParticipantRepository) List(ctx context.Context, filter repository.ParticipantFilter) ([]models.Participant, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Participant), args.Get(1).(int64), args.Error(2)
}

// ListActive retrieves active participants of a campaign
func (m *MockParticipantRepository) ListActive(ctx context.Context, campaign string) ([]models.Participant, error) {
	args := m.Called(ctx, campaign)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Participant), args.Error(1)
}

// Update updates a participant
func (m *MockParticipantRepository) Update(ctx context.Context, participant *models.Participant) error {
	args := m.Called(ctx, participant)
	return args.Error(0)
}

// Delete deletes a participant by its ID
func (m *MockParticipantRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockReplyLogRepository implements repository.ReplyLogRepository
type MockReplyLogRepository struct {
	mock.Mock
}

// Create records a reply attempt
func (m *MockReplyLogRepository) Create(ctx context.Context, entry *models.ReplyLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

// HasSent reports whether a reply was already sent for a trigger message
func (m *MockReplyLogRepository) HasSent(ctx context.Context, threadID, triggerMessageID string) (bool, error) {
	args := m.Called(ctx, threadID, triggerMessageID)
	return args.Bool(0), args.Error(1)
}

// ListByThread returns the reply log of a thread
func (m *MockReplyLogRepository) ListByThread(ctx context.Context, threadID string) ([]models.ReplyLog, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReplyLog), args.Error(1)
}

// ListRecent returns the latest reply log entries
func (m *MockReplyLogRepository) ListRecent(ctx context.Context, limit int) ([]models.ReplyLog, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ReplyLog), args.Error(1)
}

// MockTrackingRepository implements repository.TrackingRepository
type MockTrackingRepository struct {
	mock.Mock
}

// RecordSent registers a sent email
func (m *MockTrackingRepository) RecordSent(ctx context.Context, email *models.TrackedEmail) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// RecordOpen stores an open event
func (m *MockTrackingRepository) RecordOpen(ctx context.Context, open *models.EmailOpen, instantWindow time.Duration) (bool, error) {
	args := m.Called(ctx, open, instantWindow)
	return args.Bool(0), args.Error(1)
}

// GetByTrackingID returns a tracked email with its opens
func (m *MockTrackingRepository) GetByTrackingID(ctx context.Context, trackingID string) (*models.TrackedEmail, error) {
	args := m.Called(ctx, trackingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrackedEmail), args.Error(1)
}

// Stats summarizes sent and opened emails
func (m *MockTrackingRepository) Stats(ctx context.Context, since time.Time, campaign string) (*models.TrackingStats, error) {
	args := m.Called(ctx, since, campaign)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrackingStats), args.Error(1)
}

// ListCampaigns returns campaign performance
func (m *MockTrackingRepository) ListCampaigns(ctx context.Context) ([]models.CampaignPerformance, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.CampaignPerformance), args.Error(1)
}
