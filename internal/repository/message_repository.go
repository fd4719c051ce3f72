package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for stored mail access
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByProviderID(ctx context.Context, providerID string) (*models.Message, error)
	ListByThread(ctx context.Context, threadID string) ([]models.Message, error)
	ListByLocationSince(ctx context.Context, location string, since time.Time) ([]models.Message, error)
	FindThreadID(ctx context.Context, messageIDHeaders []string) (string, error)
	Delete(ctx context.Context, providerID string) error
}

// messageRepository implements MessageRepository using GORM
type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository instance
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// Create stores a message. A second message with the same provider ID is a duplicate.
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ProviderID == "" || message.ThreadID == "" {
		return ErrInvalidInput
	}
	result := r.db.WithContext(ctx).Create(message)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create message: %w", result.Error)
	}
	return nil
}

// GetByProviderID retrieves a message by its provider identifier
func (r *messageRepository) GetByProviderID(ctx context.Context, providerID string) (*models.Message, error) {
	var message models.Message
	result := r.db.WithContext(ctx).Where("provider_id = ?", providerID).First(&message)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message: %w", result.Error)
	}
	return &message, nil
}

// ListByThread returns every message of a thread, oldest first
func (r *messageRepository) ListByThread(ctx context.Context, threadID string) ([]models.Message, error) {
	var messages []models.Message
	result := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("sent_at ASC").Order("provider_id ASC").
		Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list thread messages: %w", result.Error)
	}
	return messages, nil
}

// ListByLocationSince returns messages in a location sent at or after since, oldest first
func (r *messageRepository) ListByLocationSince(ctx context.Context, location string, since time.Time) ([]models.Message, error) {
	var messages []models.Message
	result := r.db.WithContext(ctx).
		Where("location = ? AND sent_at >= ?", location, since).
		Order("sent_at ASC").
		Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list messages: %w", result.Error)
	}
	return messages, nil
}

// FindThreadID returns the thread of the first stored message whose
// Message-ID header is in messageIDHeaders, or ErrNotFound.
func (r *messageRepository) FindThreadID(ctx context.Context, messageIDHeaders []string) (string, error) {
	if len(messageIDHeaders) == 0 {
		return "", ErrNotFound
	}
	var message models.Message
	result := r.db.WithContext(ctx).
		Select("thread_id").
		Where("message_id_header IN ?", messageIDHeaders).
		Order("sent_at ASC").
		First(&message)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to find thread: %w", result.Error)
	}
	return message.ThreadID, nil
}

// Delete removes a message by its provider identifier
func (r *messageRepository) Delete(ctx context.Context, providerID string) error {
	result := r.db.WithContext(ctx).Where("provider_id = ?", providerID).Delete(&models.Message{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
