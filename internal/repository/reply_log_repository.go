package repository

import (
	"context"
	"fmt"

	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"gorm.io/gorm"
)

// ReplyLogRepository defines the interface for reply log access
type ReplyLogRepository interface {
	Create(ctx context.Context, entry *models.ReplyLog) error
	HasSent(ctx context.Context, threadID, triggerMessageID string) (bool, error)
	ListByThread(ctx context.Context, threadID string) ([]models.ReplyLog, error)
	ListRecent(ctx context.Context, limit int) ([]models.ReplyLog, error)
}

type replyLogRepository struct {
	db *gorm.DB
}

// NewReplyLogRepository creates a new ReplyLogRepository instance
func NewReplyLogRepository(db *gorm.DB) ReplyLogRepository {
	return &replyLogRepository{db: db}
}

func (r *replyLogRepository) Create(ctx context.Context, entry *models.ReplyLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to create reply log: %w", err)
	}
	return nil
}

// HasSent reports whether a reply triggered by the given message was already sent
func (r *replyLogRepository) HasSent(ctx context.Context, threadID, triggerMessageID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReplyLog{}).
		Where("thread_id = ? AND trigger_message_id = ? AND status = ?", threadID, triggerMessageID, models.ReplyStatusSent).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check reply log: %w", err)
	}
	return count > 0, nil
}

func (r *replyLogRepository) ListByThread(ctx context.Context, threadID string) ([]models.ReplyLog, error) {
	var entries []models.ReplyLog
	if err := r.db.WithContext(ctx).Where("thread_id = ?", threadID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list reply log: %w", err)
	}
	return entries, nil
}

func (r *replyLogRepository) ListRecent(ctx context.Context, limit int) ([]models.ReplyLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.ReplyLog
	if err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to list reply log: %w", err)
	}
	return entries, nil
}
