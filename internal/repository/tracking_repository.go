package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TrackingRepository defines the interface for open-tracking persistence
type TrackingRepository interface {
	RecordSent(ctx context.Context, email *models.TrackedEmail) error
	RecordOpen(ctx context.Context, open *models.EmailOpen, instantWindow time.Duration) (bool, error)
	GetByTrackingID(ctx context.Context, trackingID string) (*models.TrackedEmail, error)
	Stats(ctx context.Context, since time.Time, campaign string) (*models.TrackingStats, error)
	ListCampaigns(ctx context.Context) ([]models.CampaignPerformance, error)
}

type trackingRepository struct {
	db *gorm.DB
}

// NewTrackingRepository creates a new TrackingRepository instance
func NewTrackingRepository(db *gorm.DB) TrackingRepository {
	return &trackingRepository{db: db}
}

// RecordSent registers a sent email and bumps its campaign's sent counter
func (r *trackingRepository) RecordSent(ctx context.Context, email *models.TrackedEmail) error {
	if email.TrackingID == "" || email.RecipientEmail == "" {
		return ErrInvalidInput
	}
	if email.SentAt.IsZero() {
		email.SentAt = time.Now().UTC()
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(email).Error; err != nil {
			if isDuplicateKeyError(err) {
				return ErrDuplicateEntry
			}
			return fmt.Errorf("failed to create tracked email: %w", err)
		}

		if email.CampaignName == "" {
			return nil
		}

		perf := models.CampaignPerformance{
			CampaignName: email.CampaignName,
			TotalSent:    1,
			LastUpdated:  email.SentAt,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "campaign_name"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"total_sent":   gorm.Expr("campaign_performance.total_sent + 1"),
				"last_updated": email.SentAt,
			}),
		}).Create(&perf).Error
		if err != nil {
			return fmt.Errorf("failed to update campaign performance: %w", err)
		}
		return nil
	})
}

// RecordOpen stores an open event. Opens arriving within instantWindow of the
// send are image prefetches and are ignored; the bool reports whether the open
// was counted. An unknown tracking id returns ErrTrackingNotFound.
func (r *trackingRepository) RecordOpen(ctx context.Context, open *models.EmailOpen, instantWindow time.Duration) (bool, error) {
	if open.TrackingID == "" {
		return false, ErrInvalidInput
	}
	if open.OpenedAt.IsZero() {
		open.OpenedAt = time.Now().UTC()
	}

	counted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var email models.TrackedEmail
		if err := tx.Where("tracking_id = ?", open.TrackingID).First(&email).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTrackingNotFound
			}
			return fmt.Errorf("failed to get tracked email: %w", err)
		}

		if open.OpenedAt.Sub(email.SentAt) < instantWindow {
			return nil
		}

		if err := tx.Create(open).Error; err != nil {
			return fmt.Errorf("failed to create email open: %w", err)
		}

		firstOpen := email.OpenCount == 0
		updates := map[string]interface{}{
			"open_count":     gorm.Expr("open_count + 1"),
			"last_opened_at": open.OpenedAt,
		}
		if firstOpen {
			updates["opened_at"] = open.OpenedAt
			updates["user_agent"] = open.UserAgent
			updates["ip_address"] = open.IPAddress
		}
		if err := tx.Model(&models.TrackedEmail{}).Where("id = ?", email.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update tracked email: %w", err)
		}

		if email.CampaignName != "" {
			if err := bumpCampaignOpens(tx, email.CampaignName, firstOpen, open.OpenedAt); err != nil {
				return err
			}
		}

		counted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return counted, nil
}

func bumpCampaignOpens(tx *gorm.DB, campaign string, unique bool, at time.Time) error {
	updates := map[string]interface{}{
		"total_opened": gorm.Expr("total_opened + 1"),
		"last_updated": at,
	}
	if unique {
		updates["unique_opens"] = gorm.Expr("unique_opens + 1")
	}
	if err := tx.Model(&models.CampaignPerformance{}).Where("campaign_name = ?", campaign).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update campaign opens: %w", err)
	}

	var perf models.CampaignPerformance
	if err := tx.Where("campaign_name = ?", campaign).First(&perf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get campaign performance: %w", err)
	}
	rate := percent(int64(perf.UniqueOpens), int64(perf.TotalSent))
	if err := tx.Model(&models.CampaignPerformance{}).Where("campaign_name = ?", campaign).Update("open_rate", rate).Error; err != nil {
		return fmt.Errorf("failed to update open rate: %w", err)
	}
	return nil
}

// GetByTrackingID returns a tracked email with its opens, newest open first
func (r *trackingRepository) GetByTrackingID(ctx context.Context, trackingID string) (*models.TrackedEmail, error) {
	var email models.TrackedEmail
	result := r.db.WithContext(ctx).
		Preload("Opens", func(db *gorm.DB) *gorm.DB { return db.Order("opened_at DESC") }).
		Where("tracking_id = ?", trackingID).
		First(&email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTrackingNotFound
		}
		return nil, fmt.Errorf("failed to get tracked email: %w", result.Error)
	}
	return &email, nil
}

// Stats summarizes emails sent at or after since. A zero since covers all
// time and an empty campaign covers every campaign.
func (r *trackingRepository) Stats(ctx context.Context, since time.Time, campaign string) (*models.TrackingStats, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.TrackedEmail{})
		if !since.IsZero() {
			q = q.Where("sent_at >= ?", since)
		}
		if campaign != "" {
			q = q.Where("campaign_name = ?", campaign)
		}
		return q
	}

	stats := &models.TrackingStats{}
	if err := scoped().Count(&stats.TotalSent).Error; err != nil {
		return nil, fmt.Errorf("failed to count sent emails: %w", err)
	}
	if err := scoped().Where("opened_at IS NOT NULL").Count(&stats.TotalOpened).Error; err != nil {
		return nil, fmt.Errorf("failed to count opened emails: %w", err)
	}
	if err := scoped().Select("COALESCE(SUM(open_count), 0)").Scan(&stats.TotalOpens).Error; err != nil {
		return nil, fmt.Errorf("failed to sum opens: %w", err)
	}
	stats.OpenRate = percent(stats.TotalOpened, stats.TotalSent)
	return stats, nil
}

// ListCampaigns returns campaign performance, busiest campaign first
func (r *trackingRepository) ListCampaigns(ctx context.Context) ([]models.CampaignPerformance, error) {
	var campaigns []models.CampaignPerformance
	if err := r.db.WithContext(ctx).Order("total_sent DESC").Order("campaign_name ASC").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, nil
}

// percent returns part/whole as a percentage rounded to two decimals
func percent(part, whole int64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)*10000/float64(whole)) / 100
}
