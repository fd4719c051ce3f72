package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/welldanyogia/webrana-replypilot/internal/models"
	"gorm.io/gorm"
)

// ParticipantFilter narrows participant listings
type ParticipantFilter struct {
	Campaign   string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// ParticipantRepository defines the interface for participant data access
type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	GetByID(ctx context.Context, id uint) (*models.Participant, error)
	GetByEmail(ctx context.Context, campaign, email string) (*models.Participant, error)
	List(ctx context.Context, filter ParticipantFilter) ([]models.Participant, int64, error)
	ListActive(ctx context.Context, campaign string) ([]models.Participant, error)
	Update(ctx context.Context, participant *models.Participant) error
	Delete(ctx context.Context, id uint) error
}

// participantRepository implements ParticipantRepository using GORM
type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository creates a new ParticipantRepository instance
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

// Create creates a new participant
func (r *participantRepository) Create(ctx context.Context, participant *models.Participant) error {
	result := r.db.WithContext(ctx).Create(participant)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to create participant: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a participant by its ID
func (r *participantRepository) GetByID(ctx context.Context, id uint) (*models.Participant, error) {
	var participant models.Participant
	result := r.db.WithContext(ctx).First(&participant, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant by ID: %w", result.Error)
	}
	return &participant, nil
}

// GetByEmail retrieves a participant of a campaign by normalized email
func (r *participantRepository) GetByEmail(ctx context.Context, campaign, email string) (*models.Participant, error) {
	var participant models.Participant
	result := r.db.WithContext(ctx).Where("campaign = ? AND email = ?", campaign, email).First(&participant)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get participant by email: %w", result.Error)
	}
	return &participant, nil
}

// List returns participants matching filter with the total match count
func (r *participantRepository) List(ctx context.Context, filter ParticipantFilter) ([]models.Participant, int64, error) {
	scoped := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Participant{})
		if filter.Campaign != "" {
			q = q.Where("campaign = ?", filter.Campaign)
		}
		if filter.ActiveOnly {
			q = q.Where("active = ?", true)
		}
		return q
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count participants: %w", err)
	}

	var participants []models.Participant
	query := scoped()
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	if err := query.Order("id ASC").Find(&participants).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list participants: %w", err)
	}
	return participants, total, nil
}

// ListActive returns every active participant, optionally limited to one campaign
func (r *participantRepository) ListActive(ctx context.Context, campaign string) ([]models.Participant, error) {
	participants, _, err := r.List(ctx, ParticipantFilter{Campaign: campaign, ActiveOnly: true})
	return participants, err
}

// Update saves all fields of an existing participant
func (r *participantRepository) Update(ctx context.Context, participant *models.Participant) error {
	if participant.ID == 0 {
		return ErrInvalidInput
	}
	result := r.db.WithContext(ctx).Save(participant)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to update participant: %w", result.Error)
	}
	return nil
}

// Delete deletes a participant by its ID
func (r *participantRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Participant{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete participant: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
