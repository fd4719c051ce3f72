package models

import (
	"time"
)

// Participant is a campaign contact eligible for automated outreach and replies.
type Participant struct {
	ID             uint              `gorm:"primaryKey" json:"id"`
	Email          string            `gorm:"not null;size:255;uniqueIndex:idx_participant_campaign_email" json:"email"`
	Campaign       string            `gorm:"not null;size:255;uniqueIndex:idx_participant_campaign_email" json:"campaign"`
	DisplayName    string            `gorm:"size:255" json:"display_name,omitempty"`
	Active         bool              `gorm:"not null" json:"active"`
	Metadata       map[string]string `gorm:"serializer:json;type:text" json:"metadata,omitempty"`
	Activities     string            `gorm:"type:text" json:"activities,omitempty"`
	LastActivityAt *time.Time        `json:"last_activity_at,omitempty"`
	CreatedAt      time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Participant
func (Participant) TableName() string {
	return "participants"
}
