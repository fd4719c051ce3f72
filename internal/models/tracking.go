package models

import (
	"time"
)

// TrackedEmail is one sent email registered for open tracking.
type TrackedEmail struct {
	ID             uint       `gorm:"primaryKey" json:"-"`
	TrackingID     string     `gorm:"uniqueIndex;not null;size:64" json:"tracking_id"`
	RecipientEmail string     `gorm:"not null;size:255" json:"recipient_email"`
	SenderEmail    string     `gorm:"size:255" json:"sender_email,omitempty"`
	Subject        string     `json:"subject,omitempty"`
	CampaignName   string     `gorm:"size:255;index" json:"campaign_name,omitempty"`
	ThreadID       string     `gorm:"size:255;index" json:"thread_id,omitempty"`
	SentAt         time.Time  `gorm:"not null;index" json:"sent_at"`
	OpenedAt       *time.Time `json:"opened_at,omitempty"`
	OpenCount      int        `gorm:"not null;default:0" json:"open_count"`
	LastOpenedAt   *time.Time `json:"last_opened_at,omitempty"`
	UserAgent      string     `gorm:"size:512" json:"user_agent,omitempty"`
	IPAddress      string     `gorm:"size:64" json:"ip_address,omitempty"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"-"`

	Opens []EmailOpen `gorm:"foreignKey:TrackingID;references:TrackingID;constraint:OnDelete:CASCADE" json:"opens,omitempty"`
}

// TableName returns the table name for TrackedEmail
func (TrackedEmail) TableName() string {
	return "email_tracking"
}

// EmailOpen is a single recorded open of a tracked email.
type EmailOpen struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	TrackingID string    `gorm:"not null;size:64;index" json:"tracking_id"`
	OpenedAt   time.Time `gorm:"not null" json:"opened_at"`
	UserAgent  string    `gorm:"size:512" json:"user_agent,omitempty"`
	IPAddress  string    `gorm:"size:64" json:"ip_address,omitempty"`
	Referer    string    `gorm:"size:1024" json:"referer,omitempty"`
}

// TableName returns the table name for EmailOpen
func (EmailOpen) TableName() string {
	return "email_opens"
}

// CampaignPerformance aggregates send and open counters per campaign.
type CampaignPerformance struct {
	CampaignName string    `gorm:"primaryKey;size:255" json:"campaign_name"`
	TotalSent    int       `gorm:"not null;default:0" json:"total_sent"`
	TotalOpened  int       `gorm:"not null;default:0" json:"total_opened"`
	UniqueOpens  int       `gorm:"not null;default:0" json:"unique_opens"`
	OpenRate     float64   `gorm:"not null;default:0" json:"open_rate"`
	LastUpdated  time.Time `json:"last_updated"`
}

// TableName returns the table name for CampaignPerformance
func (CampaignPerformance) TableName() string {
	return "campaign_performance"
}

// TrackingStats summarizes tracked emails over a time window
type TrackingStats struct {
	TotalSent   int64   `json:"total_sent"`
	TotalOpened int64   `json:"total_opened"`
	OpenRate    float64 `json:"open_rate"`
	TotalOpens  int64   `json:"total_opens"`
}
