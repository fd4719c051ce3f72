package models

import (
	"time"
)

// Reply log statuses
const (
	ReplyStatusSent   = "sent"
	ReplyStatusFailed = "failed"
)

// ReplyLog records each automated reply attempt. A sent row for a
// trigger message means that message has been answered.
type ReplyLog struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ThreadID         string    `gorm:"not null;size:255;index" json:"thread_id"`
	TriggerMessageID string    `gorm:"not null;size:255;index" json:"trigger_message_id"`
	ReplyToMessageID string    `gorm:"size:255" json:"reply_to_message_id,omitempty"`
	Recipient        string    `gorm:"not null;size:255" json:"recipient"`
	CCList           string    `gorm:"type:text" json:"cc_list,omitempty"`
	Reason           string    `gorm:"not null;size:32" json:"reason"`
	ParticipantEmail string    `gorm:"size:255;index" json:"participant_email,omitempty"`
	Subject          string    `json:"subject,omitempty"`
	Note             string    `gorm:"type:text" json:"note,omitempty"`
	TrackingID       string    `gorm:"size:64" json:"tracking_id,omitempty"`
	Status           string    `gorm:"not null;size:16" json:"status"`
	Error            string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for ReplyLog
func (ReplyLog) TableName() string {
	return "reply_log"
}
