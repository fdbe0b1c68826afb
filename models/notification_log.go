package models

import (
	"encoding/json"
	"time"
)

// Notification log statuses. A row never regresses from SENT.
const (
	LogStatusPending = "PENDING"
	LogStatusSent    = "SENT"
	LogStatusFailed  = "FAILED"
)

// BroadcastKeyOnce is the broadcast key for one-shot event automations.
// Group broadcasts use a calendar-day cycle marker instead so the same
// recipient+step can receive a new email on a later cycle.
const BroadcastKeyOnce = "once"

// NotificationLog is the idempotency ledger. The composite identity
// (user, automation, step, broadcast key) is globally unique; a second
// write for the same identity updates the existing row.
type NotificationLog struct {
	LogID          int             `gorm:"primaryKey;column:log_id" json:"log_id"`
	UserID         int             `gorm:"column:user_id;uniqueIndex:uniq_notification_identity" json:"user_id"`
	AutomationID   int             `gorm:"column:automation_id;uniqueIndex:uniq_notification_identity" json:"automation_id"`
	StepID         int             `gorm:"column:step_id;uniqueIndex:uniq_notification_identity" json:"step_id"`
	BroadcastKey   string          `gorm:"column:broadcast_key;size:64;uniqueIndex:uniq_notification_identity" json:"broadcast_key"`
	Status         string          `gorm:"column:status" json:"status"` // PENDING|SENT|FAILED
	Subject        string          `gorm:"column:subject" json:"subject"`
	RecipientEmail string          `gorm:"column:recipient_email" json:"recipient_email"`
	SentAt         *time.Time      `gorm:"column:sent_at" json:"sent_at,omitempty"`
	ErrorMessage   *string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	Metadata       json.RawMessage `gorm:"column:metadata;type:json" json:"metadata,omitempty"`
	CreateAt       time.Time       `gorm:"column:create_at" json:"create_at"`
	UpdateAt       *time.Time      `gorm:"column:update_at" json:"update_at,omitempty"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}
