package models

import (
	"encoding/json"
	"time"
)

// Email job statuses. Dead jobs are kept for operator inspection and
// purged after a retention window.
const (
	JobStatusQueued  = "queued"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusDead    = "dead"
)

// EmailJob is one delayed send unit produced by the dispatcher or the
// scheduler and consumed by the worker. Delivery is at-least-once; the
// notification log enforces at-most-once sends.
type EmailJob struct {
	JobID        int             `gorm:"primaryKey;column:job_id" json:"job_id"`
	UserID       int             `gorm:"column:user_id" json:"user_id"`
	AutomationID int             `gorm:"column:automation_id;index" json:"automation_id"`
	StepID       int             `gorm:"column:step_id" json:"step_id"`
	BroadcastKey string          `gorm:"column:broadcast_key;size:64" json:"broadcast_key"`
	Payload      json.RawMessage `gorm:"column:payload;type:json" json:"payload,omitempty"`
	RunAt        time.Time       `gorm:"column:run_at;index:idx_email_jobs_due" json:"run_at"`
	Status       string          `gorm:"column:status;size:16;index:idx_email_jobs_due" json:"status"`
	Attempts     int             `gorm:"column:attempts" json:"attempts"`
	MaxAttempts  int             `gorm:"column:max_attempts" json:"max_attempts"`
	LastError    *string         `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	ClaimedBy    *string         `gorm:"column:claimed_by;size:64" json:"claimed_by,omitempty"`
	CreateAt     time.Time       `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time      `gorm:"column:update_at" json:"update_at,omitempty"`
}

func (EmailJob) TableName() string {
	return "email_jobs"
}
