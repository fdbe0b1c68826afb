package models

import "time"

// Trigger kinds for email automations.
const (
	TriggerKindEvent = "event"
	TriggerKindGroup = "group"
)

// Supported business event types.
const (
	EventUserRegistered           = "user.registered"
	EventCoursePurchased          = "course.purchased"
	EventUserRegisteredNoPurchase = "user.registered.no.purchase"
)

type EmailAutomation struct {
	AutomationID int        `gorm:"primaryKey;column:automation_id" json:"automation_id"`
	Name         string     `gorm:"column:name" json:"name"`
	TriggerKind  string     `gorm:"column:trigger_kind" json:"trigger_kind"` // event|group
	EventType    *string    `gorm:"column:event_type" json:"event_type,omitempty"`
	TargetGroup  *string    `gorm:"column:target_group" json:"target_group,omitempty"`
	IsActive     bool       `gorm:"column:is_active" json:"is_active"`
	CreatedBy    *int       `gorm:"column:created_by" json:"created_by,omitempty"`
	CreateAt     time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`

	// Relations
	Steps []AutomationStep `gorm:"foreignKey:AutomationID" json:"steps,omitempty"`
}

// AutomationStep is owned by exactly one automation. Dispatch time is either
// a relative delay in minutes from the triggering moment or an absolute
// scheduled timestamp, never both.
type AutomationStep struct {
	StepID          int        `gorm:"primaryKey;column:step_id" json:"step_id"`
	AutomationID    int        `gorm:"column:automation_id;index" json:"automation_id"`
	StepOrder       int        `gorm:"column:step_order" json:"step_order"`
	DelayMinutes    *int       `gorm:"column:delay_minutes" json:"delay_minutes,omitempty"`
	ScheduledAt     *time.Time `gorm:"column:scheduled_at;index" json:"scheduled_at,omitempty"`
	SubjectTemplate string     `gorm:"column:subject_template;type:text" json:"subject_template"`
	BodyTemplate    string     `gorm:"column:body_template;type:text" json:"body_template"`
	CreateAt        time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt        *time.Time `gorm:"column:update_at" json:"update_at,omitempty"`
}

// TableName overrides
func (EmailAutomation) TableName() string {
	return "email_automations"
}

func (AutomationStep) TableName() string {
	return "automation_steps"
}
