package models

import "time"

// Enrollment records a course acquisition. A user with at least one
// non-deleted enrollment counts as "purchased" for audience resolution.
type Enrollment struct {
	EnrollmentID int        `gorm:"primaryKey;column:enrollment_id" json:"enrollment_id"`
	UserID       int        `gorm:"column:user_id;index" json:"user_id"`
	CourseID     int        `gorm:"column:course_id" json:"course_id"`
	Amount       *float64   `gorm:"column:amount" json:"amount,omitempty"`
	PurchasedAt  *time.Time `gorm:"column:purchased_at" json:"purchased_at,omitempty"`
	CreateAt     time.Time  `gorm:"column:create_at" json:"create_at"`
	UpdateAt     *time.Time `gorm:"column:update_at" json:"update_at"`
	DeleteAt     *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// AcquisitionSource maps a marketing source tag to users, used for
// optional audience narrowing.
type AcquisitionSource struct {
	SourceID int        `gorm:"primaryKey;column:source_id" json:"source_id"`
	Code     string     `gorm:"column:code;unique" json:"code"`
	Name     string     `gorm:"column:name" json:"name"`
	CreateAt time.Time  `gorm:"column:create_at" json:"create_at"`
	DeleteAt *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

// TableName overrides
func (Enrollment) TableName() string {
	return "enrollments"
}

func (AcquisitionSource) TableName() string {
	return "acquisition_sources"
}
