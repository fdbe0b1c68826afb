package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tobi-04/srm-be-sub001/config"
	"github.com/tobi-04/srm-be-sub001/models"

	"gorm.io/gorm"
)

// AutomationService is the persistence boundary for automations and their
// steps. Step writes re-validate both templates so a broken template can
// never reach a live step, and deleting an automation hard-deletes its steps.
type AutomationService struct {
	db *gorm.DB
}

func NewAutomationService(db *gorm.DB) *AutomationService {
	if db == nil {
		db = config.DB
	}
	return &AutomationService{db: db}
}

func (s *AutomationService) Create(ctx context.Context, a *models.EmailAutomation) error {
	if err := validateAutomation(a); err != nil {
		return err
	}
	a.IsActive = false // automations start inactive until explicitly toggled on
	a.CreateAt = time.Now()
	return s.db.WithContext(ctx).Create(a).Error
}

func (s *AutomationService) Get(ctx context.Context, id int) (*models.EmailAutomation, error) {
	var a models.EmailAutomation
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order ASC") }).
		Where("automation_id = ? AND delete_at IS NULL", id).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAutomationNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (s *AutomationService) List(ctx context.Context, includeInactive bool, limit, offset int) ([]models.EmailAutomation, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.EmailAutomation{}).Where("delete_at IS NULL")
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []models.EmailAutomation
	err := q.Order("automation_id DESC").Limit(limit).Offset(offset).Find(&items).Error
	return items, total, err
}

func (s *AutomationService) Update(ctx context.Context, id int, a *models.EmailAutomation) error {
	if err := validateAutomation(a); err != nil {
		return err
	}
	now := time.Now()
	updates := map[string]interface{}{
		"name":         a.Name,
		"trigger_kind": a.TriggerKind,
		"event_type":   a.EventType,
		"target_group": a.TargetGroup,
		"update_at":    now,
	}
	res := s.db.WithContext(ctx).Model(&models.EmailAutomation{}).
		Where("automation_id = ? AND delete_at IS NULL", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAutomationNotFound
	}
	return nil
}

// Delete soft-deletes the automation and cascades a hard delete of all its
// steps in one transaction.
func (s *AutomationService) Delete(ctx context.Context, id int) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("automation_id = ?", id).Delete(&models.AutomationStep{}).Error; err != nil {
			return err
		}
		now := time.Now()
		res := tx.Model(&models.EmailAutomation{}).
			Where("automation_id = ? AND delete_at IS NULL", id).
			Updates(map[string]interface{}{"delete_at": now, "update_at": now})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAutomationNotFound
		}
		return nil
	})
}

// SetActive toggles the active flag and reports the previous state so the
// caller can detect a group automation transitioning off→on.
func (s *AutomationService) SetActive(ctx context.Context, id int, active bool) (previous bool, err error) {
	var a models.EmailAutomation
	if err := s.db.WithContext(ctx).
		Where("automation_id = ? AND delete_at IS NULL", id).
		First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrAutomationNotFound
		}
		return false, err
	}
	if a.IsActive == active {
		return a.IsActive, nil
	}
	now := time.Now()
	err = s.db.WithContext(ctx).Model(&models.EmailAutomation{}).
		Where("automation_id = ?", id).
		Updates(map[string]interface{}{"is_active": active, "update_at": now}).Error
	return a.IsActive, err
}

func (s *AutomationService) CreateStep(ctx context.Context, step *models.AutomationStep) error {
	if err := validateStep(step); err != nil {
		return err
	}
	if _, err := s.Get(ctx, step.AutomationID); err != nil {
		return err
	}
	step.CreateAt = time.Now()
	return s.db.WithContext(ctx).Create(step).Error
}

func (s *AutomationService) UpdateStep(ctx context.Context, stepID int, step *models.AutomationStep) error {
	if err := validateStep(step); err != nil {
		return err
	}
	now := time.Now()
	updates := map[string]interface{}{
		"step_order":       step.StepOrder,
		"delay_minutes":    step.DelayMinutes,
		"scheduled_at":     step.ScheduledAt,
		"subject_template": step.SubjectTemplate,
		"body_template":    step.BodyTemplate,
		"update_at":        now,
	}
	res := s.db.WithContext(ctx).Model(&models.AutomationStep{}).
		Where("step_id = ?", stepID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStepNotFound
	}
	return nil
}

func (s *AutomationService) DeleteStep(ctx context.Context, stepID int) error {
	res := s.db.WithContext(ctx).Where("step_id = ?", stepID).Delete(&models.AutomationStep{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStepNotFound
	}
	return nil
}

// MatchEventAutomations loads the active, non-deleted event automations for
// an event type, steps preloaded in send order.
func (s *AutomationService) MatchEventAutomations(ctx context.Context, eventType string) ([]models.EmailAutomation, error) {
	var autos []models.EmailAutomation
	err := s.db.WithContext(ctx).
		Preload("Steps", func(db *gorm.DB) *gorm.DB { return db.Order("step_order ASC") }).
		Where("trigger_kind = ? AND event_type = ? AND is_active = ? AND delete_at IS NULL",
			models.TriggerKindEvent, eventType, true).
		Find(&autos).Error
	return autos, err
}

// StepsScheduledBetween returns steps whose absolute schedule time falls in
// [from, to), for the scheduler's look-ahead scan.
func (s *AutomationService) StepsScheduledBetween(ctx context.Context, from, to time.Time) ([]models.AutomationStep, error) {
	var steps []models.AutomationStep
	err := s.db.WithContext(ctx).
		Where("scheduled_at IS NOT NULL AND scheduled_at >= ? AND scheduled_at < ?", from, to).
		Order("scheduled_at ASC").
		Find(&steps).Error
	return steps, err
}

func validateAutomation(a *models.EmailAutomation) error {
	if a == nil {
		return &ValidationError{Reason: "automation is nil"}
	}
	if a.Name == "" {
		return &ValidationError{Field: "name", Reason: "is required"}
	}
	switch a.TriggerKind {
	case models.TriggerKindEvent:
		if a.EventType == nil || *a.EventType == "" {
			return &ValidationError{Field: "event_type", Reason: "is required for event automations"}
		}
		a.TargetGroup = nil
	case models.TriggerKindGroup:
		if a.TargetGroup == nil || *a.TargetGroup == "" {
			return &ValidationError{Field: "target_group", Reason: "is required for group automations"}
		}
		a.EventType = nil
	default:
		return &ValidationError{Field: "trigger_kind", Reason: fmt.Sprintf("must be %q or %q", models.TriggerKindEvent, models.TriggerKindGroup)}
	}
	return nil
}

func validateStep(step *models.AutomationStep) error {
	if step == nil {
		return &ValidationError{Reason: "step is nil"}
	}
	hasDelay := step.DelayMinutes != nil
	hasSchedule := step.ScheduledAt != nil
	if hasDelay == hasSchedule {
		return &ValidationError{Field: "dispatch rule", Reason: "exactly one of delay_minutes or scheduled_at is required"}
	}
	if hasDelay && *step.DelayMinutes < 0 {
		return &ValidationError{Field: "delay_minutes", Reason: "must not be negative"}
	}
	if err := ValidateTemplate(step.SubjectTemplate); err != nil {
		return &ValidationError{Field: "subject_template", Reason: err.Error()}
	}
	if err := ValidateTemplate(step.BodyTemplate); err != nil {
		return &ValidationError{Field: "body_template", Reason: err.Error()}
	}
	return nil
}
