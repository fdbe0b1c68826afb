package services

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/tobi-04/srm-be-sub001/models"
)

func automationColumns() []string {
	return []string{"automation_id", "name", "trigger_kind", "event_type", "target_group", "is_active"}
}

func stepColumns() []string {
	return []string{"step_id", "automation_id", "step_order", "delay_minutes", "subject_template", "body_template"}
}

func TestHandleEventNoMatchingAutomationEnqueuesNothing(t *testing.T) {
	// Inactive and deleted automations are excluded by the match query, so a
	// non-matching event ends after one select with no queue writes.
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM .?email_automations.?"),
			argAt:   map[int]driver.Value{1: "course.purchased"},
			columns: automationColumns(),
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	d := NewDispatcherService(gormDB)
	d.HandleEvent(context.Background(), "course.purchased", map[string]interface{}{
		"userId": float64(42),
		"email":  "linh@example.com",
	})

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestHandleEventEnqueuesImmediateStep(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM .?email_automations.?"),
			columns: automationColumns(),
			rows: [][]driver.Value{
				{int64(9), "purchase welcome", "event", "course.purchased", nil, true},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM .?automation_steps.?"),
			columns: stepColumns(),
			rows: [][]driver.Value{
				{int64(3), int64(9), int64(1), int64(0), "Hi {{user.name}}", "Enjoy {{course.title}}"},
			},
		},
		{
			kind:    kindExec,
			pattern: regexp.MustCompile("INSERT INTO .?email_jobs.?"),
			argAt:   map[int]driver.Value{3: models.BroadcastKeyOnce, 6: models.JobStatusQueued},
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	d := NewDispatcherService(gormDB)
	d.HandleEvent(context.Background(), "course.purchased", map[string]interface{}{
		"userId":      float64(42),
		"email":       "linh@example.com",
		"courseTitle": "Advanced Web Development",
	})

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestHandleEventWithoutUserIDEnqueuesNothing(t *testing.T) {
	steps := []*queryStep{
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM .?email_automations.?"),
			columns: automationColumns(),
			rows: [][]driver.Value{
				{int64(9), "purchase welcome", "event", "course.purchased", nil, true},
			},
		},
		{
			kind:    kindQuery,
			pattern: regexp.MustCompile("SELECT .* FROM .?automation_steps.?"),
			columns: stepColumns(),
		},
	}

	gormDB, state, cleanup := newScriptedGormDB(t, steps)
	defer cleanup()

	d := NewDispatcherService(gormDB)
	d.HandleEvent(context.Background(), "course.purchased", map[string]interface{}{
		"email": "linh@example.com",
	})

	if err := state.verifyComplete(); err != nil {
		t.Fatalf("%v", err)
	}
}

func TestStepRunAtRelativeDelay(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	delay := 1440
	step := models.AutomationStep{DelayMinutes: &delay}

	got := stepRunAt(step, now)
	want := now.Add(1440 * time.Minute)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestStepRunAtAbsoluteTime(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	future := now.Add(2 * time.Hour)
	step := models.AutomationStep{ScheduledAt: &future}
	if got := stepRunAt(step, now); !got.Equal(future) {
		t.Fatalf("got %v, want %v", got, future)
	}

	// Schedule times in the past clamp to now.
	past := now.Add(-2 * time.Hour)
	step = models.AutomationStep{ScheduledAt: &past}
	if got := stepRunAt(step, now); !got.Equal(now) {
		t.Fatalf("got %v, want %v", got, now)
	}
}

func TestStepRunAtNoRuleIsImmediate(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if got := stepRunAt(models.AutomationStep{}, now); !got.Equal(now) {
		t.Fatalf("got %v, want %v", got, now)
	}
}

func TestPayloadUserID(t *testing.T) {
	if got := payloadUserID(map[string]interface{}{"userId": float64(42)}); got != 42 {
		t.Fatalf("got %d", got)
	}
	if got := payloadUserID(map[string]interface{}{"userId": "42"}); got != 0 {
		t.Fatalf("strings are not ids, got %d", got)
	}
	if got := payloadUserID(map[string]interface{}{}); got != 0 {
		t.Fatalf("got %d", got)
	}
}
