package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/tobi-04/srm-be-sub001/config"
	"github.com/tobi-04/srm-be-sub001/models"
	"github.com/tobi-04/srm-be-sub001/monitor"

	"gorm.io/gorm"
)

// DispatcherService maps inbound business events to matching active event
// automations and enqueues one delayed job per (automation, step). It only
// writes to the queue; the notification log belongs to the worker.
type DispatcherService struct {
	automations *AutomationService
	queue       *QueueService
}

func NewDispatcherService(db *gorm.DB) *DispatcherService {
	if db == nil {
		db = config.DB
	}
	return &DispatcherService{
		automations: NewAutomationService(db),
		queue:       NewQueueService(db),
	}
}

// HandleEvent consumes a tagged business event. It never returns an error:
// the event emission path must not be blocked or failed by automation
// problems, so every failure here is logged and absorbed.
func (d *DispatcherService) HandleEvent(ctx context.Context, eventKind string, payload map[string]interface{}) {
	autos, err := d.automations.MatchEventAutomations(ctx, eventKind)
	if err != nil {
		log.Printf("dispatcher: failed to match automations for %s: %v", eventKind, err)
		return
	}
	if len(autos) == 0 {
		return
	}

	userID := payloadUserID(payload)
	if userID == 0 {
		log.Printf("dispatcher: event %s carries no userId, skipping", eventKind)
		return
	}

	evctx := BuildEventContext(eventKind, payload)
	raw, err := json.Marshal(evctx)
	if err != nil {
		log.Printf("dispatcher: failed to encode context for %s: %v", eventKind, err)
		return
	}

	now := time.Now()
	for _, a := range autos {
		for _, step := range a.Steps {
			job := &models.EmailJob{
				UserID:       userID,
				AutomationID: a.AutomationID,
				StepID:       step.StepID,
				BroadcastKey: models.BroadcastKeyOnce,
				Payload:      raw,
				RunAt:        stepRunAt(step, now),
			}
			if err := d.queue.Enqueue(ctx, job); err != nil {
				log.Printf("dispatcher: failed to enqueue automation %d step %d for user %d: %v",
					a.AutomationID, step.StepID, userID, err)
				monitor.EnqueueFailures.Inc()
				continue
			}
			monitor.JobsEnqueued.WithLabelValues("event").Inc()
		}
	}
}

// stepRunAt computes the absolute dispatch time for a step triggered at now:
// relative delays count from now, absolute times in the past clamp to now.
func stepRunAt(step models.AutomationStep, now time.Time) time.Time {
	if step.ScheduledAt != nil {
		if step.ScheduledAt.Before(now) {
			return now
		}
		return *step.ScheduledAt
	}
	if step.DelayMinutes != nil && *step.DelayMinutes > 0 {
		return now.Add(time.Duration(*step.DelayMinutes) * time.Minute)
	}
	return now
}

func payloadUserID(payload map[string]interface{}) int {
	switch v := payload["userId"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
