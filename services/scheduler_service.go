package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tobi-04/srm-be-sub001/config"
	"github.com/tobi-04/srm-be-sub001/models"
	"github.com/tobi-04/srm-be-sub001/monitor"

	"gorm.io/gorm"
)

const (
	schedulerInterval  = time.Minute
	schedulerLookAhead = 5 * time.Minute
)

// SchedulerService periodically scans for steps with absolute schedule
// times owned by active group automations and enqueues their broadcast
// jobs. Event automations never go through here; they are exclusively the
// dispatcher's responsibility, which keeps the two paths from racing on
// the same step.
type SchedulerService struct {
	automations *AutomationService
	audience    *AudienceService
	queue       *QueueService
	interval    time.Duration
	lookAhead   time.Duration
}

func NewSchedulerService(db *gorm.DB) *SchedulerService {
	if db == nil {
		db = config.DB
	}
	return &SchedulerService{
		automations: NewAutomationService(db),
		audience:    NewAudienceService(db),
		queue:       NewQueueService(db),
		interval:    schedulerInterval,
		lookAhead:   schedulerLookAhead,
	}
}

// Run executes the scan on a fixed cadence until ctx is canceled. Each scan
// runs synchronously on the ticker goroutine, so an invocation can never
// overlap its predecessor; missed ticks are dropped.
func (s *SchedulerService) Run(ctx context.Context) {
	log.Printf("scheduler: started (interval %s, look-ahead %s)", s.interval, s.lookAhead)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("scheduler: stopped")
			return
		case <-ticker.C:
			if err := s.runOnce(ctx); err != nil {
				log.Printf("scheduler: scan failed: %v", err)
			}
		}
	}
}

func (s *SchedulerService) runOnce(ctx context.Context) error {
	now := time.Now()
	steps, err := s.automations.StepsScheduledBetween(ctx, now, now.Add(s.lookAhead))
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return nil
	}

	byAutomation := map[int][]models.AutomationStep{}
	for _, step := range steps {
		byAutomation[step.AutomationID] = append(byAutomation[step.AutomationID], step)
	}

	key := ScheduledBroadcastKey(now)
	for automationID, group := range byAutomation {
		a, err := s.automations.Get(ctx, automationID)
		if err != nil {
			if !errors.Is(err, ErrAutomationNotFound) {
				log.Printf("scheduler: failed to load automation %d: %v", automationID, err)
			}
			continue
		}
		if !a.IsActive || a.TriggerKind != models.TriggerKindGroup || a.TargetGroup == nil {
			continue
		}
		s.enqueueBroadcast(ctx, a, group, key, now, "scheduled")
	}
	return nil
}

// BroadcastNow performs the one-shot broadcast fired when a group
// automation transitions inactive→active. Steps without an absolute time
// fall back to their relative delay.
func (s *SchedulerService) BroadcastNow(ctx context.Context, automationID int) error {
	a, err := s.automations.Get(ctx, automationID)
	if err != nil {
		return err
	}
	if a.TriggerKind != models.TriggerKindGroup || a.TargetGroup == nil {
		return &ValidationError{Field: "trigger_kind", Reason: "broadcast requires a group automation"}
	}
	if !a.IsActive {
		return &ValidationError{Field: "is_active", Reason: "automation is not active"}
	}
	now := time.Now()
	s.enqueueBroadcast(ctx, a, a.Steps, ManualBroadcastKey(now), now, "broadcast")
	return nil
}

func (s *SchedulerService) enqueueBroadcast(ctx context.Context, a *models.EmailAutomation, steps []models.AutomationStep, key string, now time.Time, trigger string) {
	ids, err := s.audience.Resolve(ctx, *a.TargetGroup, nil)
	if err != nil {
		log.Printf("scheduler: failed to resolve group %q for automation %d: %v", *a.TargetGroup, a.AutomationID, err)
		return
	}
	if len(ids) == 0 {
		return
	}

	enqueued := 0
	for _, userID := range ids {
		for _, step := range steps {
			job := &models.EmailJob{
				UserID:       userID,
				AutomationID: a.AutomationID,
				StepID:       step.StepID,
				BroadcastKey: key,
				RunAt:        stepRunAt(step, now),
			}
			if err := s.queue.Enqueue(ctx, job); err != nil {
				log.Printf("scheduler: failed to enqueue automation %d step %d for user %d: %v",
					a.AutomationID, step.StepID, userID, err)
				monitor.EnqueueFailures.Inc()
				continue
			}
			monitor.JobsEnqueued.WithLabelValues(trigger).Inc()
			enqueued++
		}
	}
	log.Printf("scheduler: automation %d (%s) enqueued %d jobs for %d recipients under key %s",
		a.AutomationID, a.Name, enqueued, len(ids), key)
}

// ScheduledBroadcastKey marks a scheduler-initiated cycle. The suffix keeps
// it distinct from a manual broadcast fired the same day, so the two count
// as separate send opportunities.
func ScheduledBroadcastKey(t time.Time) string {
	return t.Format("2006-01-02") + "-scheduled"
}

// ManualBroadcastKey marks an activate-triggered cycle.
func ManualBroadcastKey(t time.Time) string {
	return t.Format("2006-01-02")
}
