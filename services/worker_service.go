package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tobi-04/srm-be-sub001/config"
	"github.com/tobi-04/srm-be-sub001/models"
	"github.com/tobi-04/srm-be-sub001/monitor"
	"github.com/tobi-04/srm-be-sub001/utils"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultWorkerConcurrency bounds in-flight sends per worker instance to
// respect downstream mail-transport rate limits.
const DefaultWorkerConcurrency = 5

const (
	workerPollInterval = 5 * time.Second
	workerClaimBatch   = 50
	staleSweepInterval = time.Minute
)

// MailSender is the outbound mail transport collaborator.
type MailSender interface {
	Send(to []string, subject, html string) error
}

// MailFunc adapts a plain function (config.SendMail) to MailSender.
type MailFunc func(to []string, subject, html string) error

func (f MailFunc) Send(to []string, subject, html string) error {
	return f(to, subject, html)
}

// WorkerService consumes due jobs with bounded concurrency. Correctness
// under duplicate delivery rests on the notification log: a SENT row for
// the job's identity short-circuits execution, and every ledger write is an
// atomic upsert on the composite unique key.
type WorkerService struct {
	db          *gorm.DB
	queue       *QueueService
	mailer      MailSender
	instanceID  string
	sem         *semaphore.Weighted
	concurrency int64
}

func NewWorkerService(db *gorm.DB, mailer MailSender, concurrency int) *WorkerService {
	if db == nil {
		db = config.DB
	}
	if concurrency <= 0 {
		concurrency = DefaultWorkerConcurrency
	}
	return &WorkerService{
		db:          db,
		queue:       NewQueueService(db),
		mailer:      mailer,
		instanceID:  uuid.NewString(),
		sem:         semaphore.NewWeighted(int64(concurrency)),
		concurrency: int64(concurrency),
	}
}

// Run polls the queue until ctx is canceled, then drains in-flight sends.
func (w *WorkerService) Run(ctx context.Context) {
	log.Printf("worker %s: started (concurrency %d)", w.instanceID, w.concurrency)
	ticker := time.NewTicker(workerPollInterval)
	defer ticker.Stop()
	lastSweep := time.Now()
	for {
		select {
		case <-ctx.Done():
			if err := w.sem.Acquire(context.Background(), w.concurrency); err == nil {
				w.sem.Release(w.concurrency)
			}
			log.Printf("worker %s: stopped", w.instanceID)
			return
		case <-ticker.C:
			if time.Since(lastSweep) >= staleSweepInterval {
				lastSweep = time.Now()
				if n, err := w.queue.RequeueStale(ctx); err != nil {
					log.Printf("worker %s: stale sweep failed: %v", w.instanceID, err)
				} else if n > 0 {
					log.Printf("worker %s: requeued %d stale jobs", w.instanceID, n)
				}
			}

			w.pollOnce(ctx)
		}
	}
}

// pollOnce claims one batch and dispatches it. A mid-batch claim failure
// still hands back the jobs already flipped to running; those are processed
// rather than left stranded until the stale sweep.
func (w *WorkerService) pollOnce(ctx context.Context) {
	jobs, err := w.queue.ClaimDue(ctx, w.instanceID, workerClaimBatch)
	if err != nil {
		log.Printf("worker %s: claim failed: %v", w.instanceID, err)
	}
	for _, job := range jobs {
		if err := w.sem.Acquire(ctx, 1); err != nil {
			w.releaseClaim(job)
			continue
		}
		job := job
		go func() {
			defer w.sem.Release(1)
			w.execute(ctx, job)
		}()
	}
}

// isPermanent reports whether retrying could ever fix the failure. A bad
// recipient address or a broken template stays broken on every attempt, so
// burning the retry budget on backoff only delays the dead-letter parking.
func isPermanent(err error) bool {
	var vErr *ValidationError
	var tErr *TemplateError
	return errors.As(err, &vErr) || errors.As(err, &tErr)
}

func (w *WorkerService) execute(ctx context.Context, job models.EmailJob) {
	// The job is already claimed. Shutdown must not sever its terminal
	// writes: a send that left the transport with its ledger row still
	// PENDING would be requeued by the stale sweep and delivered twice.
	// The semaphore drain in Run is the shutdown gate, not this context.
	ctx = context.WithoutCancel(ctx)

	start := time.Now()
	outcome, err := w.process(ctx, &job)
	monitor.JobDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		monitor.JobsProcessed.WithLabelValues("failed").Inc()
		log.Printf("worker %s: job %d failed (attempt %d/%d): %v",
			w.instanceID, job.JobID, job.Attempts, job.MaxAttempts, err)
		if isPermanent(err) {
			if qErr := w.queue.Park(ctx, &job, err); qErr != nil {
				log.Printf("worker %s: failed to park job %d: %v", w.instanceID, job.JobID, qErr)
			}
			return
		}
		if qErr := w.queue.Fail(ctx, &job, err); qErr != nil {
			log.Printf("worker %s: failed to record job %d failure: %v", w.instanceID, job.JobID, qErr)
		}
		return
	}
	monitor.JobsProcessed.WithLabelValues(outcome).Inc()
	if qErr := w.queue.Complete(ctx, job.JobID); qErr != nil {
		log.Printf("worker %s: failed to complete job %d: %v", w.instanceID, job.JobID, qErr)
	}
}

// process runs one job to a terminal outcome: "sent", "duplicate" (ledger
// already SENT) or "canceled" (automation gone or deactivated mid-flight).
func (w *WorkerService) process(ctx context.Context, job *models.EmailJob) (string, error) {
	var entry models.NotificationLog
	err := w.db.WithContext(ctx).
		Where("user_id = ? AND automation_id = ? AND step_id = ? AND broadcast_key = ?",
			job.UserID, job.AutomationID, job.StepID, job.BroadcastKey).
		First(&entry).Error
	switch {
	case err == nil:
		if entry.Status == models.LogStatusSent {
			return "duplicate", nil
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return "", err
	}

	// Missing recipient or step fails the job so a data backfill can let a
	// retry succeed. It usually signals an integrity problem worth alerting on.
	var user models.User
	if err := w.db.WithContext(ctx).
		Where("user_id = ? AND delete_at IS NULL", job.UserID).
		First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("job %d: recipient %d: %w", job.JobID, job.UserID, ErrUserNotFound)
		}
		return "", err
	}

	var step models.AutomationStep
	if err := w.db.WithContext(ctx).
		Where("step_id = ?", job.StepID).
		First(&step).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("job %d: step %d: %w", job.JobID, job.StepID, ErrStepNotFound)
		}
		return "", err
	}

	// Re-read the automation immediately before sending. A toggled-off or
	// deleted automation turns its already-enqueued jobs into no-ops.
	var automation models.EmailAutomation
	err = w.db.WithContext(ctx).
		Where("automation_id = ?", job.AutomationID).
		First(&automation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("worker %s: job %d canceled, automation %d is gone", w.instanceID, job.JobID, job.AutomationID)
			return "canceled", nil
		}
		return "", err
	}
	if !automation.IsActive || automation.DeleteAt != nil {
		log.Printf("worker %s: job %d canceled, automation %d deactivated", w.instanceID, job.JobID, job.AutomationID)
		return "canceled", nil
	}

	var payload map[string]interface{}
	if len(job.Payload) > 0 {
		if err := json.Unmarshal(job.Payload, &payload); err != nil {
			log.Printf("worker %s: job %d carries undecodable payload: %v", w.instanceID, job.JobID, err)
			payload = nil
		}
	}
	vars := MergeRecipientContext(payload, &user)
	to := RecipientAddress(vars, &user)
	if !utils.ValidateEmail(to) {
		cause := &ValidationError{Field: "recipient", Reason: fmt.Sprintf("invalid address %q", to)}
		w.recordFailure(ctx, job, "", to, cause)
		return "", cause
	}

	subject, err := RenderTemplate(step.SubjectTemplate, vars)
	if err != nil {
		w.recordFailure(ctx, job, "", to, err)
		return "", err
	}
	body, err := RenderTemplate(step.BodyTemplate, vars)
	if err != nil {
		w.recordFailure(ctx, job, subject, to, err)
		return "", err
	}

	if err := w.upsertPending(ctx, job, subject, to); err != nil {
		return "", err
	}

	if err := w.mailer.Send([]string{to}, subject, body); err != nil {
		terr := &TransportError{Recipient: to, Err: err}
		w.recordFailure(ctx, job, subject, to, terr)
		return "", terr
	}

	w.recordSent(ctx, job)
	return "sent", nil
}

// upsertPending is a single atomic conditional write keyed on the composite
// identity, never a read-then-write pair. A concurrent duplicate that
// already reached SENT must not regress.
func (w *WorkerService) upsertPending(ctx context.Context, job *models.EmailJob, subject, to string) error {
	now := time.Now()
	entry := models.NotificationLog{
		UserID:         job.UserID,
		AutomationID:   job.AutomationID,
		StepID:         job.StepID,
		BroadcastKey:   job.BroadcastKey,
		Status:         models.LogStatusPending,
		Subject:        subject,
		RecipientEmail: to,
		Metadata:       job.Payload,
		CreateAt:       now,
	}
	return w.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "automation_id"}, {Name: "step_id"}, {Name: "broadcast_key"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":          gorm.Expr("IF(status = 'SENT', status, 'PENDING')"),
			"subject":         subject,
			"recipient_email": to,
			"metadata":        job.Payload,
			"update_at":       now,
		}),
	}).Create(&entry).Error
}

// recordSent and recordFailure are best-effort secondary writes: a failure
// to record an outcome is logged and never masks the outcome itself.
func (w *WorkerService) recordSent(ctx context.Context, job *models.EmailJob) {
	now := time.Now()
	err := w.db.WithContext(ctx).Model(&models.NotificationLog{}).
		Where("user_id = ? AND automation_id = ? AND step_id = ? AND broadcast_key = ?",
			job.UserID, job.AutomationID, job.StepID, job.BroadcastKey).
		Updates(map[string]interface{}{
			"status":        models.LogStatusSent,
			"sent_at":       now,
			"error_message": nil,
			"update_at":     now,
		}).Error
	if err != nil {
		log.Printf("worker %s: failed to mark job %d sent: %v", w.instanceID, job.JobID, err)
	}
}

func (w *WorkerService) recordFailure(ctx context.Context, job *models.EmailJob, subject, to string, cause error) {
	now := time.Now()
	msg := cause.Error()
	entry := models.NotificationLog{
		UserID:         job.UserID,
		AutomationID:   job.AutomationID,
		StepID:         job.StepID,
		BroadcastKey:   job.BroadcastKey,
		Status:         models.LogStatusFailed,
		Subject:        subject,
		RecipientEmail: to,
		ErrorMessage:   &msg,
		Metadata:       job.Payload,
		CreateAt:       now,
	}
	err := w.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "automation_id"}, {Name: "step_id"}, {Name: "broadcast_key"},
		},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":        gorm.Expr("IF(status = 'SENT', status, 'FAILED')"),
			"error_message": msg,
			"update_at":     now,
		}),
	}).Create(&entry).Error
	if err != nil {
		log.Printf("worker %s: failed to record job %d failure in ledger: %v", w.instanceID, job.JobID, err)
	}
}

func (w *WorkerService) releaseClaim(job models.EmailJob) {
	err := w.db.Model(&models.EmailJob{}).
		Where("job_id = ? AND status = ?", job.JobID, models.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":    models.JobStatusQueued,
			"attempts":  gorm.Expr("attempts - 1"),
			"update_at": time.Now(),
		}).Error
	if err != nil {
		log.Printf("worker %s: failed to release claim on job %d: %v", w.instanceID, job.JobID, err)
	}
}
