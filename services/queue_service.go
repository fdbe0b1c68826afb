package services

import (
	"context"
	"log"
	"time"

	"github.com/tobi-04/srm-be-sub001/config"
	"github.com/tobi-04/srm-be-sub001/models"

	"gorm.io/gorm"
)

const (
	// DefaultMaxAttempts is the total attempt budget per job.
	DefaultMaxAttempts = 3
	// retryBackoffBase doubles on every failed attempt: 60s, 120s, 240s.
	retryBackoffBase = time.Minute

	doneJobRetention = 24 * time.Hour
	deadJobRetention = 7 * 24 * time.Hour

	staleClaimTimeout = 10 * time.Minute
)

// QueueService is a MySQL-backed delayed job queue. Jobs become eligible
// exactly at run_at. Claims are conditional updates keyed on the queued
// status, so multiple worker instances can poll the same table; delivery is
// at-least-once and the notification log carries the idempotency guarantee.
type QueueService struct {
	db *gorm.DB
}

func NewQueueService(db *gorm.DB) *QueueService {
	if db == nil {
		db = config.DB
	}
	return &QueueService{db: db}
}

func (q *QueueService) Enqueue(ctx context.Context, job *models.EmailJob) error {
	if job.Status == "" {
		job.Status = models.JobStatusQueued
	}
	if job.MaxAttempts == 0 {
		job.MaxAttempts = DefaultMaxAttempts
	}
	if job.RunAt.IsZero() {
		job.RunAt = time.Now()
	}
	job.CreateAt = time.Now()
	return q.db.WithContext(ctx).Create(job).Error
}

// ClaimDue claims up to limit due jobs for workerID. A job is won only when
// the conditional update flips its status from queued to running; rows lost
// to a concurrent instance are skipped.
func (q *QueueService) ClaimDue(ctx context.Context, workerID string, limit int) ([]models.EmailJob, error) {
	now := time.Now()

	var due []models.EmailJob
	err := q.db.WithContext(ctx).
		Where("status = ? AND run_at <= ?", models.JobStatusQueued, now).
		Order("run_at ASC").
		Limit(limit).
		Find(&due).Error
	if err != nil {
		return nil, err
	}

	claimed := make([]models.EmailJob, 0, len(due))
	for _, job := range due {
		res := q.db.WithContext(ctx).Model(&models.EmailJob{}).
			Where("job_id = ? AND status = ?", job.JobID, models.JobStatusQueued).
			Updates(map[string]interface{}{
				"status":     models.JobStatusRunning,
				"claimed_by": workerID,
				"attempts":   gorm.Expr("attempts + 1"),
				"update_at":  now,
			})
		if res.Error != nil {
			return claimed, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}
		job.Status = models.JobStatusRunning
		job.ClaimedBy = &workerID
		job.Attempts++
		claimed = append(claimed, job)
	}
	return claimed, nil
}

func (q *QueueService) Complete(ctx context.Context, jobID int) error {
	now := time.Now()
	return q.db.WithContext(ctx).Model(&models.EmailJob{}).
		Where("job_id = ?", jobID).
		Updates(map[string]interface{}{"status": models.JobStatusDone, "update_at": now}).Error
}

// Fail re-queues the job with exponential backoff, or parks it as dead once
// the attempt budget is spent. Dead jobs stay visible for operators.
func (q *QueueService) Fail(ctx context.Context, job *models.EmailJob, cause error) error {
	now := time.Now()
	msg := cause.Error()
	updates := map[string]interface{}{
		"last_error": msg,
		"update_at":  now,
	}
	if job.Attempts >= job.MaxAttempts {
		updates["status"] = models.JobStatusDead
	} else {
		updates["status"] = models.JobStatusQueued
		updates["run_at"] = now.Add(backoffFor(job.Attempts))
	}
	return q.db.WithContext(ctx).Model(&models.EmailJob{}).
		Where("job_id = ?", job.JobID).
		Updates(updates).Error
}

// Park moves a job straight to dead, skipping the retry budget. Used for
// permanent failures that no retry can fix.
func (q *QueueService) Park(ctx context.Context, job *models.EmailJob, cause error) error {
	now := time.Now()
	msg := cause.Error()
	return q.db.WithContext(ctx).Model(&models.EmailJob{}).
		Where("job_id = ?", job.JobID).
		Updates(map[string]interface{}{
			"status":     models.JobStatusDead,
			"last_error": msg,
			"update_at":  now,
		}).Error
}

// backoffFor returns the delay before attempt n+1, given n attempts so far.
func backoffFor(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	return retryBackoffBase << (attempts - 1)
}

// RequeueStale returns jobs stuck in running (a worker died mid-flight)
// to the queue. The attempt already spent stays counted.
func (q *QueueService) RequeueStale(ctx context.Context) (int64, error) {
	now := time.Now()
	res := q.db.WithContext(ctx).Model(&models.EmailJob{}).
		Where("status = ? AND update_at < ?", models.JobStatusRunning, now.Add(-staleClaimTimeout)).
		Updates(map[string]interface{}{"status": models.JobStatusQueued, "update_at": now})
	return res.RowsAffected, res.Error
}

// PurgeExpired drops finished jobs past their retention window. Retention
// is operational, not a correctness concern.
func (q *QueueService) PurgeExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	var purged int64

	res := q.db.WithContext(ctx).
		Where("status = ? AND update_at < ?", models.JobStatusDone, now.Add(-doneJobRetention)).
		Delete(&models.EmailJob{})
	if res.Error != nil {
		return purged, res.Error
	}
	purged += res.RowsAffected

	res = q.db.WithContext(ctx).
		Where("status = ? AND update_at < ?", models.JobStatusDead, now.Add(-deadJobRetention)).
		Delete(&models.EmailJob{})
	if res.Error != nil {
		return purged, res.Error
	}
	purged += res.RowsAffected
	return purged, nil
}

// RunQueueMaintenance purges expired jobs on a fixed cadence until ctx is
// canceled.
func RunQueueMaintenance(ctx context.Context, q *QueueService) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := q.PurgeExpired(ctx); err != nil {
				log.Printf("queue maintenance: purge failed: %v", err)
			} else if n > 0 {
				log.Printf("queue maintenance: purged %d expired jobs", n)
			}
		}
	}
}

// QueueStats is a point-in-time census of the jobs table.
type QueueStats struct {
	Queued  int64 `json:"queued"`
	Running int64 `json:"running"`
	Done    int64 `json:"done"`
	Dead    int64 `json:"dead"`
}

func (q *QueueService) Stats(ctx context.Context) (*QueueStats, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := q.db.WithContext(ctx).Model(&models.EmailJob{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := &QueueStats{}
	for _, r := range rows {
		switch r.Status {
		case models.JobStatusQueued:
			stats.Queued = r.N
		case models.JobStatusRunning:
			stats.Running = r.N
		case models.JobStatusDone:
			stats.Done = r.N
		case models.JobStatusDead:
			stats.Dead = r.N
		}
	}
	return stats, nil
}
