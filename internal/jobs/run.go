package jobs

import (
	"context"
	"time"

	"github.com/atmagaming/finances/internal/logger"
	"github.com/google/uuid"
)

// DefaultMaxRetries is applied to jobs published without MaxRetries.
const DefaultMaxRetries = 2

// Prepare fills in the id, status, creation time and retry budget of a job
// about to be published. Fields already set are kept.
func Prepare(job *MirrorJob, now time.Time) {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = JobStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	if job.MaxRetries == 0 {
		job.MaxRetries = DefaultMaxRetries
	}
}

// Execute runs handler for job and records each state change in store, which
// may be nil. When the job failed with retries left it returns the copy to
// publish again; otherwise nil.
func Execute(ctx context.Context, store JobStore, job *MirrorJob, handler JobHandler) *MirrorJob {
	log := logger.FromContext(ctx).With().
		Str("job_id", job.JobID).
		Str("target", string(job.Target)).
		Logger()

	job.Status = JobStatusRunning
	now := time.Now()
	job.StartedAt = &now
	save(ctx, store, job)

	err := handler(logger.WithContext(ctx, log), job)

	completedAt := time.Now()
	job.CompletedAt = &completedAt

	var retry *MirrorJob
	if err != nil {
		job.Error = err.Error()

		if job.RetryCount < job.MaxRetries {
			job.RetryCount++
			job.Status = JobStatusRetrying
			log.Warn().Err(err).Int("retry", job.RetryCount).Msg("Mirror job failed, retrying")

			next := *job
			next.Status = JobStatusPending
			next.StartedAt = nil
			next.CompletedAt = nil
			retry = &next
		} else {
			job.Status = JobStatusFailed
			log.Error().Err(err).Msg("Mirror job failed")
		}
	} else {
		job.Status = JobStatusCompleted
		job.Error = ""
		log.Info().Msg("Mirror job completed")
	}

	save(ctx, store, job)
	return retry
}

func save(ctx context.Context, store JobStore, job *MirrorJob) {
	if store == nil {
		return
	}
	if err := store.SaveJob(ctx, job); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("job_id", job.JobID).Msg("Failed to save job state")
	}
}
