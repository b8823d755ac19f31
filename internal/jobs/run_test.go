package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atmagaming/finances/internal/jobs"
	"github.com/atmagaming/finances/internal/jobs/inmemory"
)

func TestPrepare(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fills defaults", func(t *testing.T) {
		job := &jobs.MirrorJob{Target: jobs.TargetSQLite}
		jobs.Prepare(job, now)

		if job.JobID == "" || job.Status != jobs.JobStatusPending || !job.CreatedAt.Equal(now) || job.MaxRetries != jobs.DefaultMaxRetries {
			t.Errorf("Prepare() = %+v", job)
		}
	})

	t.Run("keeps set fields", func(t *testing.T) {
		created := now.Add(-time.Hour)
		job := &jobs.MirrorJob{JobID: "j", Status: jobs.JobStatusRetrying, CreatedAt: created, MaxRetries: 5}
		jobs.Prepare(job, now)

		if job.JobID != "j" || job.Status != jobs.JobStatusRetrying || !job.CreatedAt.Equal(created) || job.MaxRetries != 5 {
			t.Errorf("Prepare() overwrote fields: %+v", job)
		}
	})
}

func TestExecute(t *testing.T) {
	failing := func(ctx context.Context, job *jobs.MirrorJob) error { return errors.New("boom") }

	tests := []struct {
		name       string
		retryCount int
		handler    jobs.JobHandler
		wantStatus jobs.JobStatus
		wantRetry  bool
	}{
		{
			name:       "success",
			handler:    func(ctx context.Context, job *jobs.MirrorJob) error { return nil },
			wantStatus: jobs.JobStatusCompleted,
		},
		{
			name:       "failure with retries left",
			handler:    failing,
			wantStatus: jobs.JobStatusRetrying,
			wantRetry:  true,
		},
		{
			name:       "failure with budget spent",
			retryCount: 2,
			handler:    failing,
			wantStatus: jobs.JobStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := inmemory.NewStore()
			job := &jobs.MirrorJob{JobID: "j", Target: jobs.TargetSQLite, RetryCount: tt.retryCount, MaxRetries: 2}

			retry := jobs.Execute(ctx, store, job, tt.handler)

			if (retry != nil) != tt.wantRetry {
				t.Fatalf("retry = %+v, want retry %v", retry, tt.wantRetry)
			}
			saved, err := store.GetJob(ctx, "j")
			if err != nil {
				t.Fatalf("GetJob() error = %v", err)
			}
			if saved.Status != tt.wantStatus {
				t.Errorf("saved status = %s, want %s", saved.Status, tt.wantStatus)
			}
			if saved.StartedAt == nil || saved.CompletedAt == nil {
				t.Errorf("timestamps not recorded: %+v", saved)
			}
			if retry != nil {
				if retry.Status != jobs.JobStatusPending || retry.RetryCount != 1 || retry.StartedAt != nil {
					t.Errorf("retry = %+v", retry)
				}
				if saved.Error != "boom" {
					t.Errorf("saved error = %q, want boom", saved.Error)
				}
			}
		})
	}
}

func TestExecute_NilStore(t *testing.T) {
	job := &jobs.MirrorJob{JobID: "j", Target: jobs.TargetBigQuery}
	if retry := jobs.Execute(context.Background(), nil, job, func(ctx context.Context, job *jobs.MirrorJob) error {
		return nil
	}); retry != nil {
		t.Errorf("retry = %+v, want nil", retry)
	}
	if job.Status != jobs.JobStatusCompleted {
		t.Errorf("Status = %s, want completed", job.Status)
	}
}
