package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/atmagaming/finances/internal/jobs"
	"github.com/atmagaming/finances/internal/mirror"
)

// waitForStatus polls the store until the job reaches status or the deadline passes.
func waitForStatus(t *testing.T, store *Store, jobID string, status jobs.JobStatus) *jobs.MirrorJob {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetJob(context.Background(), jobID)
		if err == nil && job.Status == status {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	job, _ := store.GetJob(context.Background(), jobID)
	t.Fatalf("job %s did not reach %s, last state: %+v", jobID, status, job)
	return nil
}

func TestQueue_ProcessesJob(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, 2, store)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := queue.Start(ctx, func(ctx context.Context, job *jobs.MirrorJob) error {
		job.Stats = &mirror.Stats{Transactions: 42, DryRun: job.DryRun}
		return nil
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer queue.Stop(context.Background())

	job := &jobs.MirrorJob{Target: jobs.TargetSQLite, DryRun: true}
	if err := queue.PublishMirror(ctx, job); err != nil {
		t.Fatalf("PublishMirror returned error: %v", err)
	}
	if job.JobID == "" || job.CreatedAt.IsZero() || job.MaxRetries != jobs.DefaultMaxRetries {
		t.Errorf("published job not initialized: %+v", job)
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.Stats == nil || done.Stats.Transactions != 42 || !done.Stats.DryRun {
		t.Errorf("Stats = %+v, want 42 transactions from a dry run", done.Stats)
	}
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Errorf("timestamps not set: %+v", done)
	}
}

func TestQueue_RetriesThenFails(t *testing.T) {
	store := NewStore()
	queue := NewQueue(4, 1, store)
	queue.RetryBackoff = time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts int32
	err := queue.Start(ctx, func(ctx context.Context, job *jobs.MirrorJob) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("warehouse unavailable")
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer queue.Stop(context.Background())

	job := &jobs.MirrorJob{Target: jobs.TargetBigQuery, MaxRetries: 2}
	if err := queue.PublishMirror(ctx, job); err != nil {
		t.Fatalf("PublishMirror returned error: %v", err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if failed.RetryCount != 2 {
		t.Errorf("RetryCount = %d, want 2", failed.RetryCount)
	}
	if failed.Error != "warehouse unavailable" {
		t.Errorf("Error = %q", failed.Error)
	}
	if n := atomic.LoadInt32(&attempts); n != 3 {
		t.Errorf("handler called %d times, want 3", n)
	}
}

func TestQueue_Closed(t *testing.T) {
	queue := NewQueue(1, 1, NewStore())
	if err := queue.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if err := queue.PublishMirror(context.Background(), &jobs.MirrorJob{Target: jobs.TargetSQLite}); !errors.Is(err, jobs.ErrQueueClosed) {
		t.Errorf("PublishMirror() error = %v, want ErrQueueClosed", err)
	}
	if err := queue.Start(context.Background(), nil); !errors.Is(err, jobs.ErrQueueClosed) {
		t.Errorf("Start() error = %v, want ErrQueueClosed", err)
	}
	if err := queue.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error = %v, want nil", err)
	}
}
