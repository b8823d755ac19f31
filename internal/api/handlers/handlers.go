package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/atmagaming/finances/internal/api/middleware"
	"github.com/atmagaming/finances/internal/calendar"
	"github.com/atmagaming/finances/internal/dashboard"
	"github.com/atmagaming/finances/internal/data"
	"github.com/atmagaming/finances/internal/domain"
	"github.com/atmagaming/finances/internal/jobs"
	"github.com/atmagaming/finances/internal/logger"
)

// SnapshotService is the part of data.Service the dashboard routes need.
type SnapshotService interface {
	All(ctx context.Context) (*data.Snapshot, error)
	Refresh()
	Now() time.Time
}

// DataHandler serves the dashboard report and the transaction list.
type DataHandler struct {
	service      SnapshotService
	releaseMonth string
}

// NewDataHandler creates a new data handler. releaseMonth is the default
// end month for projections and shares.
func NewDataHandler(service SnapshotService, releaseMonth string) *DataHandler {
	return &DataHandler{
		service:      service,
		releaseMonth: releaseMonth,
	}
}

// All handles GET /api/data/all
func (h *DataHandler) All(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	end := r.URL.Query().Get("end")
	if end == "" {
		end = h.releaseMonth
	}
	if _, _, err := calendar.ParseMonthStrict(end); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "end must be YYYY-MM")
		return
	}

	snap, err := h.service.All(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load workspace data")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load data")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dashboard.Build(snap, end, h.service.Now()))
}

// Transactions handles GET /api/data/transactions
func (h *DataHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := dashboard.TransactionFilter{
		Month:  query.Get("month"),
		Method: domain.Method(query.Get("method")),
	}
	if filter.Month != "" {
		if _, _, err := calendar.ParseMonthStrict(filter.Month); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "month must be YYYY-MM")
			return
		}
	}
	switch filter.Method {
	case "", domain.MethodPaid, domain.MethodAccrued, domain.MethodInvested:
	default:
		middleware.WriteError(w, http.StatusBadRequest, "method must be Paid, Accrued or Invested")
		return
	}

	snap, err := h.service.All(ctx)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Error().Err(err).Msg("Failed to load workspace data")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load data")
		return
	}

	txs := dashboard.TransactionsView(snap, filter)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Refresh handles POST /api/data/refresh
func (h *DataHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.service.Refresh()
	lg := logger.FromContext(r.Context())
	lg.Info().Msg("Data cache dropped")
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

// MirrorHandler enqueues mirror jobs.
type MirrorHandler struct {
	publisher jobs.Publisher
	targets   map[jobs.Target]bool
}

// NewMirrorHandler creates a mirror handler accepting only the given targets.
func NewMirrorHandler(publisher jobs.Publisher, targets ...jobs.Target) *MirrorHandler {
	enabled := make(map[jobs.Target]bool, len(targets))
	for _, t := range targets {
		enabled[t] = true
	}
	return &MirrorHandler{publisher: publisher, targets: enabled}
}

// CreateMirror handles POST /api/mirror
func (h *MirrorHandler) CreateMirror(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req struct {
		Target jobs.Target `json:"target"`
		DryRun bool        `json:"dry_run"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Target.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "target must be sqlite or bigquery")
		return
	}
	if !h.targets[req.Target] {
		middleware.WriteError(w, http.StatusBadRequest, "target "+string(req.Target)+" is not configured")
		return
	}

	job := &jobs.MirrorJob{Target: req.Target, DryRun: req.DryRun}
	if err := h.publisher.PublishMirror(ctx, job); err != nil {
		log.Error().Err(err).Str("target", string(req.Target)).Msg("Failed to enqueue mirror job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue mirror job")
		return
	}

	log.Info().
		Str("job_id", job.JobID).
		Str("target", string(job.Target)).
		Bool("dry_run", job.DryRun).
		Msg("Mirror job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":  job.JobID,
		"target":  job.Target,
		"dry_run": job.DryRun,
		"status":  job.Status,
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/:jobId
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := jobs.JobFilter{
		Target: jobs.Target(query.Get("target")),
		Status: jobs.JobStatus(query.Get("status")),
		Limit:  50,
	}
	if filter.Target != "" && !filter.Target.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid target")
		return
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		filter.Limit = limit
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		filter.Offset = offset
	}

	jobList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		lg := logger.FromContext(ctx)
		lg.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobList,
		"count": len(jobList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
