package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atmagaming/finances/internal/dashboard"
	"github.com/atmagaming/finances/internal/data"
	"github.com/atmagaming/finances/internal/domain"
	"github.com/atmagaming/finances/internal/jobs"
	"github.com/atmagaming/finances/internal/jobs/inmemory"
)

type fakeService struct {
	snap      *data.Snapshot
	err       error
	refreshed int
}

func (f *fakeService) All(ctx context.Context) (*data.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeService) Refresh() { f.refreshed++ }

func (f *fakeService) Now() time.Time {
	return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)
}

type fakePublisher struct {
	published []*jobs.MirrorJob
	err       error
}

func (f *fakePublisher) PublishMirror(ctx context.Context, job *jobs.MirrorJob) error {
	if f.err != nil {
		return f.err
	}
	job.JobID = "job-1"
	job.Status = jobs.JobStatusPending
	f.published = append(f.published, job)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func testSnapshot() *data.Snapshot {
	return &data.Snapshot{
		People: []domain.Person{{ID: "person-alice", Name: "Alice"}},
		Payees: []domain.Payee{
			{ID: "payee-alice", Name: "Alice", PersonID: "person-alice"},
			{ID: "payee-host", Name: "Hosting Inc"},
		},
		SensitiveData: []domain.SensitiveData{
			{ID: "sd-a", PersonID: "person-alice", Status: domain.StatusActive, HoursPerWeek: 40, HourlyPaid: 10, MonthlyPaid: 1700, MonthlyTotal: 1700},
		},
		Transactions: []domain.Transaction{
			{ID: "tx-1", PayeeID: "payee-alice", Method: domain.MethodAccrued, Amount: -300, USDEquivalent: -300, LogicalDate: "2024-01-15"},
			{ID: "tx-2", PayeeID: "payee-host", Method: domain.MethodPaid, Amount: -50, USDEquivalent: -50, LogicalDate: "2024-02-01"},
			{ID: "tx-3", PayeeID: "payee-host", Method: domain.MethodPaid, Amount: -20, USDEquivalent: -20, LogicalDate: "2024-01-31"},
		},
	}
}

type fixture struct {
	service   *fakeService
	publisher *fakePublisher
	store     *inmemory.Store
	mux       http.Handler
}

func newFixture() *fixture {
	f := &fixture{
		service:   &fakeService{snap: testSnapshot()},
		publisher: &fakePublisher{},
		store:     inmemory.NewStore(),
	}
	f.mux = Routes(
		NewDataHandler(f.service, "2024-06"),
		NewMirrorHandler(f.publisher, jobs.TargetSQLite),
		NewJobsHandler(f.store),
	)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestDataAll(t *testing.T) {
	tests := []struct {
		name        string
		target      string
		wantStatus  int
		wantRelease string
	}{
		{"default release month", "/api/data/all", http.StatusOK, "2024-06"},
		{"explicit end", "/api/data/all?end=2024-04", http.StatusOK, "2024-04"},
		{"malformed end", "/api/data/all?end=2024-4", http.StatusBadRequest, ""},
		{"month out of range", "/api/data/all?end=2024-13", http.StatusBadRequest, ""},
		{"year out of range", "/api/data/all?end=9999-12", http.StatusBadRequest, ""},
		{"three-digit year", "/api/data/all?end=0999-12", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFixture().do(http.MethodGet, tt.target, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var report dashboard.Report
			decode(t, rec, &report)
			if report.ReleaseMonth != tt.wantRelease {
				t.Errorf("ReleaseMonth = %q, want %q", report.ReleaseMonth, tt.wantRelease)
			}
			if report.TeamCount != 1 {
				t.Errorf("TeamCount = %d, want 1", report.TeamCount)
			}
			if len(report.MonthlyExpenses) != 2 {
				t.Errorf("MonthlyExpenses has %d months, want 2", len(report.MonthlyExpenses))
			}
		})
	}
}

func TestDataAll_ServiceError(t *testing.T) {
	f := newFixture()
	f.service.err = errors.New("notion down")

	rec := f.do(http.MethodGet, "/api/data/all", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestDataTransactions(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantIDs    []string
	}{
		{"all newest first", "/api/data/transactions", http.StatusOK, []string{"tx-2", "tx-3", "tx-1"}},
		{"by month", "/api/data/transactions?month=2024-01", http.StatusOK, []string{"tx-3", "tx-1"}},
		{"by method", "/api/data/transactions?method=Paid", http.StatusOK, []string{"tx-2", "tx-3"}},
		{"month and method", "/api/data/transactions?month=2024-01&method=Accrued", http.StatusOK, []string{"tx-1"}},
		{"bad month", "/api/data/transactions?month=January", http.StatusBadRequest, nil},
		{"bad method", "/api/data/transactions?method=Gift", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := newFixture().do(http.MethodGet, tt.target, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			var body struct {
				Transactions []domain.Transaction `json:"transactions"`
				Count        int                  `json:"count"`
			}
			decode(t, rec, &body)
			if body.Count != len(tt.wantIDs) {
				t.Fatalf("count = %d, want %d", body.Count, len(tt.wantIDs))
			}
			for i, tx := range body.Transactions {
				if tx.ID != tt.wantIDs[i] {
					t.Errorf("transactions[%d] = %s, want %s", i, tx.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestDataRefresh(t *testing.T) {
	f := newFixture()

	if rec := f.do(http.MethodGet, "/api/data/refresh", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
	if rec := f.do(http.MethodPost, "/api/data/refresh", ""); rec.Code != http.StatusOK {
		t.Errorf("POST status = %d, want 200", rec.Code)
	}
	if f.service.refreshed != 1 {
		t.Errorf("refreshed %d times, want 1", f.service.refreshed)
	}
}

func TestCreateMirror(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"sqlite dry run", `{"target":"sqlite","dry_run":true}`, http.StatusAccepted},
		{"unconfigured target", `{"target":"bigquery"}`, http.StatusBadRequest},
		{"unknown target", `{"target":"postgres"}`, http.StatusBadRequest},
		{"invalid body", `{`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			rec := f.do(http.MethodPost, "/api/mirror", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusAccepted {
				if len(f.publisher.published) != 0 {
					t.Error("rejected request was published")
				}
				return
			}

			var body map[string]interface{}
			decode(t, rec, &body)
			if body["job_id"] != "job-1" || body["status"] != "pending" || body["dry_run"] != true {
				t.Errorf("body = %v", body)
			}
			if len(f.publisher.published) != 1 || f.publisher.published[0].Target != jobs.TargetSQLite {
				t.Errorf("published = %+v", f.publisher.published)
			}
		})
	}
}

func TestCreateMirror_PublishError(t *testing.T) {
	f := newFixture()
	f.publisher.err = jobs.ErrQueueClosed

	rec := f.do(http.MethodPost, "/api/mirror", `{"target":"sqlite"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestJobs(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, job := range []*jobs.MirrorJob{
		{JobID: "a", Target: jobs.TargetSQLite, Status: jobs.JobStatusCompleted, CreatedAt: base},
		{JobID: "b", Target: jobs.TargetBigQuery, Status: jobs.JobStatusFailed, CreatedAt: base.Add(time.Hour)},
		{JobID: "c", Target: jobs.TargetSQLite, Status: jobs.JobStatusPending, CreatedAt: base.Add(2 * time.Hour)},
	} {
		if err := f.store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob %d: %v", i, err)
		}
	}

	t.Run("get", func(t *testing.T) {
		rec := f.do(http.MethodGet, "/api/jobs/b", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var job jobs.MirrorJob
		decode(t, rec, &job)
		if job.JobID != "b" || job.Target != jobs.TargetBigQuery {
			t.Errorf("job = %+v", job)
		}
	})

	t.Run("get unknown", func(t *testing.T) {
		if rec := f.do(http.MethodGet, "/api/jobs/zzz", ""); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	listTests := []struct {
		name       string
		target     string
		wantStatus int
		wantIDs    []string
	}{
		{"all newest first", "/api/jobs", http.StatusOK, []string{"c", "b", "a"}},
		{"by target", "/api/jobs?target=sqlite", http.StatusOK, []string{"c", "a"}},
		{"by status", "/api/jobs?status=failed", http.StatusOK, []string{"b"}},
		{"paged", "/api/jobs?limit=1&offset=1", http.StatusOK, []string{"b"}},
		{"bad limit", "/api/jobs?limit=x", http.StatusBadRequest, nil},
		{"bad target", "/api/jobs?target=s3", http.StatusBadRequest, nil},
	}
	for _, tt := range listTests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodGet, tt.target, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var body struct {
				Jobs  []jobs.MirrorJob `json:"jobs"`
				Count int              `json:"count"`
			}
			decode(t, rec, &body)
			if body.Count != len(tt.wantIDs) {
				t.Fatalf("count = %d, want %d", body.Count, len(tt.wantIDs))
			}
			for i, job := range body.Jobs {
				if job.JobID != tt.wantIDs[i] {
					t.Errorf("jobs[%d] = %s, want %s", i, job.JobID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestHealth(t *testing.T) {
	rec := newFixture().do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if body["status"] != "healthy" {
		t.Errorf("status = %q", body["status"])
	}
}
