package handlers

import (
	"net/http"
	"strings"

	"github.com/atmagaming/finances/internal/api/middleware"
)

// Routes wires the handlers onto a new ServeMux.
func Routes(data *DataHandler, mirror *MirrorHandler, jobsHandler *JobsHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/data/all", method(http.MethodGet, data.All))
	mux.HandleFunc("/api/data/transactions", method(http.MethodGet, data.Transactions))
	mux.HandleFunc("/api/data/refresh", method(http.MethodPost, data.Refresh))
	mux.HandleFunc("/api/mirror", method(http.MethodPost, mirror.CreateMirror))

	mux.HandleFunc("/api/jobs", method(http.MethodGet, jobsHandler.ListJobs))
	mux.HandleFunc("/api/jobs/", method(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
		if jobID == "" || strings.Contains(jobID, "/") {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		jobsHandler.GetJob(w, r, jobID)
	}))

	mux.HandleFunc("/health", method(http.MethodGet, Health))

	return mux
}

func method(want string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != want {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		next(w, r)
	}
}
