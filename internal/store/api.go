package store

import (
	"net/http"

	"github.com/banshee-data/larva.report/internal/httputil"
)

// handleRuns serves the runs of one batch as JSON (?batch=ID).
func (db *DB) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	batchID := r.URL.Query().Get("batch")
	if batchID == "" {
		httputil.BadRequest(w, "missing batch parameter")
		return
	}
	runs, err := db.ListRuns(r.Context(), batchID)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if runs == nil {
		runs = []Summary{}
	}
	httputil.WriteJSONOK(w, runs)
}

// handleRunMetrics serves the ordered metrics of one run as JSON (?run=ID).
func (db *DB) handleRunMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}
	runID := r.URL.Query().Get("run")
	if runID == "" {
		httputil.BadRequest(w, "missing run parameter")
		return
	}
	metrics, err := db.RunMetrics(r.Context(), runID)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if metrics == nil {
		metrics = []Metric{}
	}
	httputil.WriteJSONOK(w, metrics)
}
