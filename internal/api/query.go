package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/comsa33/data-collector/internal/model"
	"github.com/comsa33/data-collector/internal/store"
)

const maxBodySize = 1 << 20 // 1 MB

// pollAttempts bounds how long the submission endpoint waits for a job:
// up to pollAttempts refreshes with one poll interval of sleep between each.
// Exhausting the budget stops polling; the job itself keeps running.
const pollAttempts = 10

// Caller-visible messages for the submission endpoint. The three validation
// messages are deliberately distinct so a caller can tell exactly which
// fields were absent.
const (
	msgMissingFields    = "Request must include 'query' and 'db_name' fields."
	msgMissingQuery     = "Request must include 'query' fields."
	msgMissingDBName    = "Request must include 'db_name' fields."
	msgDatabaseNotFound = "Database name not found."
	msgQueryTimeout     = "Query execution timeout."
	msgQueryFailed      = "Query execution failed."
	msgSyntaxError      = "SQL syntax error."
	msgInternalError    = "Internal server error occurred. Please try again later."
)

// executeQueryRequest is the JSON body for POST /api/queries. Pointer fields
// distinguish absent keys from empty values for field-specific validation.
type executeQueryRequest struct {
	Query  *string `json:"query"`
	DBName *string `json:"db_name"`
}

// handleExecuteQuery accepts a query naming a data source, enqueues it on
// the execution engine, and blocks through a bounded poll loop until a
// result reference appears. On success only the row data of the resolved
// result is returned.
func (s *Server) handleExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req executeQueryRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeFail(w, http.StatusBadRequest, msgMissingFields)
		return
	}

	switch {
	case req.Query == nil && req.DBName == nil:
		s.writeFail(w, http.StatusBadRequest, msgMissingFields)
		return
	case req.Query == nil:
		s.writeFail(w, http.StatusBadRequest, msgMissingQuery)
		return
	case req.DBName == nil:
		s.writeFail(w, http.StatusBadRequest, msgMissingDBName)
		return
	}

	ds, err := s.store.GetDataSourceByName(r.Context(), *req.DBName)
	if errors.Is(err, store.ErrNotFound) {
		queriesTotal.WithLabelValues(outcomeNotFound).Inc()
		s.writeFail(w, http.StatusNotFound, msgDatabaseNotFound)
		return
	}
	if err != nil {
		s.logger.Error("resolve data source", "db_name", *req.DBName, "error", err)
		s.writeFail(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	// A data source whose type has no registered runner can never produce a
	// result; reject before enqueueing anything.
	if _, err := s.registry.Lookup(ds.Type); err != nil {
		queriesTotal.WithLabelValues(outcomeNotFound).Inc()
		s.writeFail(w, http.StatusNotFound, msgDatabaseNotFound)
		return
	}

	job := &model.Job{
		ID:           model.NewID(),
		Status:       model.JobPending,
		Query:        *req.Query,
		DataSourceID: ds.ID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.engine.Submit(r.Context(), job); err != nil {
		s.logger.Error("submit job", "error", err)
		s.writeFail(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	// Bounded sleep-then-refresh loop on the request-handling goroutine.
	// Worst case this occupies the handler for pollAttempts intervals.
	current := job
	for attempt := 0; attempt < pollAttempts && current.ResultID == nil; attempt++ {
		time.Sleep(s.pollInterval)

		current, err = s.store.GetJob(r.Context(), job.ID)
		if err != nil {
			s.logger.Error("refresh job", "job_id", job.ID, "error", err)
			s.writeFail(w, http.StatusInternalServerError, msgInternalError)
			return
		}

		if current.Status == model.JobFailed {
			if current.ErrorKind == model.ErrorKindSyntax {
				s.logger.Error("query syntax error", "job_id", job.ID, "error", current.Error)
				queriesTotal.WithLabelValues(outcomeSyntaxError).Inc()
				s.writeFail(w, http.StatusBadRequest, msgSyntaxError)
				return
			}
			s.logger.Error("query execution failed", "job_id", job.ID, "error", current.Error)
			queriesTotal.WithLabelValues(outcomeFailed).Inc()
			s.writeFail(w, http.StatusInternalServerError, msgInternalError)
			return
		}
	}

	if current.ResultID == nil {
		queriesTotal.WithLabelValues(outcomeTimeout).Inc()
		s.writeFail(w, http.StatusRequestTimeout, msgQueryTimeout)
		return
	}

	result, err := s.store.GetQueryResult(r.Context(), *current.ResultID)
	if errors.Is(err, store.ErrNotFound) {
		// The job finished and handed back a reference, but the payload is
		// gone. Distinct from a timeout.
		queriesTotal.WithLabelValues(outcomeFailed).Inc()
		s.writeFail(w, http.StatusInternalServerError, msgQueryFailed)
		return
	}
	if err != nil {
		s.logger.Error("resolve query result", "result_id", *current.ResultID, "error", err)
		s.writeFail(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	queriesTotal.WithLabelValues(outcomeSuccess).Inc()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"result": result.Rows,
	})
}
