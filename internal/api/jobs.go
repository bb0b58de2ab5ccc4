package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/comsa33/data-collector/internal/store"
)

// handleGetJob exposes a job's observable state: status, error detail, and
// the result reference once one exists. Callers that outlived the poll
// budget can still find their orphaned job here.
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	job, err := s.store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeFail(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		s.logger.Error("get job", "error", err)
		s.writeFail(w, http.StatusInternalServerError, "failed to get job")
		return
	}

	s.writeJSON(w, http.StatusOK, job)
}
