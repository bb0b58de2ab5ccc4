package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/comsa33/data-collector/internal/model"
	"github.com/comsa33/data-collector/internal/store"
)

// testConnectionTimeout bounds the synchronous connectivity probe.
const testConnectionTimeout = 15 * time.Second

// createDataSourceRequest is the JSON body for POST /api/data_sources.
type createDataSourceRequest struct {
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Options map[string]any `json:"options"`
}

// dataSourceResponse is a data source with secret option values masked.
// Raw options never leave the server.
type dataSourceResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Type      string         `json:"type"`
	Options   map[string]any `json:"options"`
	CreatedAt time.Time      `json:"created_at"`
}

func (s *Server) maskDataSource(ds *model.DataSource) dataSourceResponse {
	// Without a registered factory there is no schema to say which fields
	// are secret, so withhold the options entirely.
	var options map[string]any
	if f, err := s.registry.Lookup(ds.Type); err == nil {
		options = f.ConfigurationSchema().MaskOptions(ds.Options)
	}
	return dataSourceResponse{
		ID:        ds.ID,
		Name:      ds.Name,
		Type:      ds.Type,
		Options:   options,
		CreatedAt: ds.CreatedAt,
	}
}

func (s *Server) handleCreateDataSource(w http.ResponseWriter, r *http.Request) {
	var req createDataSourceRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeFail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Name == "" {
		s.writeFail(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Type == "" {
		s.writeFail(w, http.StatusBadRequest, "type is required")
		return
	}

	factory, err := s.registry.Lookup(req.Type)
	if err != nil {
		s.writeFail(w, http.StatusBadRequest, fmt.Sprintf("unknown runner type %q", req.Type))
		return
	}

	if req.Options == nil {
		req.Options = map[string]any{}
	}
	if missing := factory.ConfigurationSchema().MissingRequired(req.Options); len(missing) > 0 {
		s.writeFail(w, http.StatusBadRequest,
			fmt.Sprintf("missing required options: %s", strings.Join(missing, ", ")))
		return
	}

	ds := &model.DataSource{
		ID:        model.NewID(),
		Name:      req.Name,
		Type:      req.Type,
		Options:   req.Options,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateDataSource(r.Context(), ds); err != nil {
		if errors.Is(err, store.ErrDuplicateName) {
			s.writeFail(w, http.StatusConflict, fmt.Sprintf("data source %q already exists", req.Name))
			return
		}
		s.logger.Error("create data source", "error", err)
		s.writeFail(w, http.StatusInternalServerError, "failed to create data source")
		return
	}

	s.writeJSON(w, http.StatusCreated, s.maskDataSource(ds))
}

func (s *Server) handleListDataSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListDataSources(r.Context())
	if err != nil {
		s.logger.Error("list data sources", "error", err)
		s.writeFail(w, http.StatusInternalServerError, "failed to list data sources")
		return
	}

	resp := make([]dataSourceResponse, 0, len(sources))
	for _, ds := range sources {
		resp = append(resp, s.maskDataSource(ds))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDataSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ds, err := s.store.GetDataSource(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeFail(w, http.StatusNotFound, "data source not found")
		return
	}
	if err != nil {
		s.logger.Error("get data source", "error", err)
		s.writeFail(w, http.StatusInternalServerError, "failed to get data source")
		return
	}

	s.writeJSON(w, http.StatusOK, s.maskDataSource(ds))
}

func (s *Server) handleDeleteDataSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteDataSource(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeFail(w, http.StatusNotFound, "data source not found")
			return
		}
		s.logger.Error("delete data source", "error", err)
		s.writeFail(w, http.StatusInternalServerError, "failed to delete data source")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleTestDataSource probes connectivity synchronously, without involving
// the job queue. The response carries only the runner's single collapsed
// connectivity message, never backend-specific detail.
func (s *Server) handleTestDataSource(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ds, err := s.store.GetDataSource(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeFail(w, http.StatusNotFound, "data source not found")
		return
	}
	if err != nil {
		s.logger.Error("get data source", "error", err)
		s.writeFail(w, http.StatusInternalServerError, "failed to get data source")
		return
	}

	factory, err := s.registry.Lookup(ds.Type)
	if err != nil {
		s.writeFail(w, http.StatusBadRequest, fmt.Sprintf("unknown runner type %q", ds.Type))
		return
	}

	rn, err := factory.New(ds.Options)
	if err != nil {
		s.writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), testConnectionTimeout)
	defer cancel()

	if err := rn.TestConnection(ctx); err != nil {
		s.logger.Error("connection test failed", "data_source", ds.Name, "error", err)
		s.writeFail(w, http.StatusBadRequest, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
