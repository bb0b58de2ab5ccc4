package api

import "net/http"

// handleListRunners returns every registered runner type with its display
// name and configuration schema, for the configuration UI. Schemas describe
// fields; they carry no secret values.
func (s *Server) handleListRunners(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.registry.List())
}
