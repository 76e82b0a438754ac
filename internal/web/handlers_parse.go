package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/intake/internal/core"
)

// maxJSONBody caps small JSON request bodies.
const maxJSONBody = 1 << 20

// handleParse maps and validates an upload without storing it.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")

	data, _, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	result, err := s.service.Parse(data, dataset)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// matrixDetectRequest is the body of POST /api/matrix/detect.
type matrixDetectRequest struct {
	Headers []string `json:"headers"`
}

// handleMatrixDetect reports whether a header row looks like an
// entity-by-date grid.
func (s *Server) handleMatrixDetect(w http.ResponseWriter, r *http.Request) {
	var req matrixDetectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, errBadJSON, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"matrix": core.IsTransposedMatrix(req.Headers)})
}

// handleMatrixMelt melts an uploaded grid into per-entity totals.
func (s *Server) handleMatrixMelt(w http.ResponseWriter, r *http.Request) {
	data, _, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	result, err := core.MeltFile(data)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"matrix":       result,
		"averageTotal": result.AverageTotal(),
	})
}
