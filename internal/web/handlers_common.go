package web

// handlers_common.go holds request helpers shared by the handlers, plus
// the small read-only endpoints.

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/intake/internal/core"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// healthTimeout bounds all /healthz probes together.
const healthTimeout = 3 * time.Second

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// readUpload reads the "file" part of a multipart body, capped at the
// configured maximum upload size.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (data []byte, filename string, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", errFileTooLarge
		}
		return nil, "", errNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", core.ErrEmptyFile
	}
	return data, header.Filename, nil
}

// datasetInfo is the public view of a registered dataset.
type datasetInfo struct {
	Name         string   `json:"name"`
	Label        string   `json:"label"`
	Required     []string `json:"required"`
	Optional     []string `json:"optional"`
	PersistsRows bool     `json:"persistsRows"`
}

// handleListDatasets returns every registered dataset.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	all := s.service.ListDatasets()
	out := make([]datasetInfo, len(all))
	for i, d := range all {
		out[i] = datasetInfo{
			Name:         d.Name,
			Label:        d.Label,
			Required:     nonNil(d.Required),
			Optional:     nonNil(d.Optional),
			PersistsRows: d.PersistsRows(),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"datasets": out})
}

// handleHealth runs every registered probe. Any failure answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for _, c := range s.checks {
		if err := c.check(ctx); err != nil {
			checks[c.name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": checks,
		"uploads": map[string]int{
			"active":    s.service.Limiter().ActiveCount(),
			"available": s.service.Limiter().Available(),
		},
	})
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
