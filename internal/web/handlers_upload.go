package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
)

// handleIngest parses, stores and audits one uploaded file.
//
// Form fields: file (required), source_kind (optional, default "manual").
// Headers: X-Tenant-ID (required), X-Branch-ID (optional).
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")

	scope, err := requestScope(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	data, filename, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ctx := r.Context()
	if s.cfg.Upload.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Upload.Timeout)
		defer cancel()
	}

	result, err := s.service.Ingest(ctx, core.IngestRequest{
		TenantID:    scope.TenantID,
		BranchID:    scope.BranchID,
		DatasetKind: dataset,
		Filename:    filename,
		SourceKind:  r.FormValue("source_kind"),
		Data:        data,
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	logging.FromContext(ctx).Info("ingest completed",
		"tenant", scope.TenantID,
		"dataset", dataset,
		"rows", result.Parse.RowCount,
		"artifact", result.Upload.ArtifactPath,
		"duplicate", result.Upload.Duplicate,
	)

	status := http.StatusCreated
	if result.Upload.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, result)
}
