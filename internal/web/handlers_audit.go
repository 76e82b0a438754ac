package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/intake/internal/core"
)

// handleListAudit returns the newest audit entries of the caller's tenant.
// ?limit= defaults to core.DefaultAuditLimit.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	scope, err := requestScope(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	limit := parseIntParam(r, "limit", core.DefaultAuditLimit)
	entries, err := s.service.ListAudit(r.Context(), scope.TenantID, limit)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

// handleGetCursor returns when a dataset last synced. A pair that never
// synced answers 200 with synced=false.
func (s *Server) handleGetCursor(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")

	scope, err := requestScope(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if _, err := core.Lookup(dataset); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	cur, ok, err := s.service.GetSyncCursor(r.Context(), scope.TenantID, dataset)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	resp := map[string]any{"synced": ok}
	if ok {
		resp["cursor"] = cur
	}
	writeJSON(w, http.StatusOK, resp)
}
