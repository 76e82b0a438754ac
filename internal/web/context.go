package web

import (
	"net/http"
	"strings"

	"github.com/JonMunkholm/intake/internal/core"
)

// Tenant and branch travel in headers so the same multipart body can be
// replayed against another tenant.
const (
	headerTenant = "X-Tenant-ID"
	headerBranch = "X-Branch-ID"
)

// requestScope reads the tenant (required) and branch (optional).
// The tenant is the first segment of every object key, so separators and
// dot segments are refused.
func requestScope(r *http.Request) (core.Scope, error) {
	scope := core.Scope{
		TenantID: strings.TrimSpace(r.Header.Get(headerTenant)),
		BranchID: strings.TrimSpace(r.Header.Get(headerBranch)),
	}
	if scope.TenantID == "" {
		return core.Scope{}, errNoTenant
	}
	if strings.ContainsAny(scope.TenantID, `/\`) || strings.Contains(scope.TenantID, "..") {
		return core.Scope{}, errBadTenant
	}
	return scope, nil
}
