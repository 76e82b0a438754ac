package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/intake/internal/config"
	"github.com/JonMunkholm/intake/internal/core"
)

// AnonymousPrincipal is attached to every request when API keys are not
// required.
const AnonymousPrincipal = "anonymous"

// apiKey is one configured credential.
type apiKey struct {
	principal string
	key       []byte
}

// parseAPIKeys splits "principal:key" entries. A bare key authenticates as
// "api-key-N", N being its 1-based position.
func parseAPIKeys(entries []string) []apiKey {
	keys := make([]apiKey, 0, len(entries))
	for i, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		principal, key, ok := strings.Cut(e, ":")
		if !ok || principal == "" {
			principal, key = "api-key-"+strconv.Itoa(i+1), e
		}
		keys = append(keys, apiKey{principal: principal, key: []byte(key)})
	}
	return keys
}

// APIKeyAuth validates the X-API-Key header and stores the matching
// principal in the request context, where core.Service.Ingest requires it.
// If RequireAPIKey is false every request runs as AnonymousPrincipal.
// If RequireAPIKey is true but no keys are configured, all requests are rejected.
func APIKeyAuth(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	keys := parseAPIKeys(cfg.APIKeys)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.RequireAPIKey {
				ctx := core.ContextWithPrincipal(r.Context(), AnonymousPrincipal)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			provided := r.Header.Get("X-API-Key")
			if provided == "" {
				slog.Warn("auth: missing API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH_MISSING_KEY")
				return
			}

			principal, ok := matchAPIKey(provided, keys)
			if !ok {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH_INVALID_KEY")
				return
			}

			ctx := core.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchAPIKey compares against every configured key in constant time, so
// the response time does not reveal which key (if any) matched.
func matchAPIKey(provided string, keys []apiKey) (string, bool) {
	var principal string
	matched := 0
	for _, k := range keys {
		if subtle.ConstantTimeCompare([]byte(provided), k.key) == 1 && matched == 0 {
			principal = k.principal
			matched = 1
		}
	}
	return principal, matched == 1
}

func writeAuthError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `","code":"` + code + `"}`))
}
