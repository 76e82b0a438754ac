package web

// errors.go turns pipeline errors into HTTP responses.
//
// The technical error is logged with the request id; the client receives
// the user message from core.MapError with its support code:
//
//	{"error": "...", "message": "...", "action": "...", "code": "VAL004", "requestId": "..."}
//
// Persistence and storage failures also carry the underlying message in
// "detail" so support can diagnose them without the server logs.

import (
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
)

var (
	errNoFile       = errors.New("no file provided")
	errFileTooLarge = errors.New("file too large")
	errNoTenant     = errors.New("missing tenant: set the X-Tenant-ID header")
	errBadTenant    = errors.New(`invalid tenant: X-Tenant-ID must not contain '/', '\' or '..'`)
	errBadJSON      = errors.New("invalid JSON body")
)

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Message   string   `json:"message"`
	Action    string   `json:"action,omitempty"`
	Code      string   `json:"code"`
	Missing   []string `json:"missing,omitempty"`
	Detail    string   `json:"detail,omitempty"`
	RequestID string   `json:"requestId,omitempty"`
}

// respondError logs err and writes its user-facing form. A zero status is
// derived from the error type.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	if status == 0 {
		status = statusFor(err)
	}
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= 500 {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	resp := ErrorResponse{
		Error:     msg.Message,
		Message:   msg.Message,
		Action:    msg.Action,
		Code:      msg.Code,
		RequestID: chimw.GetReqID(r.Context()),
	}
	var se *core.StructuralError
	if errors.As(err, &se) {
		resp.Missing = se.Missing
	}
	if status >= 500 && isSideEffectFailure(err) {
		resp.Detail = err.Error()
	}
	writeJSON(w, status, resp)
}

// isSideEffectFailure reports persistence, artifact and manifest failures.
func isSideEffectFailure(err error) bool {
	var (
		de *core.PersistError
		oe *core.StorageError
	)
	return errors.As(err, &de) || errors.As(err, &oe)
}

// statusFor picks the HTTP status of a pipeline error.
func statusFor(err error) int {
	var (
		se  *core.StructuralError
		pe  *core.ParseError
		ae  *core.AuthError
		de  *core.PersistError
		oe  *core.StorageError
		te  *core.TimeoutError
		ve  core.ValidationError
		ves validator.ValidationErrors
	)
	switch {
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.As(err, &te):
		return http.StatusGatewayTimeout
	case errors.As(err, &se):
		return http.StatusUnprocessableEntity
	case errors.As(err, &de):
		if errors.As(err, &ve) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusInternalServerError
	case errors.As(err, &oe):
		return http.StatusBadGateway
	case errors.As(err, &pe),
		errors.As(err, &ves),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrNotMatrix),
		errors.Is(err, core.ErrNoRelationalBinding),
		errors.Is(err, errNoFile),
		errors.Is(err, errNoTenant),
		errors.Is(err, errBadTenant),
		errors.Is(err, errBadJSON):
		return http.StatusBadRequest
	case errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnknownDataset):
		return http.StatusNotFound
	case errors.Is(err, core.ErrIngestInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyUploads), errors.Is(err, core.ErrNoStore):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
