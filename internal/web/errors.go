package web

// errors.go is the single exit point for handler failures.
//
// Every error is logged with full technical detail server-side, then mapped
// through core.MapError into a stable user-facing message, action, and code.
// The HTTP status comes from the sentinel taxonomy: client mistakes are 4xx,
// engine-side failures are 502, everything unclassified is 500.

import (
	"context"
	"errors"
	"net/http"

	"github.com/tableport/tableport/internal/core"
	"github.com/tableport/tableport/internal/logging"
)

// ErrorResponse is the JSON body for every failed request. Result is set
// for upload failures that reached the exporter, so clients can inspect the
// rendered DDL and the rollback outcome.
type ErrorResponse struct {
	Error   string           `json:"error"`
	Message string           `json:"message"`
	Action  string           `json:"action,omitempty"`
	Code    string           `json:"code"`
	Result  *core.LoadResult `json:"result,omitempty"`
}

// respondError logs err and writes its user-facing rendering.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondErrorResult(w, r, err, nil)
}

// respondErrorResult is respondError plus the partial load result, when the
// pipeline got far enough to produce one.
func (s *Server) respondErrorResult(w http.ResponseWriter, r *http.Request, err error, res *core.LoadResult) {
	status := statusForError(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	logger.Error("request failed",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", userMsg.Code,
		"error", err,
	)

	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "30")
	}

	writeJSON(w, status, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
		Result:  res,
	})
}

// statusForError maps the error taxonomy to HTTP status codes.
func statusForError(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge

	case errors.Is(err, core.ErrConfigValidation),
		errors.Is(err, core.ErrUnsupportedImportType),
		errors.Is(err, core.ErrUnsupportedStorageFormat),
		errors.Is(err, core.ErrSourceRead),
		errors.Is(err, core.ErrSchemaInference),
		errors.Is(err, core.ErrRender):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrUnsupportedEngine),
		errors.Is(err, core.ErrExecutionNotFound),
		errors.Is(err, core.ErrUploadNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusTooManyRequests

	case errors.Is(err, core.ErrStage),
		errors.Is(err, core.ErrCreate),
		errors.Is(err, core.ErrLoad):
		return http.StatusBadGateway

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}
