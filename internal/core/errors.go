package core

// errors.go defines the pipeline's error taxonomy. Each failure class has a
// sentinel so callers can branch with errors.Is; stage failures wrap the
// sentinel together with the underlying cause.

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigValidation rejects a malformed or incomplete ImportConfig or
	// TableConfig before any pipeline work begins.
	ErrConfigValidation = errors.New("invalid configuration")

	// ErrUnsupportedImportType rejects an ImportConfig whose type tag has no
	// registered importer variant.
	ErrUnsupportedImportType = errors.New("unsupported import type")

	// ErrUnsupportedEngine rejects an upload whose engine id is unknown or
	// whose dialect tag has no registered renderer.
	ErrUnsupportedEngine = errors.New("unsupported engine")

	// ErrUnsupportedStorageFormat rejects a storage format the resolved
	// dialect renderer cannot express.
	ErrUnsupportedStorageFormat = errors.New("unsupported storage format")

	// ErrSourceRead marks a source that could not be opened or decoded.
	ErrSourceRead = errors.New("source read failed")

	// ErrSchemaInference marks input from which no schema can be inferred,
	// e.g. a source with zero columns.
	ErrSchemaInference = errors.New("schema inference failed")

	// ErrRender marks a dialect rendering failure. Nothing was executed.
	ErrRender = errors.New("ddl rendering failed")

	// ErrStage marks a staging failure while populating the external
	// storage location. No table exists.
	ErrStage = errors.New("staging failed")

	// ErrCreate marks a rejected CREATE statement. No table exists.
	ErrCreate = errors.New("table creation failed")

	// ErrLoad marks a row-loading failure after the table was created.
	// A rollback is attempted; the LoadResult reports its outcome.
	ErrLoad = errors.New("row loading failed")

	// ErrExecutionNotFound marks an unknown prior query execution id.
	ErrExecutionNotFound = errors.New("query execution not found")

	// ErrTooManyUploads rejects an upload while the concurrency limiter is
	// saturated. The request can be retried.
	ErrTooManyUploads = errors.New("too many concurrent uploads")

	// ErrUploadNotFound marks an unknown upload record id.
	ErrUploadNotFound = errors.New("upload not found")
)

// configErrorf wraps ErrConfigValidation with a formatted detail message.
func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfigValidation, fmt.Sprintf(format, args...))
}

// sourceReadError wraps ErrSourceRead with the underlying cause.
func sourceReadError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrSourceRead, err)
}

// FailureStage names the pipeline stage a wrapped error belongs to, or ""
// when the error is not a staged pipeline failure. Useful for logging and
// for the HTTP layer's error codes.
func FailureStage(err error) UploadState {
	switch {
	case errors.Is(err, ErrRender), errors.Is(err, ErrUnsupportedStorageFormat):
		return StateRendering
	case errors.Is(err, ErrStage):
		return StateStaging
	case errors.Is(err, ErrCreate):
		return StateCreating
	case errors.Is(err, ErrLoad):
		return StateLoading
	}
	return ""
}
