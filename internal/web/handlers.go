package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tableport/tableport/internal/core"
)

// uploadForm is the parsed multipart payload shared by preview and upload.
type uploadForm struct {
	Import   core.ImportConfig
	Table    core.TableConfig
	EngineID string
	Source   core.Source

	file multipart.File
}

// Close releases the uploaded file, if one was sent.
func (f *uploadForm) Close() {
	if f.file != nil {
		f.file.Close()
	}
}

// parseUploadForm decodes the multipart fields import_config, table_config,
// engine_id and the file part. table_config and engine_id are only required
// when wantTable is set (uploads); previews need just the import config.
//
// The file part is optional for query_result imports, whose rows come from
// the results store rather than the request body.
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request, wantTable bool) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: multipart form: %v", core.ErrConfigValidation, err)
	}

	form := &uploadForm{}

	raw := r.FormValue("import_config")
	if raw == "" {
		return nil, fmt.Errorf("%w: import_config field is required", core.ErrConfigValidation)
	}
	if err := json.Unmarshal([]byte(raw), &form.Import); err != nil {
		return nil, fmt.Errorf("%w: import_config is not valid JSON: %v", core.ErrConfigValidation, err)
	}

	if wantTable {
		raw = r.FormValue("table_config")
		if raw == "" {
			return nil, fmt.Errorf("%w: table_config field is required", core.ErrConfigValidation)
		}
		if err := json.Unmarshal([]byte(raw), &form.Table); err != nil {
			return nil, fmt.Errorf("%w: table_config is not valid JSON: %v", core.ErrConfigValidation, err)
		}
		form.EngineID = r.FormValue("engine_id")
	}

	file, _, err := r.FormFile("file")
	switch {
	case err == nil:
		form.file = file
		form.Source = core.NewSeekerSource(file)
	case errors.Is(err, http.ErrMissingFile) && form.Import.Type == core.ImportQueryResult:
		// Rows are fetched server-side by execution id
		form.Source = core.NewBytesSource(nil)
	case errors.Is(err, http.ErrMissingFile):
		return nil, fmt.Errorf("%w: file part is required", core.ErrConfigValidation)
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: file part: %v", core.ErrConfigValidation, err)
	}

	return form, nil
}

// handlePreview infers a schema from the posted source and returns it with
// a short row sample. Nothing touches an engine.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseUploadForm(w, r, false)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer form.Close()

	res, err := s.service.Preview(r.Context(), form.Import, form.Source)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleUpload runs the full pipeline: parse, infer, render, stage, create,
// load. On failure the response still carries the partial LoadResult so
// clients can see the DDL and whether the rollback succeeded.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	form, err := s.parseUploadForm(w, r, true)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer form.Close()

	req := core.UploadRequest{
		Import:   form.Import,
		Table:    form.Table,
		EngineID: form.EngineID,
	}

	ctx := WithRequestMetadata(r.Context(), r)
	res, err := s.service.Upload(ctx, req, form.Source)
	if err != nil {
		s.respondErrorResult(w, r, err, res)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleListEngines returns the engine ids this deployment serves.
func (s *Server) handleListEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"engines": s.engines.EngineIDs(),
	})
}

// handleListUploads returns recent upload records, newest first.
func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 0)

	recs, err := s.service.ListUploads(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"uploads": recs,
		"count":   len(recs),
	})
}

// handleGetUpload returns one upload record by id.
func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uploadID")

	rec, err := s.service.GetUpload(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleHealthz reports liveness plus the upload limiter's occupancy.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"uploads": s.service.LimiterStatus(),
	})
}

// handleReadyz reports readiness: failing while draining for shutdown, and
// failing when the metadata database (if configured) does not answer.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}

	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"error":  "metadata database unreachable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

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
