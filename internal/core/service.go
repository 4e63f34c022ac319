// service.go is the public face of the upload pipeline. The HTTP handlers
// and the CLI both talk to a Service; everything below it (importers,
// renderers, executors, staging) is composed here.
package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Options carries the operational knobs for a Service. Zero values fall
// back to the defaults below.
type Options struct {
	// SampleLimit is the number of data rows inference examines.
	SampleLimit int

	// PreviewRows is how many sample rows Preview returns.
	PreviewRows int

	// BatchSize is the number of rows per insert batch.
	BatchSize int

	// MaxConcurrent caps uploads running at once.
	MaxConcurrent int

	// MaxWait is how long a request may wait for an upload slot.
	MaxWait time.Duration

	// UploadTimeout is the end-to-end budget for a single upload.
	UploadTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.SampleLimit <= 0 {
		o.SampleLimit = DefaultSampleLimit
	}
	if o.PreviewRows <= 0 {
		o.PreviewRows = 10
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 5
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 30 * time.Second
	}
	if o.UploadTimeout <= 0 {
		o.UploadTimeout = 10 * time.Minute
	}
	return o
}

// Service coordinates previews and uploads.
type Service struct {
	selector *ExporterSelector
	recorder UploadRecorder
	limiter  *UploadLimiter
	opts     Options
}

// NewService assembles a service over the configured engines. stager may be
// nil when no object store is configured; recorder may be nil to skip
// persistence.
func NewService(engines EngineCatalog, stager Stager, recorder UploadRecorder, opts Options) *Service {
	opts = opts.withDefaults()
	return &Service{
		selector: NewExporterSelector(engines, stager, opts.BatchSize),
		recorder: recorder,
		limiter:  NewUploadLimiter(opts.MaxConcurrent, opts.MaxWait),
		opts:     opts,
	}
}

// Preview infers the column schema of a source and returns it with a short
// row sample, without touching any engine. The source is read twice: once
// for inference, once for the sample.
func (s *Service) Preview(ctx context.Context, cfg ImportConfig, src Source) (*PreviewResult, error) {
	start := time.Now()

	imp, err := SelectImporter(cfg)
	if err != nil {
		return nil, err
	}

	limit := cfg.SampleLimit
	if limit <= 0 {
		limit = s.opts.SampleLimit
	}
	schema, err := imp.InferSchema(ctx, src, limit)
	if err != nil {
		return nil, err
	}

	samples, err := s.sampleRows(ctx, imp, src, len(schema))
	if err != nil {
		return nil, err
	}

	res := &PreviewResult{
		Columns:          schema,
		SampleRows:       samples,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	slog.Info("preview complete",
		"import_type", cfg.Type,
		"columns", len(schema),
		"sample_rows", len(samples),
		"duration_ms", res.ProcessingTimeMs,
	)
	return res, nil
}

func (s *Service) sampleRows(ctx context.Context, imp Importer, src Source, width int) ([][]string, error) {
	stream, err := imp.Rows(ctx, src)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	samples := make([][]string, 0, s.opts.PreviewRows)
	for len(samples) < s.opts.PreviewRows && stream.Next() {
		row := trimRowTo(width, stream.Row())
		clean := make([]string, len(row))
		for i, cell := range row {
			clean[i] = CleanCell(cell)
		}
		samples = append(samples, clean)
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// Upload runs the full pipeline for one request: claim an upload slot,
// build the importer and exporter, execute, and record the outcome. The
// result is non-nil whenever execution reached the exporter, including on
// failure, so callers can surface partial detail (DDL, rollback status)
// alongside the error.
func (s *Service) Upload(ctx context.Context, req UploadRequest, src Source) (*LoadResult, error) {
	start := time.Now()

	if req.EngineID == "" {
		return nil, configErrorf("engine id is required")
	}
	if err := req.Table.Validate(); err != nil {
		return nil, err
	}
	imp, err := SelectImporter(req.Import)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		slog.Warn("upload rejected",
			"table", req.Table.Name,
			"engine", req.EngineID,
			"active", s.limiter.Active(),
			"error", err,
		)
		return nil, err
	}
	defer s.limiter.Release()

	uploadID := uuid.NewString()
	log := slog.With("upload_id", uploadID, "table", req.Table.Name, "engine", req.EngineID)
	log.Info("upload started",
		"import_type", req.Import.Type,
		"format", req.Table.Format,
		"columns", len(req.Table.Schema),
	)

	uctx, cancel := context.WithTimeout(ctx, s.opts.UploadTimeout)
	defer cancel()

	exp, err := s.selector.Select(uctx, req.EngineID)
	if err != nil {
		log.Error("upload failed", "stage", "connect", "error", err)
		return nil, err
	}
	defer exp.Close()

	res, err := exp.Upload(uctx, imp, src, req.Table)
	res.UploadID = uploadID
	res.Duration = time.Since(start)
	s.record(ctx, req, res)

	if err != nil {
		log.Error("upload failed",
			"stage", string(FailureStage(err)),
			"rows", res.Rows,
			"rolled_back", res.RolledBack,
			"duration_ms", res.Duration.Milliseconds(),
			"error", err,
		)
		return res, err
	}

	log.Info("upload committed",
		"rows", res.Rows,
		"location", res.Location,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// record persists the outcome. Recording failures are logged, never
// surfaced: the upload's fate is already decided.
func (s *Service) record(ctx context.Context, req UploadRequest, res *LoadResult) {
	if s.recorder == nil {
		return
	}
	errText := res.Err
	if res.RollbackErr != "" {
		errText += "; rollback: " + res.RollbackErr
	}
	rec := UploadRecord{
		ID:         res.UploadID,
		Table:      req.Table.Name,
		EngineID:   req.EngineID,
		State:      string(res.State),
		Rows:       res.Rows,
		DDL:        res.DDL,
		Location:   res.Location,
		RolledBack: res.RolledBack,
		Error:      errText,
		ClientIP:   ClientIPFromContext(ctx),
		UserAgent:  UserAgentFromContext(ctx),
		DurationMs: res.Duration.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.recorder.Record(rctx, rec); err != nil {
		slog.Warn("upload record not persisted", "upload_id", res.UploadID, "error", err)
	}
}

// ListUploads returns recent upload records, newest first. Without a
// recorder it returns an empty list.
func (s *Service) ListUploads(ctx context.Context, limit int) ([]UploadRecord, error) {
	if s.recorder == nil {
		return []UploadRecord{}, nil
	}
	return s.recorder.List(ctx, limit)
}

// GetUpload returns one upload record by id.
func (s *Service) GetUpload(ctx context.Context, id string) (UploadRecord, error) {
	if s.recorder == nil {
		return UploadRecord{}, ErrUploadNotFound
	}
	return s.recorder.Get(ctx, id)
}

// WaitForUploads blocks until in-flight uploads finish or ctx ends. Called
// during shutdown before connections are torn down.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// LimiterStatus snapshots upload concurrency for health output.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}
