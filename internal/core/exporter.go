// exporter.go drives one upload end to end against a target engine:
// render DDL, stage external data, create the table, load rows, and roll
// back the table if loading fails partway.
//
// Ordering is the whole point. The external location must be known before
// rendering (the DDL embeds it), data must be staged before the table is
// created (a created external table is immediately readable), and the
// table is dropped at most once, only after creation succeeded.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultBatchSize is the number of rows per insert batch when the caller
// does not choose one.
const DefaultBatchSize = 500

// rollbackTimeout bounds the drop-table call that runs after a failed load.
// The upload context may already be cancelled by then, so rollback runs on
// its own deadline.
const rollbackTimeout = 30 * time.Second

// Executor runs statements against one target engine connection.
type Executor interface {
	// ExecDDL runs a single DDL statement.
	ExecDDL(ctx context.Context, stmt string) error

	// InsertBatch appends rows to the table. Values arrive coerced to Go
	// types matching the canonical column types; nil marks an empty cell.
	InsertBatch(ctx context.Context, table string, schema ColumnSchema, rows [][]any) error

	// DropTable removes the table if it exists.
	DropTable(ctx context.Context, table string) error

	// Close releases the underlying connection.
	Close() error
}

// StorageLoader is implemented by executors that can bulk-load a managed
// table from a staged object instead of replaying batched inserts.
type StorageLoader interface {
	LoadFromStorage(ctx context.Context, table string, schema ColumnSchema, format StorageFormat, location string) error
}

// Stager materializes row streams as objects in external storage.
type Stager interface {
	// NewLocation returns the external location a fresh staging object
	// for the table would occupy. Each call yields a distinct location.
	NewLocation(table string, format StorageFormat) string

	// Stage encodes the stream in the given format and writes it at
	// location, returning the number of data rows written.
	Stage(ctx context.Context, location string, schema ColumnSchema, format StorageFormat, rows RowStream) (int64, error)

	// Discard removes a staged object. Missing objects are not an error.
	Discard(ctx context.Context, location string) error
}

// Engine is one configured target engine.
type Engine interface {
	ID() string

	// Dialect reports the tag of the renderer that produces this
	// engine's DDL.
	Dialect() string

	// Executor opens a connection to the engine.
	Executor(ctx context.Context) (Executor, error)
}

// EngineCatalog resolves engine ids. Read-only after process start.
type EngineCatalog interface {
	Engine(id string) (Engine, bool)
	EngineIDs() []string
}

// ----------------------------------------------------------------------------
// Exporter selection
// ----------------------------------------------------------------------------

// ExporterSelector binds engine ids to ready-to-run exporters.
type ExporterSelector struct {
	engines   EngineCatalog
	stager    Stager
	batchSize int
}

// NewExporterSelector returns a selector over the catalog. stager may be nil
// when no object store is configured; external storage formats then fail
// fast at upload time.
func NewExporterSelector(engines EngineCatalog, stager Stager, batchSize int) *ExporterSelector {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &ExporterSelector{engines: engines, stager: stager, batchSize: batchSize}
}

// Select resolves the engine id to an exporter bound to the engine's dialect
// renderer and a fresh executor. The caller must Close the exporter.
func (s *ExporterSelector) Select(ctx context.Context, engineID string) (*Exporter, error) {
	eng, ok := s.engines.Engine(engineID)
	if !ok {
		return nil, fmt.Errorf("%w: unknown engine %q (configured: %v)", ErrUnsupportedEngine, engineID, s.engines.EngineIDs())
	}
	renderer, ok := LookupRenderer(eng.Dialect())
	if !ok {
		return nil, fmt.Errorf("%w: engine %q uses unregistered dialect %q", ErrUnsupportedEngine, engineID, eng.Dialect())
	}
	exec, err := eng.Executor(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to engine %q: %w", engineID, err)
	}
	return NewExporter(engineID, renderer, exec, s.stager, s.batchSize), nil
}

// ----------------------------------------------------------------------------
// Exporter
// ----------------------------------------------------------------------------

// Exporter executes uploads against one engine connection.
type Exporter struct {
	engineID  string
	renderer  Renderer
	exec      Executor
	stager    Stager
	batchSize int
}

// NewExporter assembles an exporter from its parts. Exported for tests and
// for one-shot CLI runs that skip the selector.
func NewExporter(engineID string, renderer Renderer, exec Executor, stager Stager, batchSize int) *Exporter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Exporter{
		engineID:  engineID,
		renderer:  renderer,
		exec:      exec,
		stager:    stager,
		batchSize: batchSize,
	}
}

// Close releases the engine connection.
func (e *Exporter) Close() error {
	return e.exec.Close()
}

// Upload creates cfg's table on the engine and loads every row from the
// importer into it. On success the result is Committed with the row count,
// the rendered DDL, and the external location when one is involved. On a
// load failure after table creation the table is dropped exactly once and
// the result records whether that rollback succeeded.
//
// The returned error is non-nil exactly when the result state is Failed.
func (e *Exporter) Upload(ctx context.Context, imp Importer, src Source, cfg TableConfig) (*LoadResult, error) {
	start := time.Now()
	res := &LoadResult{State: StateRendering, Table: cfg.Name}
	fail := func(err error) (*LoadResult, error) {
		res.State = StateFailed
		res.Err = err.Error()
		res.Duration = time.Since(start)
		return res, err
	}

	external := cfg.Format.External()
	if external && e.stager == nil {
		return fail(configErrorf("storage format %s requires an object store", cfg.Format))
	}

	// Managed tables load from a staged object when both sides support
	// it; otherwise rows are replayed as insert batches.
	loader, hasLoader := e.exec.(StorageLoader)
	viaStorage := external || (hasLoader && e.stager != nil)
	stagingFormat := cfg.Format
	if !external {
		stagingFormat = FormatCSV
	}
	if viaStorage && cfg.Location == "" {
		cfg.Location = e.stager.NewLocation(cfg.Name, stagingFormat)
	}
	if external && cfg.Format == FormatCSV {
		// The CSV staging writer always emits a header row; the DDL must
		// tell the engine to skip it.
		cfg.SkipHeader = true
	}

	ddl, err := e.renderer.Render(cfg)
	if err != nil {
		return fail(err)
	}
	res.DDL = ddl
	if external {
		res.Location = cfg.Location
	}

	var staged int64
	if viaStorage {
		res.State = StateStaging
		stream, err := imp.Rows(ctx, src)
		if err != nil {
			return fail(err)
		}
		staged, err = e.stager.Stage(ctx, cfg.Location, cfg.Schema, stagingFormat, stream)
		stream.Close()
		if err != nil {
			e.discard(ctx, cfg.Location)
			return fail(stageError(err))
		}
	}

	res.State = StateCreating
	if err := e.exec.ExecDDL(ctx, ddl); err != nil {
		if viaStorage {
			e.discard(ctx, cfg.Location)
		}
		return fail(fmt.Errorf("%w: %v", ErrCreate, err))
	}

	res.State = StateLoading
	var loaded int64
	var loadErr error
	switch {
	case external:
		// The table reads the staged location directly.
		loaded = staged
	case viaStorage:
		loadErr = loader.LoadFromStorage(ctx, cfg.Name, cfg.Schema, stagingFormat, cfg.Location)
		loaded = staged
	default:
		loaded, loadErr = e.insertRows(ctx, imp, src, cfg)
	}
	if loadErr != nil {
		loadErr = fmt.Errorf("%w: %v", ErrLoad, loadErr)
		if rbErr := e.rollback(ctx, cfg.Name); rbErr != nil {
			res.RollbackErr = rbErr.Error()
			slog.Error("rollback after failed load did not complete",
				"engine", e.engineID,
				"table", cfg.Name,
				"error", rbErr,
			)
		} else {
			res.RolledBack = true
		}
		if viaStorage && !external {
			e.discard(ctx, cfg.Location)
		}
		return fail(loadErr)
	}

	if viaStorage && !external {
		// Staging for a managed table is a transfer artifact, not part
		// of the table. Drop it once the load is in.
		e.discard(ctx, cfg.Location)
	}

	res.State = StateCommitted
	res.Rows = loaded
	res.Duration = time.Since(start)
	return res, nil
}

// insertRows streams the source into insert batches, coercing each cell to
// the Go type matching its column.
func (e *Exporter) insertRows(ctx context.Context, imp Importer, src Source, cfg TableConfig) (int64, error) {
	stream, err := imp.Rows(ctx, src)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	var total int64
	batch := make([][]any, 0, e.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := e.exec.InsertBatch(ctx, cfg.Name, cfg.Schema, batch); err != nil {
			return err
		}
		total += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		row := stream.Row()
		vals := make([]any, len(cfg.Schema))
		for i, col := range cfg.Schema {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			v, err := CoerceValue(col.Type, cell)
			if err != nil {
				return total, fmt.Errorf("row %d, column %q: %w", total+int64(len(batch))+1, col.Name, err)
			}
			vals[i] = v
		}
		batch = append(batch, vals)
		if len(batch) >= e.batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return total, err
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

// rollback drops the table on its own deadline. The upload context is
// usually cancelled or expired at this point, so only its values carry over.
func (e *Exporter) rollback(ctx context.Context, table string) error {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	return e.exec.DropTable(rbCtx, table)
}

// discard removes a staged object, logging instead of failing: the upload
// outcome is already decided by the time cleanup runs.
func (e *Exporter) discard(ctx context.Context, location string) {
	if e.stager == nil || location == "" {
		return
	}
	cleanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()
	if err := e.stager.Discard(cleanCtx, location); err != nil {
		slog.Warn("staged object not removed", "location", location, "error", err)
	}
}

// stageError classifies a staging failure, preserving source-read identity
// when the input stream was at fault.
func stageError(err error) error {
	if errors.Is(err, ErrSourceRead) || errors.Is(err, ErrStage) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrStage, err)
}
