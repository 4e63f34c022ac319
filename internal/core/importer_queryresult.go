// importer_queryresult.go turns a stored query result into an import source.
// Result sets already carry a column schema from execution time, so there is
// nothing to infer; the stored schema is returned as-is.
package core

import (
	"context"
	"fmt"
)

// QueryExecution describes one stored query result set.
type QueryExecution struct {
	ID       string
	Columns  ColumnSchema
	RowCount int64
}

// QueryResultStore fetches stored query results by execution id.
// Implementations return ErrExecutionNotFound for unknown ids.
type QueryResultStore interface {
	Execution(ctx context.Context, id string) (QueryExecution, error)
	Rows(ctx context.Context, id string) (RowStream, error)
}

// RegisterQueryResultImporter installs the query-result import variant,
// bound to the given store. Called once at process start by entrypoints
// that have a result store configured; without it, query-result imports
// fail with ErrUnsupportedImportType.
func RegisterQueryResultImporter(store QueryResultStore) {
	RegisterImporter(ImportQueryResult, func(cfg ImportConfig) (Importer, error) {
		if cfg.QueryExecutionID == "" {
			return nil, configErrorf("query result import requires an execution id")
		}
		return NewQueryResultImporter(store, cfg.QueryExecutionID), nil
	})
}

// NewQueryResultImporter returns an importer over one stored execution.
func NewQueryResultImporter(store QueryResultStore, executionID string) Importer {
	return &queryResultImporter{store: store, executionID: executionID}
}

type queryResultImporter struct {
	store       QueryResultStore
	executionID string
}

// InferSchema returns the schema recorded when the query ran. sampleLimit is
// ignored; no rows are read.
func (im *queryResultImporter) InferSchema(ctx context.Context, _ Source, _ int) (ColumnSchema, error) {
	exec, err := im.store.Execution(ctx, im.executionID)
	if err != nil {
		return nil, err
	}
	if len(exec.Columns) == 0 {
		return nil, fmt.Errorf("%w: execution %s has no columns", ErrSchemaInference, im.executionID)
	}
	return exec.Columns, nil
}

func (im *queryResultImporter) Rows(ctx context.Context, _ Source) (RowStream, error) {
	return im.store.Rows(ctx, im.executionID)
}
