// Package results resolves prior query executions into import sources.
//
// A query execution is a result set the query subsystem produced earlier:
// its column schema was fixed at execution time and its rows were written to
// the object store as a CSV object. Importing one therefore skips schema
// inference entirely; the pipeline trusts the recorded schema and streams the
// stored rows.
//
// Two stores exist. The postgres store reads execution metadata from the
// query_executions table and row data from the object store; it is what a
// server deployment wires in. The memory store holds everything in process
// and serves tests and one-shot runs.
package results

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tableport/tableport/internal/core"
	"github.com/tableport/tableport/internal/storage"
)

// PostgresStore reads query executions recorded by the query subsystem.
// It satisfies core.QueryResultStore.
type PostgresStore struct {
	pool  *pgxpool.Pool
	store storage.ObjectStore
}

// NewPostgresStore returns a store over the metadata pool and the object
// store holding result data. It does not create the query_executions table;
// the query subsystem owns that schema.
func NewPostgresStore(pool *pgxpool.Pool, store storage.ObjectStore) *PostgresStore {
	return &PostgresStore{pool: pool, store: store}
}

// Execution returns the metadata recorded when the query ran.
func (s *PostgresStore) Execution(ctx context.Context, id string) (core.QueryExecution, error) {
	var (
		exec        core.QueryExecution
		columnsJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, columns, row_count FROM query_executions WHERE id = $1::uuid`,
		id,
	).Scan(&exec.ID, &columnsJSON, &exec.RowCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.QueryExecution{}, fmt.Errorf("%w: %s", core.ErrExecutionNotFound, id)
	}
	if err != nil {
		return core.QueryExecution{}, fmt.Errorf("load query execution %s: %w", id, err)
	}
	if err := json.Unmarshal(columnsJSON, &exec.Columns); err != nil {
		return core.QueryExecution{}, fmt.Errorf("decode columns of execution %s: %w", id, err)
	}
	return exec, nil
}

// Rows streams the stored result rows. The result object is CSV with a
// header row naming the columns; the header is consumed here so the stream
// carries data rows only.
func (s *PostgresStore) Rows(ctx context.Context, id string) (core.RowStream, error) {
	var location string
	err := s.pool.QueryRow(ctx,
		`SELECT location FROM query_executions WHERE id = $1::uuid`,
		id,
	).Scan(&location)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrExecutionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load query execution %s: %w", id, err)
	}

	key, ok := s.store.Key(location)
	if !ok {
		return nil, fmt.Errorf("execution %s: result location %q is outside the configured store", id, location)
	}
	rc, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open results of execution %s: %w", id, err)
	}
	return newCSVStream(rc, true)
}

// newCSVStream wraps a CSV object as a RowStream. skipHeader consumes the
// first record before any row is served.
func newCSVStream(rc io.ReadCloser, skipHeader bool) (core.RowStream, error) {
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if skipHeader {
		if _, err := r.Read(); err != nil && err != io.EOF {
			rc.Close()
			return nil, fmt.Errorf("read result header: %w", err)
		}
	}
	return &csvStream{r: r, closer: rc}, nil
}

type csvStream struct {
	r      *csv.Reader
	closer io.Closer
	row    []string
	err    error
}

func (s *csvStream) Next() bool {
	if s.err != nil {
		return false
	}
	rec, err := s.r.Read()
	if err == io.EOF {
		return false
	}
	if err != nil {
		s.err = err
		return false
	}
	s.row = rec
	return true
}

func (s *csvStream) Row() []string { return s.row }

func (s *csvStream) Err() error { return s.err }

func (s *csvStream) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}
