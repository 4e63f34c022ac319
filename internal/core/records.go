// records.go persists the outcome of every upload so operators can answer
// "what created this table" long after the request is gone. Persistence is
// optional: a nil recorder on the Service skips it, which is how one-shot
// CLI runs operate.
package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UploadRecord is the durable trace of one upload attempt.
type UploadRecord struct {
	ID         string    `json:"id"`
	Table      string    `json:"table"`
	EngineID   string    `json:"engine_id"`
	State      string    `json:"state"`
	Rows       int64     `json:"rows"`
	DDL        string    `json:"ddl,omitempty"`
	Location   string    `json:"location,omitempty"`
	RolledBack bool      `json:"rolled_back"`
	Error      string    `json:"error,omitempty"`
	ClientIP   string    `json:"client_ip,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// UploadRecorder stores and retrieves upload records.
type UploadRecorder interface {
	Record(ctx context.Context, rec UploadRecord) error

	// List returns the most recent records, newest first.
	List(ctx context.Context, limit int) ([]UploadRecord, error)

	// Get returns one record or ErrUploadNotFound.
	Get(ctx context.Context, id string) (UploadRecord, error)
}

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func clampListLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// ----------------------------------------------------------------------------
// Postgres recorder
// ----------------------------------------------------------------------------

const uploadRecordsDDL = `
CREATE TABLE IF NOT EXISTS table_uploads (
	id UUID PRIMARY KEY,
	table_name TEXT NOT NULL,
	engine_id TEXT NOT NULL,
	state TEXT NOT NULL,
	rows_loaded BIGINT NOT NULL DEFAULT 0,
	ddl TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	rolled_back BOOLEAN NOT NULL DEFAULT FALSE,
	error TEXT NOT NULL DEFAULT '',
	client_ip TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_table_uploads_created_at ON table_uploads (created_at DESC);
`

// PostgresRecorder keeps upload records in the metadata database.
type PostgresRecorder struct {
	pool *pgxpool.Pool
}

// NewPostgresRecorder creates the records table if needed and returns a
// recorder over the pool.
func NewPostgresRecorder(ctx context.Context, pool *pgxpool.Pool) (*PostgresRecorder, error) {
	if _, err := pool.Exec(ctx, uploadRecordsDDL); err != nil {
		return nil, fmt.Errorf("ensure upload records table: %w", err)
	}
	return &PostgresRecorder{pool: pool}, nil
}

func (r *PostgresRecorder) Record(ctx context.Context, rec UploadRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO table_uploads (
			id, table_name, engine_id, state, rows_loaded, ddl, location,
			rolled_back, error, client_ip, user_agent, duration_ms, created_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.Table, rec.EngineID, rec.State, rec.Rows, rec.DDL, rec.Location,
		rec.RolledBack, rec.Error, rec.ClientIP, rec.UserAgent, rec.DurationMs, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert upload record %s: %w", rec.ID, err)
	}
	return nil
}

const uploadRecordColumns = `
	id::text, table_name, engine_id, state, rows_loaded, ddl, location,
	rolled_back, error, client_ip, user_agent, duration_ms, created_at`

func (r *PostgresRecorder) List(ctx context.Context, limit int) ([]UploadRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+uploadRecordColumns+` FROM table_uploads ORDER BY created_at DESC LIMIT $1`,
		clampListLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("list upload records: %w", err)
	}
	defer rows.Close()

	var recs []UploadRecord
	for rows.Next() {
		var rec UploadRecord
		if err := rows.Scan(
			&rec.ID, &rec.Table, &rec.EngineID, &rec.State, &rec.Rows, &rec.DDL, &rec.Location,
			&rec.RolledBack, &rec.Error, &rec.ClientIP, &rec.UserAgent, &rec.DurationMs, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan upload record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list upload records: %w", err)
	}
	return recs, nil
}

func (r *PostgresRecorder) Get(ctx context.Context, id string) (UploadRecord, error) {
	var rec UploadRecord
	err := r.pool.QueryRow(ctx,
		`SELECT `+uploadRecordColumns+` FROM table_uploads WHERE id = $1::uuid`,
		id,
	).Scan(
		&rec.ID, &rec.Table, &rec.EngineID, &rec.State, &rec.Rows, &rec.DDL, &rec.Location,
		&rec.RolledBack, &rec.Error, &rec.ClientIP, &rec.UserAgent, &rec.DurationMs, &rec.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return UploadRecord{}, fmt.Errorf("%w: %s", ErrUploadNotFound, id)
	}
	if err != nil {
		return UploadRecord{}, fmt.Errorf("get upload record %s: %w", id, err)
	}
	return rec, nil
}

// Prune deletes records created before olderThan. Satisfies RecordPruner.
func (r *PostgresRecorder) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM table_uploads WHERE created_at < $1`, olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("prune upload records: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ----------------------------------------------------------------------------
// In-memory recorder
// ----------------------------------------------------------------------------

// MemoryRecorder keeps records in memory. Suitable for tests and for
// deployments that run without a metadata database but still want the
// listing endpoints to work for the life of the process.
type MemoryRecorder struct {
	mu   sync.RWMutex
	recs []UploadRecord
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) Record(_ context.Context, rec UploadRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func (r *MemoryRecorder) List(_ context.Context, limit int) ([]UploadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]UploadRecord, len(r.recs))
	copy(out, r.recs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n := clampListLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (r *MemoryRecorder) Get(_ context.Context, id string) (UploadRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.recs {
		if rec.ID == id {
			return rec, nil
		}
	}
	return UploadRecord{}, fmt.Errorf("%w: %s", ErrUploadNotFound, id)
}

// Prune deletes records created before olderThan. Satisfies RecordPruner.
func (r *MemoryRecorder) Prune(_ context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.recs[:0]
	var removed int64
	for _, rec := range r.recs {
		if rec.CreatedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.recs = kept
	return removed, nil
}
