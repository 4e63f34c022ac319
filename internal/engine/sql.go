// sql.go executes against any database/sql driver through sqlx. DuckDB and
// ClickHouse are the drivers linked by default; the executor itself is
// driver-agnostic and leans on sqlx.Rebind to translate placeholders.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/tableport/tableport/internal/core"
)

type sqlExecutor struct {
	db *sqlx.DB
}

func newSQLExecutor(ctx context.Context, cfg Config) (core.Executor, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect %s (%s): %w", cfg.ID, cfg.Driver, err)
	}
	return &sqlExecutor{db: db}, nil
}

func (e *sqlExecutor) ExecDDL(ctx context.Context, stmt string) error {
	_, err := e.db.ExecContext(ctx, stmt)
	return err
}

func (e *sqlExecutor) InsertBatch(ctx context.Context, table string, schema core.ColumnSchema, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	query, args := buildInsert(table, schema.Names(), rows)
	_, err := e.db.ExecContext(ctx, e.db.Rebind(query), args...)
	return err
}

func (e *sqlExecutor) DropTable(ctx context.Context, table string) error {
	_, err := e.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteTable(table))
	return err
}

func (e *sqlExecutor) Close() error {
	return e.db.Close()
}

// buildInsert renders a multi-row INSERT with '?' placeholders, one
// placeholder per cell, flattening the rows into args in order. Rebind
// turns the placeholders into whatever the driver wants.
func buildInsert(table string, columns []string, rows [][]any) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(quoteTable(table))
	b.WriteString(" (")
	for i, col := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteIdent(col))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			var v any
			if j < len(row) {
				v = row[j]
			}
			args = append(args, v)
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// quoteIdent escapes one identifier ANSI-style, which both linked drivers
// accept.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteTable escapes a possibly qualified table name part by part.
func quoteTable(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = quoteIdent(p)
	}
	return strings.Join(parts, ".")
}
