// Package dialect renders CREATE TABLE statements for the supported engine
// dialects. Each dialect registers itself with the core renderer registry at
// init, so importing this package (usually blank, from an entrypoint) is
// what makes dialects available:
//
//	import _ "github.com/tableport/tableport/internal/dialect"
//
// All dialects share the clause assembly in the base renderer and differ in
// tag, identifier escaping, type map, and storage clause. Renderers that
// cannot express a table as prefix+columns+clause (duckdb CSV, bigquery
// external) replace Render wholesale.
package dialect

import (
	"fmt"
	"strings"

	"github.com/tableport/tableport/internal/core"
)

// storageClauseFunc renders the trailing clause binding a table to its
// storage format and location.
type storageClauseFunc func(cfg core.TableConfig) (string, error)

// renderer is the shared dialect skeleton. The zero value is unusable; each
// dialect file constructs one with every field set.
type renderer struct {
	tag        string
	prefix     string // statement head, e.g. "CREATE EXTERNAL TABLE"
	quote      func(string) string
	quoteTable bool
	types      map[core.ColumnType]string
	storage    storageClauseFunc
}

func (r *renderer) Tag() string { return r.tag }

func (r *renderer) TypeFor(t core.ColumnType) string { return r.types[t] }

// typeName resolves a column's rendered type. Custom types are emitted
// verbatim; the user wrote exactly the type they want.
func (r *renderer) typeName(col core.Column) string {
	if col.IsCustom() {
		return col.Type
	}
	return r.types[core.ColumnType(col.Type)]
}

func (r *renderer) ColumnDefs(schema core.ColumnSchema) []string {
	defs := make([]string, len(schema))
	for i, col := range schema {
		defs[i] = r.quote(col.Name) + " " + r.typeName(col)
	}
	return defs
}

func (r *renderer) CreatePrefix(table string) string {
	if r.quoteTable {
		table = r.quote(table)
	}
	return r.prefix + " " + table
}

func (r *renderer) StorageClause(cfg core.TableConfig) (string, error) {
	return r.storage(cfg)
}

func (r *renderer) Render(cfg core.TableConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	storage, err := r.StorageClause(cfg)
	if err != nil {
		return "", err
	}
	stmt := r.CreatePrefix(cfg.Name) + " (" + strings.Join(r.ColumnDefs(cfg.Schema), ", ") + ")"
	if storage != "" {
		stmt += "\n" + storage
	}
	return stmt, nil
}

// ----------------------------------------------------------------------------
// Escaping helpers
// ----------------------------------------------------------------------------

func backtick(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// sqlString renders a single-quoted SQL string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func unsupportedFormat(tag string, f core.StorageFormat) error {
	return fmt.Errorf("%w: dialect %s cannot create %s tables", core.ErrUnsupportedStorageFormat, tag, f)
}
