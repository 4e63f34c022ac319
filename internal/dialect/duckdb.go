// duckdb.go renders DuckDB DDL. Managed tables are plain CREATE TABLE;
// CSV sources are ingested at creation time through read_csv with the
// column types pinned, so inference on the DuckDB side never disagrees
// with the schema the user approved.
package dialect

import (
	"strings"

	"github.com/tableport/tableport/internal/core"
)

func init() {
	core.RegisterRenderer(&duckdbRenderer{renderer{
		tag:        "duckdb",
		prefix:     "CREATE TABLE",
		quote:      doubleQuote,
		quoteTable: true,
		types: map[core.ColumnType]string{
			core.TypeBoolean:  "BOOLEAN",
			core.TypeDatetime: "TIMESTAMP",
			core.TypeFloat:    "DOUBLE",
			core.TypeInteger:  "BIGINT",
			core.TypeString:   "VARCHAR",
		},
		storage: duckdbStorage,
	}})
}

type duckdbRenderer struct {
	renderer
}

// Render emits CREATE TABLE AS over read_csv for CSV sources and falls back
// to the base assembly for managed tables.
func (r *duckdbRenderer) Render(cfg core.TableConfig) (string, error) {
	if cfg.Format != core.FormatCSV {
		return r.renderer.Render(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	cols := make([]string, len(cfg.Schema))
	for i, col := range cfg.Schema {
		cols[i] = sqlString(col.Name) + ": " + sqlString(r.typeName(col))
	}
	header := "false"
	if cfg.SkipHeader {
		header = "true"
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE " + r.quote(cfg.Name) + " AS\n")
	b.WriteString("SELECT * FROM read_csv(" + sqlString(cfg.Location))
	b.WriteString(", header = " + header)
	b.WriteString(", columns = {" + strings.Join(cols, ", ") + "})")
	return b.String(), nil
}

func duckdbStorage(cfg core.TableConfig) (string, error) {
	switch cfg.Format {
	case core.FormatNative, core.FormatCSV:
		// Managed tables need no clause; CSV is assembled wholesale by
		// Render and contributes no trailing clause either.
		return "", nil
	default:
		return "", unsupportedFormat("duckdb", cfg.Format)
	}
}
