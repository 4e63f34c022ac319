// bigquery.go renders BigQuery DDL. External tables read GCS objects in
// place via OPTIONS; managed (NATIVE) tables are plain CREATE TABLE and get
// their rows from a load job.
package dialect

import (
	"fmt"
	"strings"

	"github.com/tableport/tableport/internal/core"
)

func init() {
	core.RegisterRenderer(&bigqueryRenderer{renderer{
		tag:        "bigquery",
		prefix:     "CREATE TABLE",
		quote:      backtick,
		quoteTable: true,
		types: map[core.ColumnType]string{
			core.TypeBoolean:  "BOOL",
			core.TypeDatetime: "TIMESTAMP",
			core.TypeFloat:    "FLOAT64",
			core.TypeInteger:  "INT64",
			core.TypeString:   "STRING",
		},
		storage: bigqueryStorage,
	}})
}

type bigqueryRenderer struct {
	renderer
}

// Render swaps the statement head to CREATE EXTERNAL TABLE for storage
// formats read in place; the base assembly covers managed tables.
func (r *bigqueryRenderer) Render(cfg core.TableConfig) (string, error) {
	if !cfg.Format.External() {
		return r.renderer.Render(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	options, err := r.storage(cfg)
	if err != nil {
		return "", err
	}
	stmt := "CREATE EXTERNAL TABLE " + r.quote(cfg.Name) +
		" (" + strings.Join(r.ColumnDefs(cfg.Schema), ", ") + ")"
	return stmt + "\n" + options, nil
}

func bigqueryStorage(cfg core.TableConfig) (string, error) {
	switch cfg.Format {
	case core.FormatNative:
		return "", nil
	case core.FormatCSV:
		clause := fmt.Sprintf("OPTIONS (format = 'CSV', uris = [%s]", sqlString(cfg.Location))
		if cfg.SkipHeader {
			clause += ", skip_leading_rows = 1"
		}
		return clause + ")", nil
	case core.FormatParquet:
		return fmt.Sprintf("OPTIONS (format = 'PARQUET', uris = [%s])", sqlString(cfg.Location)), nil
	default:
		return "", unsupportedFormat("bigquery", cfg.Format)
	}
}
