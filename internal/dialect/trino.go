// trino.go renders Trino DDL against a Hive-connector catalog: external
// tables declared through WITH properties.
package dialect

import (
	"fmt"

	"github.com/tableport/tableport/internal/core"
)

func init() {
	core.RegisterRenderer(&renderer{
		tag:        "trino",
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
		storage: trinoStorage,
	})
}

func trinoStorage(cfg core.TableConfig) (string, error) {
	switch cfg.Format {
	case core.FormatCSV:
		clause := fmt.Sprintf("WITH (format = 'CSV', external_location = %s", sqlString(cfg.Location))
		if cfg.SkipHeader {
			clause += ", skip_header_line_count = 1"
		}
		return clause + ")", nil
	case core.FormatParquet:
		return fmt.Sprintf("WITH (format = 'PARQUET', external_location = %s)", sqlString(cfg.Location)), nil
	default:
		return "", unsupportedFormat("trino", cfg.Format)
	}
}
