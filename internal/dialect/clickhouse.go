// clickhouse.go renders ClickHouse DDL. External formats map to the S3
// table engine reading the staged object; managed tables land on MergeTree.
package dialect

import (
	"fmt"

	"github.com/tableport/tableport/internal/core"
)

func init() {
	core.RegisterRenderer(&renderer{
		tag:        "clickhouse",
		prefix:     "CREATE TABLE",
		quote:      doubleQuote,
		quoteTable: true,
		types: map[core.ColumnType]string{
			core.TypeBoolean:  "Bool",
			core.TypeDatetime: "DateTime64(3)",
			core.TypeFloat:    "Float64",
			core.TypeInteger:  "Int64",
			core.TypeString:   "String",
		},
		storage: clickhouseStorage,
	})
}

func clickhouseStorage(cfg core.TableConfig) (string, error) {
	switch cfg.Format {
	case core.FormatNative:
		// Uploads have no natural ordering key, so the table orders by
		// nothing and stays append-friendly.
		return "ENGINE = MergeTree\nORDER BY tuple()", nil
	case core.FormatCSV:
		format := "CSV"
		if cfg.SkipHeader {
			format = "CSVWithNames"
		}
		return fmt.Sprintf("ENGINE = S3(%s, %s)", sqlString(cfg.Location), sqlString(format)), nil
	case core.FormatParquet:
		return fmt.Sprintf("ENGINE = S3(%s, 'Parquet')", sqlString(cfg.Location)), nil
	default:
		return "", unsupportedFormat("clickhouse", cfg.Format)
	}
}
