// hive.go renders Hive DDL. Spark SQL accepts the same statements, so the
// sparksql dialect is the hive renderer registered under a second tag.
package dialect

import (
	"strings"

	"github.com/tableport/tableport/internal/core"
)

func init() {
	core.RegisterRenderer(newHive("hive"))
	core.RegisterRenderer(newHive("sparksql"))
}

func newHive(tag string) *renderer {
	return &renderer{
		tag:    tag,
		prefix: "CREATE EXTERNAL TABLE",
		quote:  backtick,
		types: map[core.ColumnType]string{
			core.TypeBoolean:  "BOOLEAN",
			core.TypeDatetime: "DATE",
			core.TypeFloat:    "DOUBLE",
			core.TypeInteger:  "BIGINT",
			core.TypeString:   "STRING",
		},
		storage: hiveStorage(tag),
	}
}

// hiveStorage renders the external-table storage clauses. Hive tables here
// are always external: the data lives at the staged location and dropping
// the table must never delete it.
func hiveStorage(tag string) storageClauseFunc {
	return func(cfg core.TableConfig) (string, error) {
		switch cfg.Format {
		case core.FormatCSV:
			var b strings.Builder
			b.WriteString("ROW FORMAT SERDE 'org.apache.hadoop.hive.serde2.OpenCSVSerde'\n")
			b.WriteString("FIELDS TERMINATED BY ','\n")
			b.WriteString("STORED AS TEXTFILE\n")
			b.WriteString("LOCATION " + sqlString(cfg.Location))
			if cfg.SkipHeader {
				b.WriteString("\nTBLPROPERTIES (\"skip.header.line.count\"=\"1\")")
			}
			return b.String(), nil
		case core.FormatParquet:
			return "STORED AS PARQUET\nLOCATION " + sqlString(cfg.Location), nil
		default:
			return "", unsupportedFormat(tag, cfg.Format)
		}
	}
}
