package dialect

import (
	"errors"
	"strings"
	"testing"

	"github.com/tableport/tableport/internal/core"
)

// ============================================================================
// Test Fixtures
// ============================================================================

func ordersSchema() core.ColumnSchema {
	return core.ColumnSchema{
		{Name: "id", Type: "INTEGER"},
		{Name: "name", Type: "STRING"},
	}
}

func ordersConfig(format core.StorageFormat) core.TableConfig {
	return core.TableConfig{
		Name:       "orders",
		Schema:     ordersSchema(),
		Format:     format,
		Location:   "s3://bucket/orders/",
		SkipHeader: true,
	}
}

func mustRenderer(t *testing.T, tag string) core.Renderer {
	t.Helper()
	r, ok := core.LookupRenderer(tag)
	if !ok {
		t.Fatalf("renderer %q not registered", tag)
	}
	return r
}

// ============================================================================
// Hive Family Tests
// ============================================================================

func TestHiveRenderCSV(t *testing.T) {
	want := "CREATE EXTERNAL TABLE orders (`id` BIGINT, `name` STRING)\n" +
		"ROW FORMAT SERDE 'org.apache.hadoop.hive.serde2.OpenCSVSerde'\n" +
		"FIELDS TERMINATED BY ','\n" +
		"STORED AS TEXTFILE\n" +
		"LOCATION 's3://bucket/orders/'\n" +
		"TBLPROPERTIES (\"skip.header.line.count\"=\"1\")"

	got, err := mustRenderer(t, "hive").Render(ordersConfig(core.FormatCSV))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Errorf("Render() =\n%s\nwant:\n%s", got, want)
	}
}

func TestHiveRenderCSVNoHeader(t *testing.T) {
	cfg := ordersConfig(core.FormatCSV)
	cfg.SkipHeader = false

	got, err := mustRenderer(t, "hive").Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if strings.Contains(got, "TBLPROPERTIES") {
		t.Errorf("Render() without header should not emit TBLPROPERTIES:\n%s", got)
	}
}

func TestHiveRenderParquet(t *testing.T) {
	want := "CREATE EXTERNAL TABLE orders (`id` BIGINT, `name` STRING)\n" +
		"STORED AS PARQUET\n" +
		"LOCATION 's3://bucket/orders/'"

	got, err := mustRenderer(t, "hive").Render(ordersConfig(core.FormatParquet))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Errorf("Render() =\n%s\nwant:\n%s", got, want)
	}
}

func TestSparkSQLMatchesHive(t *testing.T) {
	cfg := ordersConfig(core.FormatCSV)

	hive, err := mustRenderer(t, "hive").Render(cfg)
	if err != nil {
		t.Fatalf("hive Render() error = %v", err)
	}
	spark, err := mustRenderer(t, "sparksql").Render(cfg)
	if err != nil {
		t.Fatalf("sparksql Render() error = %v", err)
	}
	if hive != spark {
		t.Errorf("sparksql DDL diverged from hive:\nhive:  %s\nspark: %s", hive, spark)
	}
	if tag := mustRenderer(t, "sparksql").Tag(); tag != "sparksql" {
		t.Errorf("Tag() = %q, want sparksql", tag)
	}
}

// ============================================================================
// Per-Dialect Statement Tests
// ============================================================================

func TestTrinoRenderCSV(t *testing.T) {
	want := `CREATE TABLE "orders" ("id" BIGINT, "name" VARCHAR)` + "\n" +
		"WITH (format = 'CSV', external_location = 's3://bucket/orders/', skip_header_line_count = 1)"

	got, err := mustRenderer(t, "trino").Render(ordersConfig(core.FormatCSV))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Errorf("Render() =\n%s\nwant:\n%s", got, want)
	}
}

func TestBigQueryRenderExternalCSV(t *testing.T) {
	cfg := ordersConfig(core.FormatCSV)
	cfg.Location = "gs://bucket/orders.csv"

	want := "CREATE EXTERNAL TABLE `orders` (`id` INT64, `name` STRING)\n" +
		"OPTIONS (format = 'CSV', uris = ['gs://bucket/orders.csv'], skip_leading_rows = 1)"

	got, err := mustRenderer(t, "bigquery").Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Errorf("Render() =\n%s\nwant:\n%s", got, want)
	}
}

func TestBigQueryRenderNative(t *testing.T) {
	cfg := ordersConfig(core.FormatNative)
	cfg.Location = ""

	want := "CREATE TABLE `orders` (`id` INT64, `name` STRING)"

	got, err := mustRenderer(t, "bigquery").Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestClickHouseRenderNative(t *testing.T) {
	cfg := ordersConfig(core.FormatNative)
	cfg.Location = ""

	want := `CREATE TABLE "orders" ("id" Int64, "name" String)` + "\n" +
		"ENGINE = MergeTree\nORDER BY tuple()"

	got, err := mustRenderer(t, "clickhouse").Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Errorf("Render() =\n%s\nwant:\n%s", got, want)
	}
}

func TestClickHouseRenderCSVHeaderVariants(t *testing.T) {
	r := mustRenderer(t, "clickhouse")

	withHeader, err := r.Render(ordersConfig(core.FormatCSV))
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(withHeader, "'CSVWithNames'") {
		t.Errorf("header CSV should use CSVWithNames:\n%s", withHeader)
	}

	cfg := ordersConfig(core.FormatCSV)
	cfg.SkipHeader = false
	noHeader, err := r.Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.Contains(noHeader, "'CSV'") || strings.Contains(noHeader, "CSVWithNames") {
		t.Errorf("headerless CSV should use plain CSV format:\n%s", noHeader)
	}
}

func TestDuckDBRenderNative(t *testing.T) {
	cfg := ordersConfig(core.FormatNative)
	cfg.Location = ""

	want := `CREATE TABLE "orders" ("id" BIGINT, "name" VARCHAR)`

	got, err := mustRenderer(t, "duckdb").Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Errorf("Render() = %q, want %q", got, want)
	}
}

func TestDuckDBRenderCSV(t *testing.T) {
	cfg := ordersConfig(core.FormatCSV)
	cfg.Location = "/data/orders.csv"

	want := `CREATE TABLE "orders" AS` + "\n" +
		"SELECT * FROM read_csv('/data/orders.csv', header = true, columns = {'id': 'BIGINT', 'name': 'VARCHAR'})"

	got, err := mustRenderer(t, "duckdb").Render(cfg)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if got != want {
		t.Errorf("Render() =\n%s\nwant:\n%s", got, want)
	}
}

// ============================================================================
// Cross-Dialect Property Tests
// ============================================================================

// supportedFormats mirrors what each dialect can store.
var supportedFormats = map[string][]core.StorageFormat{
	"hive":       {core.FormatCSV, core.FormatParquet},
	"sparksql":   {core.FormatCSV, core.FormatParquet},
	"trino":      {core.FormatCSV, core.FormatParquet},
	"bigquery":   {core.FormatCSV, core.FormatParquet, core.FormatNative},
	"clickhouse": {core.FormatCSV, core.FormatParquet, core.FormatNative},
	"duckdb":     {core.FormatCSV, core.FormatNative},
}

func TestAllDialectsRegistered(t *testing.T) {
	for tag := range supportedFormats {
		if _, ok := core.LookupRenderer(tag); !ok {
			t.Errorf("dialect %q not registered", tag)
		}
	}
}

func TestTypeMapTotality(t *testing.T) {
	for tag := range supportedFormats {
		r := mustRenderer(t, tag)
		for _, ct := range core.CanonicalTypes {
			if r.TypeFor(ct) == "" {
				t.Errorf("dialect %q has no mapping for %s", tag, ct)
			}
		}
	}
}

func TestRenderContainsSchema(t *testing.T) {
	for tag, formats := range supportedFormats {
		r := mustRenderer(t, tag)
		for _, format := range formats {
			cfg := ordersConfig(format)
			if format == core.FormatNative {
				cfg.Location = ""
			}
			ddl, err := r.Render(cfg)
			if err != nil {
				t.Errorf("%s/%s: Render() error = %v", tag, format, err)
				continue
			}
			if !strings.Contains(ddl, "orders") {
				t.Errorf("%s/%s: DDL missing table name:\n%s", tag, format, ddl)
			}
			for _, col := range cfg.Schema {
				if !strings.Contains(ddl, col.Name) {
					t.Errorf("%s/%s: DDL missing column %q:\n%s", tag, format, col.Name, ddl)
				}
			}
			if format.External() && !strings.Contains(ddl, cfg.Location) {
				t.Errorf("%s/%s: DDL missing location:\n%s", tag, format, ddl)
			}
		}
	}
}

func TestUnsupportedFormats(t *testing.T) {
	tests := []struct {
		name   string
		tag    string
		format core.StorageFormat
	}{
		{"hive native", "hive", core.FormatNative},
		{"sparksql native", "sparksql", core.FormatNative},
		{"trino native", "trino", core.FormatNative},
		{"duckdb parquet", "duckdb", core.FormatParquet},
		{"hive unknown", "hive", core.StorageFormat("AVRO")},
		{"clickhouse unknown", "clickhouse", core.StorageFormat("ORC")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ordersConfig(tt.format)
			ddl, err := mustRenderer(t, tt.tag).Render(cfg)
			if !errors.Is(err, core.ErrUnsupportedStorageFormat) {
				t.Errorf("Render() error = %v, want ErrUnsupportedStorageFormat", err)
			}
			if ddl != "" {
				t.Errorf("Render() produced DDL despite unsupported format: %q", ddl)
			}
		})
	}
}

func TestCustomTypePassthrough(t *testing.T) {
	customs := []string{"DECIMAL(10,2)", "ARRAY<STRING>", "MAP<STRING,BIGINT>"}

	for tag, formats := range supportedFormats {
		r := mustRenderer(t, tag)
		for _, custom := range customs {
			cfg := ordersConfig(formats[0])
			cfg.Schema = core.ColumnSchema{{Name: "payload", Type: custom}}
			ddl, err := r.Render(cfg)
			if err != nil {
				t.Errorf("%s: Render() error = %v", tag, err)
				continue
			}
			if !strings.Contains(ddl, custom) {
				t.Errorf("%s: custom type %q not passed through verbatim:\n%s", tag, custom, ddl)
			}
		}
	}
}

func TestIdentifierEscaping(t *testing.T) {
	tests := []struct {
		name string
		tag  string
		col  string
		want string
	}{
		{"hive backtick doubled", "hive", "we`ird", "`we``ird`"},
		{"bigquery backtick doubled", "bigquery", "we`ird", "`we``ird`"},
		{"trino quote doubled", "trino", `we"ird`, `"we""ird"`},
		{"duckdb quote doubled", "duckdb", `we"ird`, `"we""ird"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustRenderer(t, tt.tag)
			defs := r.ColumnDefs(core.ColumnSchema{{Name: tt.col, Type: "STRING"}})
			if len(defs) != 1 || !strings.HasPrefix(defs[0], tt.want) {
				t.Errorf("ColumnDefs() = %v, want prefix %q", defs, tt.want)
			}
		})
	}
}

func TestRenderRejectsInvalidConfig(t *testing.T) {
	cfg := ordersConfig(core.FormatCSV)
	cfg.Name = ""

	if _, err := mustRenderer(t, "hive").Render(cfg); !errors.Is(err, core.ErrConfigValidation) {
		t.Errorf("Render() error = %v, want ErrConfigValidation", err)
	}
}
