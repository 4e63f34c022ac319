package core

import (
	"fmt"
	"strings"
	"time"
)

// ColumnType is a canonical column type tag, independent of any SQL dialect.
type ColumnType string

const (
	TypeBoolean  ColumnType = "BOOLEAN"
	TypeDatetime ColumnType = "DATETIME"
	TypeFloat    ColumnType = "FLOAT"
	TypeInteger  ColumnType = "INTEGER"
	TypeString   ColumnType = "STRING"
)

// CanonicalTypes lists the canonical enumeration in declaration order.
// Dialect renderers must map every entry; registration enforces this.
var CanonicalTypes = []ColumnType{
	TypeBoolean, TypeDatetime, TypeFloat, TypeInteger, TypeString,
}

// IsCanonicalType reports whether value is one of the canonical type tags.
func IsCanonicalType(value string) bool {
	switch ColumnType(value) {
	case TypeBoolean, TypeDatetime, TypeFloat, TypeInteger, TypeString:
		return true
	}
	return false
}

// IsCustomType reports whether a stored column type value is a user-supplied
// engine-native type expression rather than a canonical tag. Custom types
// bypass dialect type mapping and are rendered verbatim.
//
// The distinction is derived from the value itself, not a separate flag:
// anything that is not exactly a canonical tag is custom. In practice custom
// values contain characters a canonical tag never has, e.g. "DECIMAL(10,2)"
// or "ARRAY<STRING>".
func IsCustomType(value string) bool {
	return !IsCanonicalType(value)
}

// Column is one column of a table schema. Type holds either a canonical
// ColumnType tag or a custom engine-native type expression.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsCustom reports whether the column carries a custom type expression.
func (c Column) IsCustom() bool {
	return IsCustomType(c.Type)
}

// ColumnSchema is an ordered sequence of columns. Order is significant and
// is preserved end-to-end into rendered DDL.
type ColumnSchema []Column

// Validate checks the schema invariants: at least one column, non-empty
// unique names, and a non-empty type value per column.
func (s ColumnSchema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: schema has no columns", ErrConfigValidation)
	}
	seen := make(map[string]struct{}, len(s))
	for i, col := range s {
		if strings.TrimSpace(col.Name) == "" {
			return fmt.Errorf("%w: column %d has an empty name", ErrConfigValidation, i)
		}
		if col.Type == "" {
			return fmt.Errorf("%w: column %q has an empty type", ErrConfigValidation, col.Name)
		}
		if _, dup := seen[col.Name]; dup {
			return fmt.Errorf("%w: duplicate column name %q", ErrConfigValidation, col.Name)
		}
		seen[col.Name] = struct{}{}
	}
	return nil
}

// Names returns the column names in schema order.
func (s ColumnSchema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// ImportType tags the import source variant an ImportConfig refers to.
type ImportType string

const (
	ImportDelimited   ImportType = "delimited"
	ImportSpreadsheet ImportType = "spreadsheet"
	ImportFixedWidth  ImportType = "fixed_width"
	ImportQueryResult ImportType = "query_result"
)

// ImportConfig identifies an import source variant and its parameters.
// It is built per request from user input, consumed once by the importer
// selector, and never persisted.
type ImportConfig struct {
	Type ImportType `json:"type"`

	// Delimited options.
	Delimiter string `json:"delimiter,omitempty"` // single rune; default ","
	Header    bool   `json:"header,omitempty"`    // first row is a header row

	// Spreadsheet options.
	Sheet int `json:"sheet,omitempty"` // 0-based sheet index

	// Fixed-width options: column widths in runes, in column order.
	Widths []int `json:"widths,omitempty"`

	// Prior query result options.
	QueryExecutionID string `json:"queryExecutionId,omitempty"`

	// SampleLimit bounds how many rows inference scans. Zero means the
	// service default.
	SampleLimit int `json:"sampleLimit,omitempty"`
}

// StorageFormat tags how the created table's data is physically stored.
type StorageFormat string

const (
	// FormatCSV is row-delimited text at an external storage location.
	FormatCSV StorageFormat = "CSV"
	// FormatParquet is columnar data at an external storage location.
	FormatParquet StorageFormat = "PARQUET"
	// FormatNative is an engine-managed table loaded by batched inserts.
	FormatNative StorageFormat = "NATIVE"
)

// External reports whether the format reads from an external storage
// location populated during the upload's staging step.
func (f StorageFormat) External() bool {
	return f == FormatCSV || f == FormatParquet
}

// TableConfig describes the table to create: its name, schema (possibly
// user-edited after preview), storage format, and external location when
// the format requires one.
type TableConfig struct {
	Name     string        `json:"tableName"`
	Schema   ColumnSchema  `json:"schema"`
	Format   StorageFormat `json:"format"`
	Location string        `json:"location,omitempty"`

	// SkipHeader marks the staged file as carrying a header row the engine
	// must skip. The CSV staging writer always writes one, so the service
	// sets this for staged CSV uploads.
	SkipHeader bool `json:"skipHeader,omitempty"`
}

// Validate checks the config ahead of any pipeline work.
func (t TableConfig) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: table name is required", ErrConfigValidation)
	}
	if err := t.Schema.Validate(); err != nil {
		return err
	}
	switch t.Format {
	case FormatCSV, FormatParquet, FormatNative:
	case "":
		return fmt.Errorf("%w: storage format is required", ErrConfigValidation)
	default:
		// Unknown formats are rejected by the renderer, not here; a renderer
		// may support formats this package does not know about.
	}
	// Location is not required here: when absent, staging assigns one
	// before the DDL is rendered.
	return nil
}

// RowStream is a lazy, single-pass, ordered iterator over rows. Each row is
// positionally aligned with the schema the stream was built against.
//
// Contract: Next advances and reports whether a row is available; Row is
// valid until the next call to Next; Err reports the first error after Next
// returns false; Close releases the underlying source and is safe to call
// more than once. A RowStream is never restartable.
type RowStream interface {
	Next() bool
	Row() []string
	Err() error
	Close() error
}

// UploadState is the exporter state machine's observable state.
type UploadState string

const (
	StateRendering UploadState = "rendering"
	StateStaging   UploadState = "staging"
	StateCreating  UploadState = "creating"
	StateLoading   UploadState = "loading"
	StateCommitted UploadState = "committed"
	StateFailed    UploadState = "failed"
)

// LoadResult is the terminal outcome of one upload. The State plus the
// typed error distinguish "nothing happened" (render/stage/create failures)
// from "table exists but load failed" (LoadError, RolledBack true) from
// "rollback also failed" (LoadError, RolledBack false, RollbackErr set).
type LoadResult struct {
	UploadID string        `json:"uploadId,omitempty"`
	State    UploadState   `json:"state"`
	Table    string        `json:"table"`
	Rows     int64         `json:"rows"`
	DDL      string        `json:"ddl,omitempty"`
	Location string        `json:"location,omitempty"`
	Duration time.Duration `json:"-"`

	// RolledBack is meaningful only for load failures: true when the
	// drop-table rollback succeeded.
	RolledBack  bool   `json:"rolledBack,omitempty"`
	RollbackErr string `json:"rollbackError,omitempty"`
	Err         string `json:"error,omitempty"`
}

// PreviewResult is the outcome of a schema preview.
type PreviewResult struct {
	Columns          ColumnSchema `json:"columns"`
	SampleRows       [][]string   `json:"sampleRows,omitempty"`
	ProcessingTimeMs int64        `json:"processingTimeMs"`
}

// UploadRequest bundles the inputs of one upload operation.
type UploadRequest struct {
	Import   ImportConfig `json:"importConfig"`
	Table    TableConfig  `json:"tableConfig"`
	EngineID string       `json:"engineId"`
}
