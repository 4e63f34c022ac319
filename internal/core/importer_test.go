package core

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"
)

func collectRows(t *testing.T, imp Importer, src Source) [][]string {
	t.Helper()
	stream, err := imp.Rows(context.Background(), src)
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	defer stream.Close()

	var rows [][]string
	for stream.Next() {
		rows = append(rows, append([]string(nil), stream.Row()...))
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error = %v", err)
	}
	return rows
}

func mustImporter(t *testing.T, cfg ImportConfig) Importer {
	t.Helper()
	imp, err := SelectImporter(cfg)
	if err != nil {
		t.Fatalf("SelectImporter(%+v) error = %v", cfg, err)
	}
	return imp
}

// ============================================================================
// Importer selection
// ============================================================================

func TestSelectImporter_MissingType(t *testing.T) {
	_, err := SelectImporter(ImportConfig{})
	if !errors.Is(err, ErrConfigValidation) {
		t.Errorf("error = %v, want ErrConfigValidation", err)
	}
}

func TestSelectImporter_UnknownType(t *testing.T) {
	_, err := SelectImporter(ImportConfig{Type: "carrier_pigeon"})
	if !errors.Is(err, ErrUnsupportedImportType) {
		t.Errorf("error = %v, want ErrUnsupportedImportType", err)
	}
}

func TestSelectImporter_QueryResultNotRegistered(t *testing.T) {
	// The query-result variant is registered by entrypoints that have a
	// result store; this test binary has none.
	_, err := SelectImporter(ImportConfig{Type: ImportQueryResult, QueryExecutionID: "x"})
	if !errors.Is(err, ErrUnsupportedImportType) {
		t.Errorf("error = %v, want ErrUnsupportedImportType", err)
	}
}

func TestImportTypes(t *testing.T) {
	got := ImportTypes()
	want := []string{"delimited", "fixed_width", "spreadsheet"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ImportTypes() = %v, want %v", got, want)
	}
}

// ============================================================================
// Delimited importer
// ============================================================================

func TestDelimitedImporter_InferWithHeader(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportDelimited, Header: true})
	src := NewBytesSource([]byte("id,name,amount\n1,alice,10.5\n2,bob,20\n"))

	schema, err := imp.InferSchema(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}
	want := ColumnSchema{
		{Name: "id", Type: "INTEGER"},
		{Name: "name", Type: "STRING"},
		{Name: "amount", Type: "FLOAT"},
	}
	if !reflect.DeepEqual(schema, want) {
		t.Errorf("schema = %v, want %v", schema, want)
	}
}

func TestDelimitedImporter_RowsExcludeHeader(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportDelimited, Header: true})
	src := NewBytesSource([]byte("id,name\n1,alice\n2,bob\n"))

	rows := collectRows(t, imp, src)
	want := [][]string{{"1", "alice"}, {"2", "bob"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedImporter_NoHeader(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportDelimited, Header: false})
	src := NewBytesSource([]byte("1,alice\n2,bob\n"))

	schema, err := imp.InferSchema(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}
	want := ColumnSchema{
		{Name: "column_1", Type: "INTEGER"},
		{Name: "column_2", Type: "STRING"},
	}
	if !reflect.DeepEqual(schema, want) {
		t.Errorf("schema = %v, want %v", schema, want)
	}

	// The first record is data, not a header, and must be streamed.
	rows := collectRows(t, imp, src)
	if len(rows) != 2 || rows[0][0] != "1" {
		t.Errorf("rows = %v, want both data rows", rows)
	}
}

func TestDelimitedImporter_Delimiters(t *testing.T) {
	tests := []struct {
		name      string
		delimiter string
		data      string
	}{
		{"tab", "\t", "id\tname\n1\talice\n"},
		{"pipe", "|", "id|name\n1|alice\n"},
		{"semicolon", ";", "id;name\n1;alice\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := mustImporter(t, ImportConfig{Type: ImportDelimited, Delimiter: tt.delimiter, Header: true})
			rows := collectRows(t, imp, NewBytesSource([]byte(tt.data)))
			want := [][]string{{"1", "alice"}}
			if !reflect.DeepEqual(rows, want) {
				t.Errorf("rows = %v, want %v", rows, want)
			}
		})
	}
}

func TestDelimitedImporter_BadDelimiter(t *testing.T) {
	_, err := SelectImporter(ImportConfig{Type: ImportDelimited, Delimiter: "ab"})
	if !errors.Is(err, ErrConfigValidation) {
		t.Errorf("error = %v, want ErrConfigValidation", err)
	}
}

func TestDelimitedImporter_RaggedRowsSquared(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportDelimited, Header: true})
	src := NewBytesSource([]byte("a,b,c\n1\n1,2,3,4\n"))

	rows := collectRows(t, imp, src)
	want := [][]string{
		{"1", "", ""},
		{"1", "2", "3"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedImporter_SkipsEmptyRows(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportDelimited, Header: true})
	src := NewBytesSource([]byte("a,b\n,,\n1,2\n  ,\n3,4\n"))

	rows := collectRows(t, imp, src)
	want := [][]string{{"1", "2"}, {"3", "4"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestDelimitedImporter_StripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("id,name\n1,alice\n")...)
	imp := mustImporter(t, ImportConfig{Type: ImportDelimited, Header: true})

	schema, err := imp.InferSchema(context.Background(), NewBytesSource(data), 0)
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}
	if schema[0].Name != "id" {
		t.Errorf("first column = %q, want %q (BOM must not leak into names)", schema[0].Name, "id")
	}
}

func TestDelimitedImporter_QuotedCells(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportDelimited, Header: true})
	src := NewBytesSource([]byte("id,note\n1,\"hello, world\"\n"))

	rows := collectRows(t, imp, src)
	if len(rows) != 1 || rows[0][1] != "hello, world" {
		t.Errorf("rows = %v, want quoted comma preserved", rows)
	}
}

func TestDelimitedImporter_EmptySource(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportDelimited, Header: true})

	_, err := imp.InferSchema(context.Background(), NewBytesSource(nil), 0)
	if !errors.Is(err, ErrSchemaInference) {
		t.Errorf("InferSchema error = %v, want ErrSchemaInference", err)
	}

	rows := collectRows(t, imp, NewBytesSource(nil))
	if len(rows) != 0 {
		t.Errorf("rows = %v, want none", rows)
	}
}

// ============================================================================
// Fixed-width importer
// ============================================================================

func TestFixedWidthImporter_Slicing(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportFixedWidth, Widths: []int{3, 8, 10}})
	src := NewBytesSource([]byte("  1alice   2024-01-02\n  2bob     2024-01-03\n"))

	schema, err := imp.InferSchema(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}
	want := ColumnSchema{
		{Name: "column_1", Type: "INTEGER"},
		{Name: "column_2", Type: "STRING"},
		{Name: "column_3", Type: "DATETIME"},
	}
	if !reflect.DeepEqual(schema, want) {
		t.Errorf("schema = %v, want %v", schema, want)
	}

	rows := collectRows(t, imp, src)
	wantRows := [][]string{
		{"1", "alice", "2024-01-02"},
		{"2", "bob", "2024-01-03"},
	}
	if !reflect.DeepEqual(rows, wantRows) {
		t.Errorf("rows = %v, want %v", rows, wantRows)
	}
}

func TestFixedWidthImporter_Header(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportFixedWidth, Widths: []int{4, 6}, Header: true})
	src := NewBytesSource([]byte("id  name  \n1   alice \n"))

	schema, err := imp.InferSchema(context.Background(), src, 0)
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}
	if schema[0].Name != "id" || schema[1].Name != "name" {
		t.Errorf("names = %v, want id, name", schema.Names())
	}

	rows := collectRows(t, imp, src)
	if len(rows) != 1 || rows[0][1] != "alice" {
		t.Errorf("rows = %v, want one data row", rows)
	}
}

func TestFixedWidthImporter_ShortLines(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportFixedWidth, Widths: []int{2, 2, 2}})
	rows := collectRows(t, imp, NewBytesSource([]byte("ab\n")))

	want := [][]string{{"ab", "", ""}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestFixedWidthImporter_RuneBoundaries(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportFixedWidth, Widths: []int{2, 2}})
	rows := collectRows(t, imp, NewBytesSource([]byte("日本語x\n")))

	want := [][]string{{"日本", "語x"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v (widths count runes, not bytes)", rows, want)
	}
}

func TestFixedWidthImporter_ConfigErrors(t *testing.T) {
	if _, err := SelectImporter(ImportConfig{Type: ImportFixedWidth}); !errors.Is(err, ErrConfigValidation) {
		t.Errorf("missing widths: error = %v, want ErrConfigValidation", err)
	}
	if _, err := SelectImporter(ImportConfig{Type: ImportFixedWidth, Widths: []int{5, 0}}); !errors.Is(err, ErrConfigValidation) {
		t.Errorf("zero width: error = %v, want ErrConfigValidation", err)
	}
}

// ============================================================================
// Spreadsheet importer
// ============================================================================

// workbookBytes builds an xlsx with the given rows on the first sheet.
func workbookBytes(t *testing.T, rows ...[]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow("Sheet1", cell, &rows[i]); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}
	return buf.Bytes()
}

func TestSpreadsheetImporter_InferWithHeader(t *testing.T) {
	data := workbookBytes(t,
		[]any{"id", "name", "paid"},
		[]any{1, "alice", true},
		[]any{2, "bob", false},
	)
	imp := mustImporter(t, ImportConfig{Type: ImportSpreadsheet, Header: true})

	schema, err := imp.InferSchema(context.Background(), NewBytesSource(data), 0)
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}
	want := ColumnSchema{
		{Name: "id", Type: "INTEGER"},
		{Name: "name", Type: "STRING"},
		{Name: "paid", Type: "BOOLEAN"},
	}
	if !reflect.DeepEqual(schema, want) {
		t.Errorf("schema = %v, want %v", schema, want)
	}
}

func TestSpreadsheetImporter_Rows(t *testing.T) {
	data := workbookBytes(t,
		[]any{"id", "name"},
		[]any{1, "alice"},
		[]any{2, "bob"},
	)
	imp := mustImporter(t, ImportConfig{Type: ImportSpreadsheet, Header: true})

	rows := collectRows(t, imp, NewBytesSource(data))
	want := [][]string{{"1", "alice"}, {"2", "bob"}}
	if !reflect.DeepEqual(rows, want) {
		t.Errorf("rows = %v, want %v", rows, want)
	}
}

func TestSpreadsheetImporter_NoHeader(t *testing.T) {
	data := workbookBytes(t,
		[]any{1, "alice"},
		[]any{2, "bob"},
	)
	imp := mustImporter(t, ImportConfig{Type: ImportSpreadsheet, Header: false})

	schema, err := imp.InferSchema(context.Background(), NewBytesSource(data), 0)
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}
	if schema[0].Name != "column_1" || schema[0].Type != "INTEGER" {
		t.Errorf("schema = %v, want positional integer first column", schema)
	}

	rows := collectRows(t, imp, NewBytesSource(data))
	if len(rows) != 2 {
		t.Errorf("rows = %v, want both data rows streamed", rows)
	}
}

func TestSpreadsheetImporter_MissingSheet(t *testing.T) {
	data := workbookBytes(t, []any{"id"}, []any{1})
	imp := mustImporter(t, ImportConfig{Type: ImportSpreadsheet, Sheet: 7, Header: true})

	_, err := imp.InferSchema(context.Background(), NewBytesSource(data), 0)
	if !errors.Is(err, ErrSourceRead) {
		t.Errorf("error = %v, want ErrSourceRead", err)
	}
}

func TestSpreadsheetImporter_NegativeSheet(t *testing.T) {
	_, err := SelectImporter(ImportConfig{Type: ImportSpreadsheet, Sheet: -1})
	if !errors.Is(err, ErrConfigValidation) {
		t.Errorf("error = %v, want ErrConfigValidation", err)
	}
}

func TestSpreadsheetImporter_NotAWorkbook(t *testing.T) {
	imp := mustImporter(t, ImportConfig{Type: ImportSpreadsheet, Header: true})
	_, err := imp.InferSchema(context.Background(), NewBytesSource([]byte("plain,csv\n1,2\n")), 0)
	if !errors.Is(err, ErrSourceRead) {
		t.Errorf("error = %v, want ErrSourceRead", err)
	}
}

// ============================================================================
// Query-result importer
// ============================================================================

// stubResultStore serves canned executions.
type stubResultStore struct {
	execs map[string]QueryExecution
	rows  map[string][][]string
}

func (s *stubResultStore) Execution(_ context.Context, id string) (QueryExecution, error) {
	exec, ok := s.execs[id]
	if !ok {
		return QueryExecution{}, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
	}
	return exec, nil
}

func (s *stubResultStore) Rows(_ context.Context, id string) (RowStream, error) {
	rows, ok := s.rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExecutionNotFound, id)
	}
	return &stubRows{rows: rows}, nil
}

func TestQueryResultImporter_SchemaFromExecution(t *testing.T) {
	store := &stubResultStore{
		execs: map[string]QueryExecution{
			"exec-1": {
				ID:       "exec-1",
				Columns:  ColumnSchema{{Name: "total", Type: "FLOAT"}},
				RowCount: 1,
			},
		},
		rows: map[string][][]string{"exec-1": {{"3.5"}}},
	}
	imp := NewQueryResultImporter(store, "exec-1")

	// The stored schema is authoritative; no rows are read to infer it.
	schema, err := imp.InferSchema(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}
	if len(schema) != 1 || schema[0].Type != "FLOAT" {
		t.Errorf("schema = %v, want stored FLOAT column", schema)
	}

	rows := collectRows(t, imp, nil)
	if len(rows) != 1 || rows[0][0] != "3.5" {
		t.Errorf("rows = %v, want stored rows", rows)
	}
}

func TestQueryResultImporter_UnknownExecution(t *testing.T) {
	imp := NewQueryResultImporter(&stubResultStore{}, "missing")
	_, err := imp.InferSchema(context.Background(), nil, 0)
	if !errors.Is(err, ErrExecutionNotFound) {
		t.Errorf("error = %v, want ErrExecutionNotFound", err)
	}
}

func TestQueryResultImporter_EmptySchema(t *testing.T) {
	store := &stubResultStore{
		execs: map[string]QueryExecution{"exec-1": {ID: "exec-1"}},
	}
	imp := NewQueryResultImporter(store, "exec-1")
	_, err := imp.InferSchema(context.Background(), nil, 0)
	if !errors.Is(err, ErrSchemaInference) {
		t.Errorf("error = %v, want ErrSchemaInference", err)
	}
}
