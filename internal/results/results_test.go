package results

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/tableport/tableport/internal/core"
)

// ============================================================================
// Memory Store Tests
// ============================================================================

func TestMemoryStoreExecution(t *testing.T) {
	store := NewMemoryStore()
	columns := core.ColumnSchema{
		{Name: "id", Type: "INTEGER"},
		{Name: "name", Type: "STRING"},
	}
	store.Put("exec-1", columns, [][]string{{"1", "alice"}, {"2", "bob"}})

	exec, err := store.Execution(context.Background(), "exec-1")
	if err != nil {
		t.Fatalf("Execution() error = %v", err)
	}
	if exec.ID != "exec-1" || exec.RowCount != 2 {
		t.Errorf("Execution() = %+v", exec)
	}
	if !reflect.DeepEqual(exec.Columns, columns) {
		t.Errorf("Columns = %v, want %v", exec.Columns, columns)
	}
}

func TestMemoryStoreUnknownExecution(t *testing.T) {
	store := NewMemoryStore()

	if _, err := store.Execution(context.Background(), "nope"); !errors.Is(err, core.ErrExecutionNotFound) {
		t.Errorf("Execution() error = %v, want ErrExecutionNotFound", err)
	}
	if _, err := store.Rows(context.Background(), "nope"); !errors.Is(err, core.ErrExecutionNotFound) {
		t.Errorf("Rows() error = %v, want ErrExecutionNotFound", err)
	}
}

func TestMemoryStoreRows(t *testing.T) {
	store := NewMemoryStore()
	source := [][]string{{"1", "alice"}, {"2", "bob"}}
	store.Put("exec-1", core.ColumnSchema{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "STRING"}}, source)

	// Mutating the seed data after Put must not affect the stream.
	source[0][1] = "mallory"

	stream, err := store.Rows(context.Background(), "exec-1")
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	defer stream.Close()

	var got [][]string
	for stream.Next() {
		got = append(got, append([]string(nil), stream.Row()...))
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error = %v", err)
	}

	want := [][]string{{"1", "alice"}, {"2", "bob"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

// ============================================================================
// CSV Stream Tests
// ============================================================================

func TestCSVStreamSkipsHeader(t *testing.T) {
	rc := io.NopCloser(strings.NewReader("id,name\n1,alice\n2,bob\n"))
	stream, err := newCSVStream(rc, true)
	if err != nil {
		t.Fatalf("newCSVStream() error = %v", err)
	}
	defer stream.Close()

	var got [][]string
	for stream.Next() {
		got = append(got, append([]string(nil), stream.Row()...))
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error = %v", err)
	}

	want := [][]string{{"1", "alice"}, {"2", "bob"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("rows = %v, want %v", got, want)
	}
}

func TestCSVStreamEmptyObject(t *testing.T) {
	stream, err := newCSVStream(io.NopCloser(strings.NewReader("")), true)
	if err != nil {
		t.Fatalf("newCSVStream() error = %v", err)
	}
	defer stream.Close()

	if stream.Next() {
		t.Error("Next() = true on empty object")
	}
	if err := stream.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

// ============================================================================
// Importer Integration Tests
// ============================================================================

func TestQueryResultImporterUsesStoredSchema(t *testing.T) {
	store := NewMemoryStore()
	columns := core.ColumnSchema{
		{Name: "total", Type: "FLOAT"},
		{Name: "region", Type: "STRING"},
	}
	store.Put("exec-9", columns, [][]string{{"12.5", "emea"}})

	imp := core.NewQueryResultImporter(store, "exec-9")

	// Schema comes from the execution record; nothing is re-inferred, so the
	// sample limit is irrelevant.
	schema, err := imp.InferSchema(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("InferSchema() error = %v", err)
	}
	if !reflect.DeepEqual(schema, columns) {
		t.Errorf("schema = %v, want stored columns %v", schema, columns)
	}

	stream, err := imp.Rows(context.Background(), nil)
	if err != nil {
		t.Fatalf("Rows() error = %v", err)
	}
	defer stream.Close()
	if !stream.Next() {
		t.Fatal("stream yielded no rows")
	}
	if got := stream.Row(); !reflect.DeepEqual(got, []string{"12.5", "emea"}) {
		t.Errorf("row = %v", got)
	}
}
