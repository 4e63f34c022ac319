package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Cell parsing benchmarks
// ============================================================================

// BenchmarkParseNumeric exercises the numeric cleaner across the shapes
// real exports contain. This is a hot path for every numeric column.
func BenchmarkParseNumeric(b *testing.B) {
	testCases := []string{
		"123",
		"-456.78",
		"$1,234.56",
		"(123.45)",     // accounting negative
		"1,234,567.89", // thousands separators
		"  999.99  ",
		"€1234.56", // euro
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseNumeric(tc)
		}
	}
}

// BenchmarkParseNumeric_Plain benchmarks the common case: a bare integer.
func BenchmarkParseNumeric_Plain(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseNumeric("12345")
	}
}

// BenchmarkParseDatetime walks the layout list across common formats.
func BenchmarkParseDatetime(b *testing.B) {
	testCases := []string{
		"2024-01-15",
		"2024-01-15 10:30:00",
		"01/15/2024",
		"Jan 15, 2024",
		"20240115",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseDatetime(tc)
		}
	}
}

// BenchmarkParseDatetime_ISO benchmarks the first-layout hit.
func BenchmarkParseDatetime_ISO(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseDatetime("2024-01-15")
	}
}

// BenchmarkParseDatetime_Miss benchmarks a value that exhausts every layout,
// the cost inference pays per string cell in a datetime-checked column.
func BenchmarkParseDatetime_Miss(b *testing.B) {
	for i := 0; i < b.N; i++ {
		ParseDatetime("not a date at all")
	}
}

func BenchmarkParseBool(b *testing.B) {
	testCases := []string{"true", "FALSE", "yes", "n", "1", "0"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			ParseBool(tc)
		}
	}
}

// BenchmarkCleanCell benchmarks cell cleanup, which runs on every cell of
// every sampled and loaded row.
func BenchmarkCleanCell(b *testing.B) {
	testCases := []string{
		"plain value",
		"  padded  ",
		`"quoted"`,
		`="000123"`,
		"",
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for _, tc := range testCases {
			CleanCell(tc)
		}
	}
}

// BenchmarkCoerceValue benchmarks one row's worth of load-time coercions.
func BenchmarkCoerceValue(b *testing.B) {
	for i := 0; i < b.N; i++ {
		CoerceValue("INTEGER", "1,024")
		CoerceValue("FLOAT", "$3.50")
		CoerceValue("BOOLEAN", "yes")
		CoerceValue("DATETIME", "2024-01-15")
		CoerceValue("STRING", "hello")
	}
}

// ============================================================================
// Inference benchmarks
// ============================================================================

func benchRows(n int) [][]string {
	rows := make([][]string, n)
	for i := range rows {
		rows[i] = []string{
			fmt.Sprintf("%d", i),
			fmt.Sprintf("name-%d", i),
			fmt.Sprintf("%d.%02d", i, i%100),
			"2024-01-15",
			"true",
		}
	}
	return rows
}

// BenchmarkInferColumns measures a full inference pass over a five-column,
// thousand-row sample, the default preview workload.
func BenchmarkInferColumns(b *testing.B) {
	rows := benchRows(1000)
	names := []string{"id", "name", "amount", "day", "active"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stream := &stubRows{rows: rows}
		if _, err := inferColumns(names, stream, 0); err != nil {
			b.Fatal(err)
		}
	}
}

// ============================================================================
// Streaming benchmarks
// ============================================================================

func benchCSV(n int) []byte {
	var sb strings.Builder
	sb.WriteString("id,name,amount,day,active\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, "%d,name-%d,%d.%02d,2024-01-15,true\n", i, i, i, i%100)
	}
	return []byte(sb.String())
}

// BenchmarkDelimitedInferSchema covers the preview path: open, sanitize,
// parse, and infer over a thousand-row CSV.
func BenchmarkDelimitedInferSchema(b *testing.B) {
	data := benchCSV(1000)
	imp, err := SelectImporter(ImportConfig{Type: ImportDelimited, Header: true})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := imp.InferSchema(ctx, NewBytesSource(data), 0); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDelimitedRows drains a thousand-row CSV through the row stream,
// the per-upload streaming cost before coercion.
func BenchmarkDelimitedRows(b *testing.B) {
	data := benchCSV(1000)
	imp, err := SelectImporter(ImportConfig{Type: ImportDelimited, Header: true})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		stream, err := imp.Rows(ctx, NewBytesSource(data))
		if err != nil {
			b.Fatal(err)
		}
		for stream.Next() {
		}
		if err := stream.Err(); err != nil {
			b.Fatal(err)
		}
		stream.Close()
	}
}
