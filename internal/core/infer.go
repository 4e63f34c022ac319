package core

// infer.go implements canonical type inference over sampled rows.
//
// Each column tracks the set of canonical types that still fit every
// non-empty value seen so far. The inferred type is the first member of the
// fixed priority order (INTEGER, FLOAT, BOOLEAN, DATETIME) still in the set;
// STRING is the universal fallback. The scan is bounded by the sample limit
// and is deterministic for a given sample order.

import (
	"fmt"
	"strings"
)

// DefaultSampleLimit bounds inference scans when the ImportConfig does not
// set one.
const DefaultSampleLimit = 1000

// typeMask is a bitset over the non-STRING canonical types.
type typeMask uint8

const (
	maskInteger typeMask = 1 << iota
	maskFloat
	maskBoolean
	maskDatetime

	maskAll = maskInteger | maskFloat | maskBoolean | maskDatetime
)

// narrow clears every type bit the value does not fit.
func (m typeMask) narrow(value string) typeMask {
	if m&maskInteger != 0 && !fitsInteger(value) {
		m &^= maskInteger
	}
	if m&maskFloat != 0 && !fitsFloat(value) {
		m &^= maskFloat
	}
	if m&maskBoolean != 0 && !fitsBoolean(value) {
		m &^= maskBoolean
	}
	if m&maskDatetime != 0 && !fitsDatetime(value) {
		m &^= maskDatetime
	}
	return m
}

// resolve returns the inferred type in priority order. A column that never
// saw a non-empty value, or whose mask is empty, infers STRING.
func (m typeMask) resolve(sawValue bool) ColumnType {
	if !sawValue {
		return TypeString
	}
	switch {
	case m&maskInteger != 0:
		return TypeInteger
	case m&maskFloat != 0:
		return TypeFloat
	case m&maskBoolean != 0:
		return TypeBoolean
	case m&maskDatetime != 0:
		return TypeDatetime
	}
	return TypeString
}

// inferColumns scans up to sampleLimit rows from the stream and returns the
// schema for the given column names. Cells beyond the header width are
// ignored; short rows simply contribute nothing to the missing columns.
// Fails with ErrSchemaInference when there are zero columns.
func inferColumns(names []string, rows RowStream, sampleLimit int) (ColumnSchema, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: source has no columns", ErrSchemaInference)
	}
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}

	masks := make([]typeMask, len(names))
	sawValue := make([]bool, len(names))
	for i := range masks {
		masks[i] = maskAll
	}

	scanned := 0
	for scanned < sampleLimit && rows.Next() {
		row := rows.Row()
		for i := range names {
			if i >= len(row) {
				continue
			}
			value := CleanCell(row[i])
			if value == "" {
				continue
			}
			sawValue[i] = true
			masks[i] = masks[i].narrow(value)
		}
		scanned++
	}
	if err := rows.Err(); err != nil {
		return nil, sourceReadError(err)
	}

	schema := make(ColumnSchema, len(names))
	for i, name := range names {
		schema[i] = Column{
			Name: name,
			Type: string(masks[i].resolve(sawValue[i])),
		}
	}
	return schema, nil
}

// uniqueColumnNames normalizes a header row into usable column names:
// blanks become positional column_N names and duplicates get a numeric
// suffix, preserving order.
func uniqueColumnNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))

	for i, h := range header {
		name := CleanCell(h)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		if _, taken := seen[name]; !taken {
			seen[name] = 1
		}
		names[i] = name
	}
	return names
}

// positionalColumnNames generates column_1..column_n for headerless input.
func positionalColumnNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("column_%d", i+1)
	}
	return names
}

// trimRowTo pads or truncates row to width cells so streams stay aligned
// with the schema even when the source has ragged rows.
func trimRowTo(width int, row []string) []string {
	if len(row) == width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}

// isEmptyRow reports whether every cell is blank after cleanup.
func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
