package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/tableport/tableport/internal/core"
)

// parquetBatchSize is the number of rows buffered per parquet write call.
const parquetBatchSize = 1000

// Stager encodes row streams into objects an engine can read as table data.
// It implements core.Stager over any ObjectStore.
type Stager struct {
	store ObjectStore
}

func NewStager(store ObjectStore) *Stager {
	return &Stager{store: store}
}

// NewLocation reserves a distinct address for one staging object. The key
// embeds a fresh UUID so repeated uploads of the same table never collide.
func (s *Stager) NewLocation(table string, format core.StorageFormat) string {
	key := path.Join("uploads", uuid.NewString(), objectName(table)+extensionFor(format))
	return s.store.Location(key)
}

// Stage encodes the stream at location. The encoder runs in its own
// goroutine feeding the store through a pipe, so large uploads never
// buffer fully in memory.
func (s *Stager) Stage(ctx context.Context, location string, schema core.ColumnSchema, format core.StorageFormat, rows core.RowStream) (int64, error) {
	key, ok := s.store.Key(location)
	if !ok {
		return 0, fmt.Errorf("%w: location %q is outside the configured store", core.ErrStage, location)
	}

	pr, pw := io.Pipe()
	results := make(chan stageResult, 1)
	go func() {
		var res stageResult
		switch format {
		case core.FormatCSV:
			res.rows, res.err = encodeCSV(pw, schema, rows)
		case core.FormatParquet:
			res.rows, res.err = encodeParquet(pw, schema, rows)
		default:
			res.err = fmt.Errorf("%w: cannot stage %s data", core.ErrUnsupportedStorageFormat, format)
		}
		pw.CloseWithError(res.err)
		results <- res
	}()

	putErr := s.store.Put(ctx, key, pr)
	// If Put bailed early the encoder is still blocked on the pipe; closing
	// the read side unblocks it so the result channel always yields.
	pr.Close()
	res := <-results

	if res.err != nil {
		return 0, res.err
	}
	if putErr != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrStage, putErr)
	}
	return res.rows, nil
}

// Discard removes a staged object. Locations outside the store are ignored:
// the caller may pass a user-supplied external location that was never ours.
func (s *Stager) Discard(ctx context.Context, location string) error {
	key, ok := s.store.Key(location)
	if !ok {
		return nil
	}
	return s.store.Delete(ctx, key)
}

type stageResult struct {
	rows int64
	err  error
}

// encodeCSV writes a header row of column names followed by one record per
// stream row, squared to the schema width and cleaned cell by cell.
func encodeCSV(w io.Writer, schema core.ColumnSchema, rows core.RowStream) (int64, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(schema.Names()); err != nil {
		return 0, fmt.Errorf("write csv header: %w", err)
	}

	var n int64
	record := make([]string, len(schema))
	for rows.Next() {
		row := rows.Row()
		for i := range schema {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			record[i] = core.CleanCell(cell)
		}
		if err := cw.Write(record); err != nil {
			return n, fmt.Errorf("write csv row: %w", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return n, fmt.Errorf("flush csv: %w", err)
	}
	return n, nil
}

// encodeParquet writes the stream as a snappy-compressed parquet file whose
// schema mirrors the canonical column types. Cells are coerced the same way
// the insert path coerces them, so a value that would fail a native load
// also fails staging.
func encodeParquet(w io.Writer, schema core.ColumnSchema, rows core.RowStream) (int64, error) {
	pw := parquet.NewGenericWriter[map[string]any](w,
		parquetSchema(schema),
		parquet.Compression(&parquet.Snappy),
	)

	var n int64
	batch := make([]map[string]any, 0, parquetBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pw.Write(batch); err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
		n += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		row := rows.Row()
		rec := make(map[string]any, len(schema))
		for i, col := range schema {
			var cell string
			if i < len(row) {
				cell = row[i]
			}
			v, err := core.CoerceValue(col.Type, cell)
			if err != nil {
				return n, fmt.Errorf("row %d, column %q: %w", n+int64(len(batch))+1, col.Name, err)
			}
			if v == nil {
				// Absent map keys become nulls for optional fields.
				continue
			}
			rec[col.Name] = parquetValue(v)
		}
		batch = append(batch, rec)
		if len(batch) >= parquetBatchSize {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return n, err
	}
	if err := flush(); err != nil {
		return n, err
	}
	if err := pw.Close(); err != nil {
		return n, fmt.Errorf("close parquet writer: %w", err)
	}
	return n, nil
}

// parquetSchema builds a one-group schema with every column optional, since
// any cell of the source may be empty.
func parquetSchema(schema core.ColumnSchema) *parquet.Schema {
	group := parquet.Group{}
	for _, col := range schema {
		group[col.Name] = parquet.Optional(parquetNode(col.Type))
	}
	return parquet.NewSchema("upload", group)
}

func parquetNode(columnType string) parquet.Node {
	switch core.ColumnType(columnType) {
	case core.TypeBoolean:
		return parquet.Leaf(parquet.BooleanType)
	case core.TypeDatetime:
		return parquet.Timestamp(parquet.Millisecond)
	case core.TypeFloat:
		return parquet.Leaf(parquet.DoubleType)
	case core.TypeInteger:
		return parquet.Leaf(parquet.Int64Type)
	default:
		// STRING and custom type expressions stage as text.
		return parquet.String()
	}
}

// parquetValue adapts coerced values to what the parquet encoder expects;
// timestamps are written as epoch milliseconds.
func parquetValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UnixMilli()
	}
	return v
}

// objectName reduces a table name to characters safe in every store.
func objectName(table string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, table)
	if mapped == "" {
		return "upload"
	}
	return mapped
}

func extensionFor(format core.StorageFormat) string {
	if format == core.FormatParquet {
		return ".parquet"
	}
	return ".csv"
}
