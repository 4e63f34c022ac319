// importer_delimited.go reads delimiter-separated text (CSV, TSV, pipe).
package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

func init() {
	RegisterImporter(ImportDelimited, newDelimitedImporter)
}

type delimitedImporter struct {
	comma  rune
	header bool
}

func newDelimitedImporter(cfg ImportConfig) (Importer, error) {
	delim := cfg.Delimiter
	if delim == "" {
		delim = ","
	}
	if utf8.RuneCountInString(delim) != 1 {
		return nil, configErrorf("delimiter must be a single character, got %q", delim)
	}
	comma, _ := utf8.DecodeRuneInString(delim)
	return &delimitedImporter{comma: comma, header: cfg.Header}, nil
}

// open returns a CSV reader over the sanitized source. Real-world exports
// are rarely strict RFC 4180, so quoting is lenient and records may have
// ragged field counts; rows are squared up downstream.
func (im *delimitedImporter) open(ctx context.Context, src Source) (*csv.Reader, io.Closer, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	r := csv.NewReader(NewSanitizingReader(rc))
	r.Comma = im.comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r, rc, nil
}

func (im *delimitedImporter) InferSchema(ctx context.Context, src Source, sampleLimit int) (ColumnSchema, error) {
	r, closer, err := im.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	first, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: source is empty", ErrSchemaInference)
	}
	if err != nil {
		return nil, sourceReadError(err)
	}

	names, pending := headerNames(im.header, first)
	stream := &recordStream{next: r.Read, width: len(names), pending: pending}
	return inferColumns(names, stream, sampleLimit)
}

func (im *delimitedImporter) Rows(ctx context.Context, src Source) (RowStream, error) {
	r, closer, err := im.open(ctx, src)
	if err != nil {
		return nil, err
	}

	first, err := r.Read()
	if err == io.EOF {
		return &recordStream{next: r.Read, closer: closer}, nil
	}
	if err != nil {
		closer.Close()
		return nil, sourceReadError(err)
	}

	names, pending := headerNames(im.header, first)
	return &recordStream{next: r.Read, closer: closer, width: len(names), pending: pending}, nil
}

// headerNames derives column names from the first record. With a header row
// the record itself names the columns and carries no data; without one the
// columns are named by position and the record is the first data row.
func headerNames(header bool, first []string) (names []string, pending []string) {
	if header {
		return uniqueColumnNames(first), nil
	}
	return positionalColumnNames(len(first)), first
}

// recordStream adapts a record-producing function to a RowStream. Rows are
// squared to a fixed width and rows whose cells are all empty are skipped.
// A pending record, when set, is served before the function is consulted.
type recordStream struct {
	next    func() ([]string, error)
	closer  io.Closer
	width   int
	pending []string
	row     []string
	err     error
}

func (s *recordStream) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		var rec []string
		if s.pending != nil {
			rec, s.pending = s.pending, nil
		} else {
			var err error
			rec, err = s.next()
			if err == io.EOF {
				return false
			}
			if err != nil {
				s.err = sourceReadError(err)
				return false
			}
		}
		if isEmptyRow(rec) {
			continue
		}
		if s.width > 0 {
			rec = trimRowTo(s.width, rec)
		}
		s.row = rec
		return true
	}
}

func (s *recordStream) Row() []string { return s.row }

func (s *recordStream) Err() error { return s.err }

func (s *recordStream) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		return err
	}
	return nil
}
