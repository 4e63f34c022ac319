// importer_fixedwidth.go reads column-aligned text where each field occupies
// a fixed number of characters. Mainframe extracts and legacy report dumps
// still arrive in this shape.
package core

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

func init() {
	RegisterImporter(ImportFixedWidth, newFixedWidthImporter)
}

// Longest line a fixed-width source may contain. Generous; these files are
// column-aligned, not free-form.
const maxFixedWidthLine = 1 << 20

type fixedWidthImporter struct {
	widths []int
	header bool
}

func newFixedWidthImporter(cfg ImportConfig) (Importer, error) {
	if len(cfg.Widths) == 0 {
		return nil, configErrorf("fixed-width import requires column widths")
	}
	for i, w := range cfg.Widths {
		if w <= 0 {
			return nil, configErrorf("column width %d must be positive, got %d", i+1, w)
		}
	}
	return &fixedWidthImporter{widths: cfg.Widths, header: cfg.Header}, nil
}

func (im *fixedWidthImporter) open(ctx context.Context, src Source) (*bufio.Scanner, io.Closer, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	sc := bufio.NewScanner(NewSanitizingReader(rc))
	sc.Buffer(make([]byte, 64*1024), maxFixedWidthLine)
	return sc, rc, nil
}

func (im *fixedWidthImporter) InferSchema(ctx context.Context, src Source, sampleLimit int) (ColumnSchema, error) {
	sc, closer, err := im.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	stream := &fixedWidthStream{sc: sc, widths: im.widths}
	names := positionalColumnNames(len(im.widths))
	if im.header {
		if !stream.Next() {
			if err := stream.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: source is empty", ErrSchemaInference)
		}
		names = uniqueColumnNames(stream.Row())
	}
	return inferColumns(names, stream, sampleLimit)
}

func (im *fixedWidthImporter) Rows(ctx context.Context, src Source) (RowStream, error) {
	sc, closer, err := im.open(ctx, src)
	if err != nil {
		return nil, err
	}
	stream := &fixedWidthStream{sc: sc, widths: im.widths, closer: closer}
	if im.header {
		stream.Next()
		if err := stream.Err(); err != nil {
			stream.Close()
			return nil, err
		}
	}
	return stream, nil
}

// fixedWidthStream slices each scanned line into cells at rune offsets.
// Short lines yield empty trailing cells; characters beyond the final column
// are ignored. Cells are space-trimmed, and blank lines are skipped.
type fixedWidthStream struct {
	sc     *bufio.Scanner
	widths []int
	closer io.Closer
	row    []string
	err    error
}

func (s *fixedWidthStream) Next() bool {
	if s.err != nil {
		return false
	}
	for s.sc.Scan() {
		row := sliceFixedWidth(s.sc.Text(), s.widths)
		if isEmptyRow(row) {
			continue
		}
		s.row = row
		return true
	}
	if err := s.sc.Err(); err != nil {
		s.err = sourceReadError(err)
	}
	return false
}

func (s *fixedWidthStream) Row() []string { return s.row }

func (s *fixedWidthStream) Err() error { return s.err }

func (s *fixedWidthStream) Close() error {
	if s.closer == nil {
		return nil
	}
	err := s.closer.Close()
	s.closer = nil
	return err
}

// sliceFixedWidth cuts line into len(widths) cells, measuring offsets in
// runes so multi-byte characters do not shift column boundaries.
func sliceFixedWidth(line string, widths []int) []string {
	runes := []rune(line)
	cells := make([]string, len(widths))
	pos := 0
	for i, w := range widths {
		if pos >= len(runes) {
			break
		}
		end := pos + w
		if end > len(runes) {
			end = len(runes)
		}
		cells[i] = strings.TrimSpace(string(runes[pos:end]))
		pos = end
	}
	return cells
}
