// importer_spreadsheet.go reads workbook files (xlsx and friends) through
// excelize, one worksheet per import. Cell values arrive already formatted
// by the workbook's number formats, so type inference sees the same text a
// user sees in the sheet.
package core

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

func init() {
	RegisterImporter(ImportSpreadsheet, newSpreadsheetImporter)
}

type spreadsheetImporter struct {
	sheet  int
	header bool
}

func newSpreadsheetImporter(cfg ImportConfig) (Importer, error) {
	if cfg.Sheet < 0 {
		return nil, configErrorf("sheet index must not be negative, got %d", cfg.Sheet)
	}
	return &spreadsheetImporter{sheet: cfg.Sheet, header: cfg.Header}, nil
}

// open loads the workbook and positions a streaming iterator on the
// configured worksheet.
func (im *spreadsheetImporter) open(ctx context.Context, src Source) (*sheetStream, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	f, err := excelize.OpenReader(rc)
	if err != nil {
		rc.Close()
		return nil, sourceReadError(fmt.Errorf("open workbook: %w", err))
	}
	name := f.GetSheetName(im.sheet)
	if name == "" {
		f.Close()
		rc.Close()
		return nil, sourceReadError(fmt.Errorf("workbook has no sheet at index %d", im.sheet))
	}
	rows, err := f.Rows(name)
	if err != nil {
		f.Close()
		rc.Close()
		return nil, sourceReadError(fmt.Errorf("read sheet %q: %w", name, err))
	}
	return &sheetStream{file: f, rows: rows, src: rc}, nil
}

func (im *spreadsheetImporter) InferSchema(ctx context.Context, src Source, sampleLimit int) (ColumnSchema, error) {
	stream, err := im.open(ctx, src)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if !stream.Next() {
		if err := stream.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: worksheet is empty", ErrSchemaInference)
	}

	first := stream.Row()
	var names []string
	if im.header {
		names = uniqueColumnNames(first)
	} else {
		names = positionalColumnNames(len(first))
		stream.pending = first
	}
	stream.width = len(names)
	return inferColumns(names, stream, sampleLimit)
}

func (im *spreadsheetImporter) Rows(ctx context.Context, src Source) (RowStream, error) {
	stream, err := im.open(ctx, src)
	if err != nil {
		return nil, err
	}
	if !stream.Next() {
		if err := stream.Err(); err != nil {
			stream.Close()
			return nil, err
		}
		return stream, nil
	}
	first := stream.Row()
	if im.header {
		stream.width = len(first)
	} else {
		stream.width = len(first)
		stream.pending = first
	}
	return stream, nil
}

// sheetStream walks worksheet rows, squaring each to a fixed width once it
// is known. Rows whose cells are all empty are skipped.
type sheetStream struct {
	file    *excelize.File
	rows    *excelize.Rows
	src     io.Closer
	width   int
	pending []string
	row     []string
	err     error
}

func (s *sheetStream) Next() bool {
	if s.err != nil {
		return false
	}
	for {
		var row []string
		if s.pending != nil {
			row, s.pending = s.pending, nil
		} else {
			if !s.rows.Next() {
				if err := s.rows.Error(); err != nil {
					s.err = sourceReadError(err)
				}
				return false
			}
			cells, err := s.rows.Columns()
			if err != nil {
				s.err = sourceReadError(err)
				return false
			}
			row = cells
		}
		if isEmptyRow(row) {
			continue
		}
		if s.width > 0 {
			row = trimRowTo(s.width, row)
		}
		s.row = row
		return true
	}
}

func (s *sheetStream) Row() []string { return s.row }

func (s *sheetStream) Err() error { return s.err }

func (s *sheetStream) Close() error {
	var first error
	if s.rows != nil {
		first = s.rows.Close()
		s.rows = nil
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil && first == nil {
			first = err
		}
		s.file = nil
	}
	if s.src != nil {
		if err := s.src.Close(); err != nil && first == nil {
			first = err
		}
		s.src = nil
	}
	return first
}
