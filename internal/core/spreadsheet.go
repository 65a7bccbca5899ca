package core

import (
	"context"
	"errors"

	"github.com/xuri/excelize/v2"
)

const msgSpreadsheetInvalid = "Invalid or empty spreadsheet"

// SpreadsheetParser reads the first sheet of a workbook. Row 1 is the header;
// data starts at row 2 and only the first four columns are used. Cell values
// are read as their displayed text.
type SpreadsheetParser struct{}

// Open fails with KindEmptyOrInvalidFile when the workbook cannot be read or
// its first sheet has no populated rows.
func (SpreadsheetParser) Open(_ context.Context, path string) (RowReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, invalidFile(path, msgSpreadsheetInvalid, err)
	}

	sheet := f.GetSheetName(0)
	if sheet == "" {
		f.Close()
		return nil, invalidFile(path, msgSpreadsheetInvalid, nil)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, invalidFile(path, msgSpreadsheetInvalid, err)
	}

	// Header row; an empty sheet has none.
	if !rows.Next() {
		rows.Close()
		f.Close()
		return nil, invalidFile(path, msgSpreadsheetInvalid, nil)
	}

	return &sheetRows{file: f, rows: rows, line: 1}, nil
}

type sheetRows struct {
	file *excelize.File
	rows *excelize.Rows
	line int
	row  ImportRow
	err  error
}

func (s *sheetRows) Next() bool {
	if s.err != nil || !s.rows.Next() {
		return false
	}
	s.line++

	cols, err := s.rows.Columns()
	if err != nil {
		s.err = err
		return false
	}

	s.row = rowFromFields(s.line, cols)
	// Trailing empty cells are not returned by excelize, but the grid
	// always has them.
	s.row.Columns = RowWidth
	return true
}

func (s *sheetRows) Row() ImportRow { return s.row }

func (s *sheetRows) Err() error {
	if s.err != nil {
		return s.err
	}
	return s.rows.Error()
}

func (s *sheetRows) Close() error {
	return errors.Join(s.rows.Close(), s.file.Close())
}
