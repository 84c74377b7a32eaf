package sink

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/dtnitsch/booking-scraper/models"
)

const DefaultSheet = "Properties"

// XLSX appends records to the first sheet of a workbook.
type XLSX struct {
	path  string
	sheet string
	opts  Options
}

func (s *XLSX) Path() string { return s.path }

func (s *XLSX) Append(records []models.PropertyRecord) (int, error) {
	f, created, err := s.open()
	if err != nil {
		return 0, err
	}
	defer f.Close()

	sheet := s.sheet
	if !created {
		sheet = f.GetSheetList()[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return 0, s.fail(fmt.Errorf("failed to read sheet %s: %w", sheet, err))
	}
	if len(rows) == 0 {
		if err := s.writeHeader(f, sheet); err != nil {
			return 0, err
		}
		rows = [][]string{models.PropertyColumns}
	} else if err := checkHeader(s.path, rows[0]); err != nil {
		return 0, err
	}

	// GetRows drops trailing empty rows, so an all-empty record would be overwritten
	// if the next row were taken from it.
	written, err := rowCount(f, sheet)
	if err != nil {
		return 0, s.fail(fmt.Errorf("failed to count rows in %s: %w", sheet, err))
	}
	next := max(written, len(rows)) + 1

	batch := prepare(records, rows[1:], s.opts)
	for i, r := range batch {
		cell, err := excelize.CoordinatesToCellName(1, next+i)
		if err != nil {
			return 0, s.fail(err)
		}
		row := r.Row()
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return 0, s.fail(fmt.Errorf("failed to write row %d: %w", next+i, err))
		}
	}
	if len(batch) > 0 {
		// A styled cell is kept on save even when it is empty, which keeps empty records
		// in the sheet. Text format also stops "8.4" from turning into a number.
		style, err := f.NewStyle(&excelize.Style{NumFmt: 49})
		if err != nil {
			return 0, s.fail(err)
		}
		if err := f.SetRowStyle(sheet, next, next+len(batch)-1, style); err != nil {
			return 0, s.fail(fmt.Errorf("failed to style rows: %w", err))
		}
	}

	if created {
		err = f.SaveAs(s.path)
	} else {
		err = f.Save()
	}
	if err != nil {
		return 0, s.fail(fmt.Errorf("failed to save workbook: %w", err))
	}
	return len(batch), nil
}

// open loads the workbook at path, or starts a new one with the parent directory in place.
func (s *XLSX) open() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(s.path)
	if err == nil {
		if len(f.GetSheetList()) == 0 {
			_ = f.Close()
			return nil, false, s.fail(fmt.Errorf("workbook has no sheets"))
		}
		return f, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, s.fail(fmt.Errorf("failed to open workbook: %w", err))
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
		return nil, false, s.fail(fmt.Errorf("failed to create output directory: %w", err))
	}
	f = excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), s.sheet); err != nil {
		_ = f.Close()
		return nil, false, s.fail(err)
	}
	return f, true, nil
}

// rowCount is the number of the last row element in sheet, empty or not.
func rowCount(f *excelize.File, sheet string) (int, error) {
	rows, err := f.Rows(sheet)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Error()
}

func (s *XLSX) writeHeader(f *excelize.File, sheet string) error {
	header := models.PropertyColumns
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return s.fail(fmt.Errorf("failed to write header: %w", err))
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return s.fail(err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, style); err != nil {
		return s.fail(err)
	}
	return nil
}

func (s *XLSX) fail(err error) error {
	return &models.RunError{Kind: models.ErrSinkFailure, Path: s.path, Err: err}
}
