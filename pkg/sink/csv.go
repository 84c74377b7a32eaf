package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dtnitsch/booking-scraper/models"
)

// CSV appends records to a comma separated file.
type CSV struct {
	path string
	opts Options
}

func (s *CSV) Path() string { return s.path }

func (s *CSV) Append(records []models.PropertyRecord) (int, error) {
	existing, err := s.readExisting()
	if err != nil {
		return 0, err
	}

	if existing == nil {
		if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
			return 0, s.fail(fmt.Errorf("failed to create output directory: %w", err))
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, s.fail(fmt.Errorf("failed to open csv: %w", err))
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if existing == nil {
		if err := w.Write(models.PropertyColumns); err != nil {
			return 0, s.fail(err)
		}
	}

	var body [][]string
	if len(existing) > 1 {
		body = existing[1:]
	}
	batch := prepare(records, body, s.opts)
	for _, r := range batch {
		if err := w.Write(r.Row()); err != nil {
			return 0, s.fail(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, s.fail(fmt.Errorf("failed to flush csv: %w", err))
	}
	return len(batch), nil
}

// readExisting returns nil for a missing or empty file. Otherwise it checks the header,
// and only reads the remaining rows when they are needed for deduping.
func (s *CSV) readExisting() ([][]string, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(fmt.Errorf("failed to open csv: %w", err))
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail(fmt.Errorf("failed to read csv header: %w", err))
	}
	if err := checkHeader(s.path, header); err != nil {
		return nil, err
	}

	rows := [][]string{header}
	if !s.opts.Dedupe {
		return rows, nil
	}
	rest, err := r.ReadAll()
	if err != nil {
		return nil, s.fail(fmt.Errorf("failed to read csv rows: %w", err))
	}
	return append(rows, rest...), nil
}

func (s *CSV) fail(err error) error {
	return &models.RunError{Kind: models.ErrSinkFailure, Path: s.path, Err: err}
}
