// Package sink persists extracted property records to a tabular destination.
//
// Every sink writes the column header once, when it creates the destination, and
// afterwards only appends rows. A destination whose header does not match the
// property columns is refused rather than rewritten.
package sink

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dtnitsch/booking-scraper/models"
)

// Sink accepts ordered batches of records.
type Sink interface {
	// Append writes records after any existing rows and returns how many rows were written.
	Append(records []models.PropertyRecord) (int, error)
	Path() string
}

type Options struct {
	// SortBy names a property column to order each batch by before it is written.
	SortBy string
	// Dedupe drops records identical to a row already present or earlier in the batch.
	Dedupe bool
}

// New returns the sink for format writing to path. Nothing is touched on disk until Append.
func New(format, path string, opts Options) (Sink, error) {
	if path == "" {
		return nil, &models.RunError{Kind: models.ErrSinkFailure, Err: fmt.Errorf("no output path")}
	}
	if opts.SortBy != "" && models.ColumnIndex(opts.SortBy) < 0 {
		return nil, &models.RunError{Kind: models.ErrSinkFailure, Path: path, Err: fmt.Errorf("unknown sort column %q", opts.SortBy)}
	}

	switch strings.ToLower(format) {
	case models.FormatXLSX, "":
		return &XLSX{path: path, sheet: DefaultSheet, opts: opts}, nil
	case models.FormatCSV:
		return &CSV{path: path, opts: opts}, nil
	default:
		return nil, &models.RunError{Kind: models.ErrSinkFailure, Path: path, Err: fmt.Errorf("unsupported format %q", format)}
	}
}

// prepare applies the optional sort and dedupe to a batch. existing holds rows already
// at the destination and is only consulted when deduping.
func prepare(records []models.PropertyRecord, existing [][]string, opts Options) []models.PropertyRecord {
	batch := slices.Clone(records)

	if opts.Dedupe {
		seen := make(map[string]struct{}, len(existing)+len(batch))
		for _, row := range existing {
			seen[rowKey(models.PropertyFromRow(row).Row())] = struct{}{}
		}
		batch = slices.DeleteFunc(batch, func(r models.PropertyRecord) bool {
			key := rowKey(r.Row())
			if _, dup := seen[key]; dup {
				return true
			}
			seen[key] = struct{}{}
			return false
		})
	}

	if idx := models.ColumnIndex(opts.SortBy); idx >= 0 {
		slices.SortStableFunc(batch, func(a, b models.PropertyRecord) int {
			return strings.Compare(a.Row()[idx], b.Row()[idx])
		})
	}
	return batch
}

func rowKey(row []string) string {
	return strings.Join(row, "\x1f")
}

func checkHeader(path string, header []string) error {
	if !slices.Equal(header, models.PropertyColumns) {
		return &models.RunError{
			Kind: models.ErrSinkFailure,
			Path: path,
			Err:  fmt.Errorf("existing header %v does not match %v", header, models.PropertyColumns),
		}
	}
	return nil
}
