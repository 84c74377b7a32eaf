package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dtnitsch/booking-scraper/models"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunPartial  = "partial"
	RunFailed   = "failed"
)

// Run is one scrape invocation as recorded in history.
type Run struct {
	RunID        int64      `json:"run_id" yaml:"run_id"`
	URL          string     `json:"url" yaml:"url"`
	Mode         string     `json:"mode" yaml:"mode"`
	Status       string     `json:"status" yaml:"status"`
	LoadState    string     `json:"load_state,omitempty" yaml:"load_state,omitempty"`
	Clicks       int        `json:"clicks" yaml:"clicks"`
	SummaryTotal string     `json:"summary_total,omitempty" yaml:"summary_total,omitempty"`
	CardCount    int        `json:"card_count" yaml:"card_count"`
	RecordCount  int        `json:"record_count" yaml:"record_count"`
	SkippedCount int        `json:"skipped_count" yaml:"skipped_count"`
	ErrorKind    string     `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty" yaml:"error_message,omitempty"`
	PageTitle    string     `json:"page_title,omitempty" yaml:"page_title,omitempty"`
	PageLanguage string     `json:"page_language,omitempty" yaml:"page_language,omitempty"`
	StartedAt    time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

// RunOutcome is what FinishRun records once a run stops.
type RunOutcome struct {
	Status       string
	LoadState    string
	Clicks       int
	SummaryTotal string
	CardCount    int
	RecordCount  int
	SkippedCount int
	ErrorKind    string
	ErrorMessage string
	PageTitle    string
	PageLanguage string
}

// InsertRun starts a run against urlID and returns the run_id.
func (db *DB) InsertRun(urlID int64, mode string) (int64, error) {
	result, err := db.Exec(`
		INSERT INTO runs (url_id, mode, status) VALUES (?, ?, ?)
	`, urlID, mode, RunRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return runID, nil
}

// FinishRun stamps the outcome and finish time on a run.
func (db *DB) FinishRun(runID int64, out RunOutcome) error {
	result, err := db.Exec(`
		UPDATE runs SET
			status = ?, load_state = ?, clicks = ?, summary_total = ?,
			card_count = ?, record_count = ?, skipped_count = ?,
			error_kind = ?, error_message = ?, page_title = ?, page_language = ?,
			finished_at = CURRENT_TIMESTAMP
		WHERE run_id = ?
	`, out.Status, NewNullString(out.LoadState), out.Clicks, NewNullString(out.SummaryTotal),
		out.CardCount, out.RecordCount, out.SkippedCount,
		NewNullString(out.ErrorKind), NewNullString(out.ErrorMessage),
		NewNullString(out.PageTitle), NewNullString(out.PageLanguage), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %d", runID)
	}
	return nil
}

// InsertProperties stores a run's records in order. Positions start at 0.
func (db *DB) InsertProperties(runID int64, records []models.PropertyRecord) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO run_properties (
			run_id, position, title, image_link, url_link, star_rating, location,
			map_link, review_score, review_comment, review_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare property insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		if _, err := stmt.Exec(runID, i, r.Title, r.ImageLink, r.URLLink, r.StarRating, r.Location,
			r.MapLink, r.ReviewScore, r.ReviewComment, r.ReviewCount); err != nil {
			return fmt.Errorf("failed to insert property %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit properties: %w", err)
	}
	return nil
}

// GetRunProperties returns a run's records in document order.
func (db *DB) GetRunProperties(runID int64) ([]models.PropertyRecord, error) {
	rows, err := db.Query(`
		SELECT title, image_link, url_link, star_rating, location,
			map_link, review_score, review_comment, review_count
		FROM run_properties
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query properties: %w", err)
	}
	defer rows.Close()

	records := []models.PropertyRecord{}
	for rows.Next() {
		var r models.PropertyRecord
		if err := rows.Scan(&r.Title, &r.ImageLink, &r.URLLink, &r.StarRating, &r.Location,
			&r.MapLink, &r.ReviewScore, &r.ReviewComment, &r.ReviewCount); err != nil {
			return nil, fmt.Errorf("failed to scan property: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

const runColumns = `
	r.run_id, u.original_url, r.mode, r.status, r.load_state, r.clicks, r.summary_total,
	r.card_count, r.record_count, r.skipped_count, r.error_kind, r.error_message,
	r.page_title, r.page_language, r.started_at, r.finished_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var loadState, summary, errKind, errMsg, title, lang sql.NullString
	var finished sql.NullTime
	err := row.Scan(&run.RunID, &run.URL, &run.Mode, &run.Status, &loadState, &run.Clicks, &summary,
		&run.CardCount, &run.RecordCount, &run.SkippedCount, &errKind, &errMsg,
		&title, &lang, &run.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	run.LoadState = loadState.String
	run.SummaryTotal = summary.String
	run.ErrorKind = errKind.String
	run.ErrorMessage = errMsg.String
	run.PageTitle = title.String
	run.PageLanguage = lang.String
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(runID int64) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+`
		FROM runs r
		JOIN urls u ON r.url_id = u.url_id
		WHERE r.run_id = ?
	`, runID)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %d", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A status filter of "" matches all.
func (db *DB) ListRuns(limit int, status string) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + `
		FROM runs r
		JOIN urls u ON r.url_id = u.url_id`
	args := []any{}
	if status != "" {
		query += ` WHERE r.status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY r.run_id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}
