// Package pipeline runs one scrape end to end: load the results page, keep its
// snapshot, extract records, append them to the sink and record the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/booking-scraper/models"
	"github.com/dtnitsch/booking-scraper/pkg/artifact_manager"
	"github.com/dtnitsch/booking-scraper/pkg/browser"
	"github.com/dtnitsch/booking-scraper/pkg/db"
	"github.com/dtnitsch/booking-scraper/pkg/extractor"
	"github.com/dtnitsch/booking-scraper/pkg/fetcher"
	"github.com/dtnitsch/booking-scraper/pkg/mapreduce"
	"github.com/dtnitsch/booking-scraper/pkg/pagemeta"
	"github.com/dtnitsch/booking-scraper/pkg/sink"
	"github.com/dtnitsch/booking-scraper/pkg/snapshot"
)

const (
	highlightCount = 5
	tallyBatch     = 100
)

// Loader drives a live page to its fully loaded state.
type Loader interface {
	Load(ctx context.Context, url string) (*browser.LoadResult, error)
}

// PageFetcher retrieves a page without a browser.
type PageFetcher interface {
	GetSnapshot(ctx context.Context, url string) (*snapshot.Snapshot, error)
}

// Report summarizes one run. Err holds the failure that made the run partial or failed.
type Report struct {
	RunID           int64         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	URL             string        `json:"url" yaml:"url"`
	Mode            string        `json:"mode" yaml:"mode"`
	Status          string        `json:"status" yaml:"status"`
	LoadState       string        `json:"load_state,omitempty" yaml:"load_state,omitempty"`
	Clicks          int           `json:"clicks" yaml:"clicks"`
	CardCounts      []int         `json:"card_counts,omitempty" yaml:"card_counts,omitempty"`
	Summary         string        `json:"summary" yaml:"summary"`
	CardCount       int           `json:"card_count" yaml:"card_count"`
	RecordCount     int           `json:"record_count" yaml:"record_count"`
	Written         int           `json:"written" yaml:"written"`
	Skipped         int           `json:"skipped" yaml:"skipped"`
	TopLocations    []string      `json:"top_locations,omitempty" yaml:"top_locations,omitempty"`
	TopReviews      []string      `json:"top_reviews,omitempty" yaml:"top_reviews,omitempty"`
	SnapshotPath    string        `json:"snapshot_path,omitempty" yaml:"snapshot_path,omitempty"`
	RunSnapshotPath string        `json:"run_snapshot_path,omitempty" yaml:"run_snapshot_path,omitempty"`
	SnapshotBytes   int           `json:"snapshot_bytes" yaml:"snapshot_bytes"`
	SnapshotHash    string        `json:"snapshot_hash,omitempty" yaml:"snapshot_hash,omitempty"`
	OutputPath      string        `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Page            pagemeta.Meta `json:"page" yaml:"page,omitempty"`
	Elapsed         time.Duration `json:"elapsed" yaml:"elapsed"`
	Error           string        `json:"error,omitempty" yaml:"error,omitempty"`
	CacheHit        bool          `json:"cache_hit,omitempty" yaml:"cache_hit,omitempty"`

	Err     error                   `json:"-" yaml:"-"`
	Records []models.PropertyRecord `json:"-" yaml:"-"`
}

// ExitCode maps the outcome to the process exit status: 0 complete, 1 partial, 2 failed.
func (r *Report) ExitCode() int {
	switch r.Status {
	case db.RunComplete:
		return 0
	case db.RunPartial:
		return 1
	default:
		return 2
	}
}

type Runner struct {
	cfg       models.ScrapeConfig
	loader    Loader
	fetcher   PageFetcher
	artifacts *artifact_manager.Manager
	store     *db.DB
	logger    *slog.Logger
}

type Option func(*Runner)

func WithLoader(l Loader) Option { return func(r *Runner) { r.loader = l } }

func WithFetcher(f PageFetcher) Option { return func(r *Runner) { r.fetcher = f } }

func WithStore(store *db.DB) Option { return func(r *Runner) { r.store = store } }

func WithLogger(l *slog.Logger) Option { return func(r *Runner) { r.logger = l } }

// New builds a runner for cfg. Without WithLoader a chromedp-backed controller is used;
// without WithFetcher an HTTP fetcher is used.
func New(cfg models.ScrapeConfig, artifacts *artifact_manager.Manager, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, artifacts: artifacts}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	if r.loader == nil && cfg.Mode == models.ModeBrowser {
		r.loader = browser.NewController(browser.ChromeOpener(cfg.Browser, r.logger), browser.OptionsFromConfig(cfg), r.logger)
	}
	if r.fetcher == nil && cfg.Mode == models.ModeStatic {
		r.fetcher = fetcher.NewFetcher(cfg.Browser.UserAgent, cfg.Timing.NavigationTimeout, r.logger)
	}
	return r
}

// Run performs the scrape. A non-nil error means the run failed; the report is still
// returned with whatever was learned. A partial run returns a nil error and a report
// whose Status is partial and whose Err explains why.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	report := &Report{Mode: r.cfg.Mode, Status: db.RunRunning}

	url := r.cfg.URL
	if url == "" {
		built, err := r.cfg.Search.BuildURL()
		if err != nil {
			return r.fail(report, started, fmt.Errorf("failed to build search URL: %w", err))
		}
		url = built
	}
	report.URL = url
	logger := r.logger.With("url", url)

	report.RunID = r.startRun(url)
	if report.RunID > 0 {
		logger = logger.With("run_id", report.RunID)
	}

	snap, err := r.acquire(ctx, url, report, logger)
	if err != nil {
		return r.fail(report, started, err)
	}
	report.SnapshotBytes = snap.Size()
	report.SnapshotHash = snap.Hash()

	if err := r.keepSnapshot(snap, report); err != nil {
		return r.fail(report, started, err)
	}

	extraction, err := extractor.New(r.cfg.Selectors, logger).Extract(snap)
	if err != nil {
		return r.fail(report, started, fmt.Errorf("failed to extract records: %w", err))
	}
	report.Summary = extraction.Summary.Total
	report.CardCount = extraction.CardCount
	report.RecordCount = len(extraction.Records)
	report.Skipped = extraction.Skipped
	report.Records = extraction.Records
	report.TopLocations, report.TopReviews = Highlights(extraction.Records)

	out, err := sink.New(r.cfg.Output.Format, r.cfg.Output.Path, sink.Options{SortBy: r.cfg.Output.SortBy, Dedupe: r.cfg.Output.Dedupe})
	if err != nil {
		return r.fail(report, started, err)
	}
	written, err := out.Append(extraction.Records)
	if err != nil {
		return r.fail(report, started, err)
	}
	report.Written = written
	report.OutputPath = out.Path()
	r.recordArtifact(report.RunID, db.ArtifactSheet, "", out.Path(), 0)
	r.keepRecords(report.RunID, extraction, logger)

	if r.cfg.Output.PageMeta {
		meta, err := pagemeta.Describe(snap)
		if err != nil {
			logger.Debug("Could not describe page", "error", err)
		}
		report.Page = meta
	}

	report.Status = db.RunComplete
	if report.Err != nil || report.Skipped > 0 {
		report.Status = db.RunPartial
	}
	if report.Err != nil {
		report.Error = report.Err.Error()
	}
	report.Elapsed = time.Since(started)
	r.finishRun(report)

	logger.Info("Scrape finished",
		"status", report.Status,
		"summary", report.Summary,
		"records", report.RecordCount,
		"written", report.Written,
		"skipped", report.Skipped,
		"elapsed", report.Elapsed.String(),
	)
	return report, nil
}

// Highlights returns the most common locations and review verdicts among records.
func Highlights(records []models.PropertyRecord) (locations, reviews []string) {
	locations = mapreduce.TopN(mapreduce.Tally(records, models.ColumnIndex("location"), tallyBatch), highlightCount)
	reviews = mapreduce.TopN(mapreduce.Tally(records, models.ColumnIndex("reviewComment"), tallyBatch), highlightCount)
	return locations, reviews
}

// acquire produces the snapshot for url in the configured mode.
func (r *Runner) acquire(ctx context.Context, url string, report *Report, logger *slog.Logger) (*snapshot.Snapshot, error) {
	if r.cfg.Mode == models.ModeStatic {
		if data, found, err := r.artifacts.GetCachedPage(url); err != nil {
			logger.Warn("Failed to read page cache", "error", err)
		} else if found {
			report.CacheHit = true
			logger.Info("Using cached page", "bytes", len(data))
			return snapshot.New(url, string(data), time.Now())
		}

		snap, err := r.fetcher.GetSnapshot(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := r.artifacts.SetCachedPage(url, []byte(snap.HTML())); err != nil {
			logger.Warn("Failed to cache page", "error", err)
		}
		return snap, nil
	}

	res, err := r.loader.Load(ctx, url)
	if err != nil {
		return nil, err
	}
	report.LoadState = res.State.String()
	report.Clicks = res.Clicks
	report.CardCounts = res.CardCounts
	report.Err = res.Err
	return res.Snapshot, nil
}

// keepSnapshot writes the snapshot to the configured path and, for recorded runs,
// to the run's artifact directory.
func (r *Runner) keepSnapshot(snap *snapshot.Snapshot, report *Report) error {
	data := []byte(snap.HTML())
	if path := r.cfg.Output.SnapshotPath; path != "" {
		if err := artifact_manager.WriteFile(path, data); err != nil {
			return &models.RunError{Kind: models.ErrSinkFailure, Path: path, Err: err}
		}
		report.SnapshotPath = path
	}
	if report.RunID == 0 {
		return nil
	}

	path, err := r.artifacts.SetSnapshotByRunID(report.RunID, data)
	if err != nil {
		return &models.RunError{Kind: models.ErrSinkFailure, Path: artifact_manager.GetRunDir(r.artifacts.BaseDir(), report.RunID), Err: err}
	}
	report.RunSnapshotPath = path
	r.recordArtifact(report.RunID, db.ArtifactSnapshot, snap.Hash(), path, int64(len(data)))
	return nil
}

func (r *Runner) keepRecords(runID int64, extraction models.Extraction, logger *slog.Logger) {
	if runID == 0 {
		return
	}
	if err := r.store.InsertProperties(runID, extraction.Records); err != nil {
		logger.Warn("Failed to store records in history", "error", err)
	}

	data, err := yaml.Marshal(extraction)
	if err != nil {
		logger.Warn("Failed to encode records", "error", err)
		return
	}
	path, err := r.artifacts.SetRecordsByRunID(runID, data)
	if err != nil {
		logger.Warn("Failed to write records artifact", "error", err)
		return
	}
	r.recordArtifact(runID, db.ArtifactRecords, artifact_manager.ContentHash(data), path, int64(len(data)))
}

// startRun records the run in history. History is optional: without a store, or when
// the store refuses the insert, the run proceeds unrecorded with ID 0.
func (r *Runner) startRun(url string) int64 {
	if r.store == nil {
		return 0
	}
	urlID, err := r.store.InsertURL(url)
	if err != nil {
		r.logger.Warn("Failed to record URL", "url", url, "error", err)
		return 0
	}
	runID, err := r.store.InsertRun(urlID, r.cfg.Mode)
	if err != nil {
		r.logger.Warn("Failed to record run", "url", url, "error", err)
		return 0
	}
	return runID
}

func (r *Runner) finishRun(report *Report) {
	if report.RunID == 0 {
		return
	}
	out := db.RunOutcome{
		Status:       report.Status,
		LoadState:    report.LoadState,
		Clicks:       report.Clicks,
		SummaryTotal: report.Summary,
		CardCount:    report.CardCount,
		RecordCount:  report.RecordCount,
		SkippedCount: report.Skipped,
		PageTitle:    report.Page.Title,
		PageLanguage: report.Page.Language,
	}
	if report.Err != nil {
		out.ErrorKind = ErrorKind(report.Err)
		out.ErrorMessage = report.Err.Error()
	}
	if err := r.store.FinishRun(report.RunID, out); err != nil {
		r.logger.Warn("Failed to finish run in history", "run_id", report.RunID, "error", err)
	}
}

func (r *Runner) recordArtifact(runID int64, typeName, hash, path string, size int64) {
	if runID == 0 {
		return
	}
	if _, err := r.store.InsertArtifact(runID, typeName, hash, path, size); err != nil {
		r.logger.Warn("Failed to record artifact", "run_id", runID, "type", typeName, "error", err)
	}
}

func (r *Runner) fail(report *Report, started time.Time, err error) (*Report, error) {
	report.Status = db.RunFailed
	report.Err = err
	report.Error = err.Error()
	report.Elapsed = time.Since(started)
	r.finishRun(report)
	r.logger.Error("Scrape failed", "url", report.URL, "kind", ErrorKind(err), "error", err)
	return report, err
}

// ErrorKind names the failure category of err, or "internal" when it has none.
func ErrorKind(err error) string {
	for _, kind := range []error{models.ErrLoadTimeout, models.ErrPaginationFailure, models.ErrTransportFailure, models.ErrSinkFailure} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "interrupted"
	}
	return "internal"
}
