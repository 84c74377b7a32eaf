package scrape

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/booking-scraper/internal/common"
	"github.com/dtnitsch/booking-scraper/models"
	"github.com/dtnitsch/booking-scraper/pkg/artifact_manager"
	"github.com/dtnitsch/booking-scraper/pkg/db"
	"github.com/dtnitsch/booking-scraper/pkg/pipeline"
)

const dateLayout = "2006-01-02"

func ScrapeAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := models.LoadScrapeConfig(c.String("config"))
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return cli.Exit("", 2)
	}
	if err := ApplyFlags(c, &cfg); err != nil {
		logger.Error("invalid flags", "error", err)
		return cli.Exit("", 2)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return cli.Exit("", 2)
	}
	if cfg.URL == "" && cfg.Search.Destination == "" {
		fmt.Fprintln(os.Stderr, "Error: No search given")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, `  booking-scraper scrape --url "https://www.booking.com/searchresults.html?ss=Paris"`)
		fmt.Fprintln(os.Stderr, `  booking-scraper scrape --destination Paris --checkin 2025-06-01 --checkout 2025-06-04`)
		return cli.Exit("", 2)
	}

	artifacts, err := artifact_manager.NewManager(cfg.Output.ArtifactDir, cfg.Output.CacheMaxAge)
	if err != nil {
		logger.Error("failed to initialize artifact manager", "error", err)
		return cli.Exit("", 2)
	}

	opts := []pipeline.Option{pipeline.WithLogger(logger)}
	if !c.Bool("no-db") {
		database, err := db.Open(cfg.DatabasePath)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			return cli.Exit("", 2)
		}
		defer database.Close()
		opts = append(opts, pipeline.WithStore(database))
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, runErr := pipeline.New(cfg, artifacts, opts...).Run(ctx)

	if err := common.WriteOutput(os.Stdout, c.String("format"), common.FilterResultFields(report, c.String("fields"))); err != nil {
		logger.Error("failed to write report", "error", err)
		return cli.Exit("", 2)
	}
	if !c.Bool("quiet") {
		printSummary(report)
	}
	if runErr != nil {
		return cli.Exit("", 2)
	}
	if code := report.ExitCode(); code != 0 {
		return cli.Exit("", code)
	}
	return nil
}

// ApplyFlags overrides cfg with every flag the user set on the command line or through
// the environment. Unset flags leave the file or default value in place.
func ApplyFlags(c *cli.Context, cfg *models.ScrapeConfig) error {
	if c.IsSet("url") {
		u, err := common.ValidateURL(c.String("url"))
		if err != nil {
			return err
		}
		cfg.URL = u
	}
	if c.IsSet("destination") {
		cfg.Search.Destination = c.String("destination")
	}
	for _, d := range []struct {
		flag string
		dst  *time.Time
	}{
		{"checkin", &cfg.Search.CheckIn},
		{"checkout", &cfg.Search.CheckOut},
	} {
		if !c.IsSet(d.flag) {
			continue
		}
		t, err := time.Parse(dateLayout, c.String(d.flag))
		if err != nil {
			return fmt.Errorf("--%s must look like %s: %w", d.flag, dateLayout, err)
		}
		*d.dst = t
	}
	setInt(c, "adults", &cfg.Search.Adults)
	setInt(c, "rooms", &cfg.Search.Rooms)
	setInt(c, "children", &cfg.Search.Children)

	setString(c, "mode", &cfg.Mode)
	setString(c, "output", &cfg.Output.Path)
	setString(c, "output-format", &cfg.Output.Format)
	setString(c, "snapshot", &cfg.Output.SnapshotPath)
	setString(c, "artifact-dir", &cfg.Output.ArtifactDir)
	setString(c, "sort-by", &cfg.Output.SortBy)
	setString(c, "db", &cfg.DatabasePath)
	setString(c, "chrome-path", &cfg.Browser.ExecPath)
	setString(c, "user-agent", &cfg.Browser.UserAgent)
	if c.IsSet("dedupe") {
		cfg.Output.Dedupe = c.Bool("dedupe")
	}
	if c.IsSet("page-meta") {
		cfg.Output.PageMeta = c.Bool("page-meta")
	}
	if c.IsSet("headless") {
		cfg.Browser.Headless = c.Bool("headless")
	}

	setInt(c, "max-clicks", &cfg.Timing.MaxClicks)
	setDuration(c, "nav-timeout", &cfg.Timing.NavigationTimeout)
	setDuration(c, "ready-timeout", &cfg.Timing.ReadyTimeout)
	setDuration(c, "settle", &cfg.Timing.SettleInterval)
	setDuration(c, "action-timeout", &cfg.Timing.ActionTimeout)
	setDuration(c, "capture-timeout", &cfg.Timing.CaptureTimeout)
	setDuration(c, "cache-max-age", &cfg.Output.CacheMaxAge)
	return nil
}

func setString(c *cli.Context, name string, dst *string) {
	if c.IsSet(name) {
		*dst = c.String(name)
	}
}

func setInt(c *cli.Context, name string, dst *int) {
	if c.IsSet(name) {
		*dst = c.Int(name)
	}
}

func setDuration(c *cli.Context, name string, dst *time.Duration) {
	if c.IsSet(name) {
		*dst = c.Duration(name)
	}
}

func printSummary(r *pipeline.Report) {
	if r == nil {
		return
	}
	if r.Status == db.RunFailed {
		fmt.Fprintf(os.Stderr, "\nScrape failed after %s: %s\n", r.Elapsed.Round(time.Millisecond), r.Error)
		if r.URL != "" {
			fmt.Fprintf(os.Stderr, "Retry with: booking-scraper scrape --url %q\n", r.URL)
		}
		return
	}

	fmt.Fprintf(os.Stderr, "\n%s: %s records written to %s (%s skipped)\n",
		r.Status, humanize.Comma(int64(r.Written)), r.OutputPath, humanize.Comma(int64(r.Skipped)))
	fmt.Fprintf(os.Stderr, "Site reports: %s\n", r.Summary)
	fmt.Fprintf(os.Stderr, "Snapshot: %s (%s)\n", r.SnapshotPath, humanize.Bytes(uint64(r.SnapshotBytes)))
	if len(r.TopLocations) > 0 {
		fmt.Fprintf(os.Stderr, "Most listed areas: %s\n", strings.Join(r.TopLocations, ", "))
	}
	if r.Clicks > 0 {
		fmt.Fprintf(os.Stderr, "Loaded %s more pages in %s\n", humanize.Comma(int64(r.Clicks)), r.Elapsed.Round(time.Second))
	}
	if r.RunID > 0 {
		fmt.Fprintf(os.Stderr, "\nTip: Use 'booking-scraper db run %d' to see details\n", r.RunID)
	}
}
