package replay

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/booking-scraper/internal/common"
	"github.com/dtnitsch/booking-scraper/models"
	"github.com/dtnitsch/booking-scraper/pkg/artifact_manager"
	"github.com/dtnitsch/booking-scraper/pkg/db"
	"github.com/dtnitsch/booking-scraper/pkg/extractor"
	"github.com/dtnitsch/booking-scraper/pkg/pagemeta"
	"github.com/dtnitsch/booking-scraper/pkg/pipeline"
	"github.com/dtnitsch/booking-scraper/pkg/sink"
	"github.com/dtnitsch/booking-scraper/pkg/snapshot"
)

var Flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML file with selectors",
		EnvVars: []string{"BOOKING_SCRAPER_CONFIG"},
	},
	&cli.Int64Flag{
		Name:  "run",
		Usage: "Replay the snapshot kept for this run ID instead of a file",
	},
	&cli.StringFlag{
		Name:  "artifact-dir",
		Value: artifact_manager.DefaultBaseDir,
		Usage: "Directory holding per-run artifacts",
	},
	&cli.StringFlag{
		Name:  "db",
		Usage: "Run history database (default: next to the binary)",
	},
	&cli.StringFlag{
		Name:  "url",
		Usage: "URL the snapshot was taken from, for the report",
	},
	&cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Also append the records to this spreadsheet",
	},
	&cli.StringFlag{
		Name:  "output-format",
		Value: models.FormatXLSX,
		Usage: "Spreadsheet format: xlsx or csv",
	},
	&cli.BoolFlag{
		Name:  "records",
		Usage: "Include every record in the report",
	},
	&cli.BoolFlag{
		Name:  "page-meta",
		Usage: "Add page title and detected language to the report",
	},
	&cli.StringFlag{
		Name:  "format",
		Value: "yaml",
		Usage: "Report format: yaml or json",
	},
}

// Report is the outcome of extracting a saved snapshot.
type Report struct {
	Source       string                  `json:"source" yaml:"source"`
	URL          string                  `json:"url,omitempty" yaml:"url,omitempty"`
	TakenAt      time.Time               `json:"taken_at" yaml:"taken_at"`
	Size         string                  `json:"size" yaml:"size"`
	Summary      string                  `json:"summary" yaml:"summary"`
	CardCount    int                     `json:"card_count" yaml:"card_count"`
	RecordCount  int                     `json:"record_count" yaml:"record_count"`
	Skipped      int                     `json:"skipped" yaml:"skipped"`
	TopLocations []string                `json:"top_locations,omitempty" yaml:"top_locations,omitempty"`
	TopReviews   []string                `json:"top_reviews,omitempty" yaml:"top_reviews,omitempty"`
	Written      int                     `json:"written,omitempty" yaml:"written,omitempty"`
	OutputPath   string                  `json:"output_path,omitempty" yaml:"output_path,omitempty"`
	Page         *pagemeta.Meta          `json:"page,omitempty" yaml:"page,omitempty"`
	Records      []models.PropertyRecord `json:"records,omitempty" yaml:"records,omitempty"`
}

// ReplayAction re-runs extraction over a snapshot written by an earlier scrape.
// No browser or network is involved.
func ReplayAction(c *cli.Context) error {
	logger := common.NewLogger(c)

	cfg, err := models.LoadScrapeConfig(c.String("config"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to load config: %v", err), 2)
	}

	snap, source, err := loadSnapshot(c)
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}

	extraction, err := extractor.New(cfg.Selectors, logger).Extract(snap)
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to extract records: %v", err), 2)
	}

	report := Report{
		Source:      source,
		URL:         snap.URL(),
		TakenAt:     snap.TakenAt(),
		Size:        humanize.Bytes(uint64(snap.Size())),
		Summary:     extraction.Summary.Total,
		CardCount:   extraction.CardCount,
		RecordCount: len(extraction.Records),
		Skipped:     extraction.Skipped,
	}
	report.TopLocations, report.TopReviews = pipeline.Highlights(extraction.Records)
	if c.Bool("records") {
		report.Records = extraction.Records
	}
	if c.Bool("page-meta") {
		meta, err := pagemeta.Describe(snap)
		if err != nil {
			logger.Debug("Could not describe page", "error", err)
		}
		report.Page = &meta
	}

	if path := c.String("output"); path != "" {
		out, err := sink.New(c.String("output-format"), path, sink.Options{SortBy: cfg.Output.SortBy, Dedupe: cfg.Output.Dedupe})
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		written, err := out.Append(extraction.Records)
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		report.Written = written
		report.OutputPath = out.Path()
	}

	if err := common.WriteOutput(os.Stdout, c.String("format"), report); err != nil {
		return cli.Exit(err.Error(), 2)
	}
	if extraction.Skipped > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

// loadSnapshot reads the snapshot named by the first argument, or the one kept for --run.
func loadSnapshot(c *cli.Context) (*snapshot.Snapshot, string, error) {
	if c.IsSet("run") {
		return loadRunSnapshot(c, c.Int64("run"))
	}
	if c.NArg() == 0 {
		return nil, "", fmt.Errorf("give a snapshot file or --run <id>")
	}

	path := c.Args().First()
	if runID, err := strconv.ParseInt(path, 10, 64); err == nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return loadRunSnapshot(c, runID)
		}
	}
	snap, err := snapshot.Load(path, c.String("url"))
	if err != nil {
		return nil, "", err
	}
	return snap, path, nil
}

func loadRunSnapshot(c *cli.Context, runID int64) (*snapshot.Snapshot, string, error) {
	url := c.String("url")
	path := artifact_manager.GetRunArtifactPath(c.String("artifact-dir"), runID, artifact_manager.SnapshotFile)

	database, err := db.Open(c.String("db"))
	if err == nil {
		defer database.Close()
		if run, err := database.GetRun(runID); err == nil && url == "" {
			url = run.URL
		}
		if stored, err := database.GetArtifactPath(runID, db.ArtifactSnapshot); err == nil {
			path = stored
		}
	}

	snap, err := snapshot.Load(path, url)
	if err != nil {
		return nil, "", fmt.Errorf("no snapshot for run %d: %w", runID, err)
	}
	return snap, path, nil
}
