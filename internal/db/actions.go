package db

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/booking-scraper/internal/common"
	dbpkg "github.com/dtnitsch/booking-scraper/pkg/db"
)

var Flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "db",
		Usage:   "Run history database (default: next to the binary)",
		EnvVars: []string{"BOOKING_SCRAPER_DB"},
	},
}

func RunsAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"), c.String("status"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	printRuns(os.Stdout, runs)
	return nil
}

func printRuns(w io.Writer, runs []dbpkg.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return
	}

	fmt.Fprintf(w, "%-6s %-16s %-8s %-9s %-7s %-8s %-8s %s\n",
		"ID", "Started", "Mode", "Status", "Clicks", "Records", "Skipped", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-16s %-8s %-9s %-7d %-8d %-8d %s\n",
			r.RunID,
			humanize.Time(r.StartedAt),
			r.Mode,
			r.Status,
			r.Clicks,
			r.RecordCount,
			r.SkippedCount,
			r.URL,
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'booking-scraper db run <id>' to see details\n")
}

// RunAction shows details for a specific run
func RunAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}

	run, err := database.GetRun(runID)
	if err != nil {
		return err
	}
	artifacts, err := database.ListArtifacts(runID)
	if err != nil {
		return err
	}

	if c.IsSet("format") {
		return common.WriteOutput(os.Stdout, c.String("format"), struct {
			dbpkg.Run `yaml:",inline"`
			Artifacts []dbpkg.ArtifactInfo `json:"artifacts" yaml:"artifacts"`
		}{*run, artifacts})
	}
	printRun(os.Stdout, run, artifacts)
	return nil
}

func printRun(w io.Writer, run *dbpkg.Run, artifacts []dbpkg.ArtifactInfo) {
	fmt.Fprintf(w, "Run %d\n", run.RunID)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "URL:         %s\n", run.URL)
	fmt.Fprintf(w, "Started:     %s (%s)\n", run.StartedAt.Format("2006-01-02 15:04:05"), humanize.Time(run.StartedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Duration:    %s\n", run.FinishedAt.Sub(run.StartedAt))
	}
	fmt.Fprintf(w, "Mode:        %s\n", run.Mode)
	fmt.Fprintf(w, "Status:      %s\n", run.Status)
	if run.LoadState != "" {
		fmt.Fprintf(w, "Load State:  %s after %d clicks\n", run.LoadState, run.Clicks)
	}
	fmt.Fprintf(w, "Summary:     %s\n", run.SummaryTotal)
	fmt.Fprintf(w, "Records:     %d of %d cards (%d skipped)\n", run.RecordCount, run.CardCount, run.SkippedCount)
	if run.PageTitle != "" {
		fmt.Fprintf(w, "Page:        %s [%s]\n", run.PageTitle, run.PageLanguage)
	}
	if run.ErrorKind != "" {
		fmt.Fprintf(w, "Error:       [%s] %s\n", run.ErrorKind, run.ErrorMessage)
	}

	if len(artifacts) > 0 {
		fmt.Fprintf(w, "\nArtifacts (%d):\n", len(artifacts))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for _, a := range artifacts {
			size := "-"
			if a.SizeBytes > 0 {
				size = humanize.Bytes(uint64(a.SizeBytes))
			}
			fmt.Fprintf(w, "  %-9s %-9s %s\n", a.TypeName, size, a.FilePath)
		}
	}

	fmt.Fprintf(w, "\nTip: Use 'booking-scraper db records %d' to print the records\n", run.RunID)
}

// RecordsAction prints the records a run extracted, in document order.
func RecordsAction(c *cli.Context) error {
	database, err := dbpkg.Open(c.String("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}
	records, err := database.GetRunProperties(runID)
	if err != nil {
		return err
	}

	fmt.Printf("# Run: %d\n", runID)
	return common.WriteOutput(os.Stdout, c.String("format"), records)
}
