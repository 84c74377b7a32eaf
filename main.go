package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/booking-scraper/internal/db"
	"github.com/dtnitsch/booking-scraper/internal/replay"
	"github.com/dtnitsch/booking-scraper/internal/scrape"
	"github.com/dtnitsch/booking-scraper/pkg/help"
)

var version = "dev"

func main() {
	// A missing .env is fine; flags and the real environment still apply.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	app := &cli.App{
		Name:    "booking-scraper",
		Usage:   "Load every page of a booking.com search and export the listed properties",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
				EnvVars: []string{"BOOKING_SCRAPER_QUIET"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log every load state transition and browser message",
				EnvVars: []string{"BOOKING_SCRAPER_VERBOSE"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "scrape",
				Usage:  "Scrape one search results page",
				Flags:  scrape.Flags,
				Action: scrape.ScrapeAction,
			},
			{
				Name:      "replay",
				Usage:     "Extract records again from a saved snapshot, without a browser",
				ArgsUsage: "[snapshot.html | run-id]",
				Flags:     replay.Flags,
				Action:    replay.ReplayAction,
			},
			{
				Name:  "db",
				Usage: "Inspect run history",
				Subcommands: []*cli.Command{
					{
						Name:  "runs",
						Usage: "List recent runs",
						Flags: append([]cli.Flag{
							&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "How many runs to show"},
							&cli.StringFlag{Name: "status", Usage: "Only runs with this status (complete, partial, failed, running)"},
						}, db.Flags...),
						Action: db.RunsAction,
					},
					{
						Name:      "run",
						Usage:     "Show one run (latest if no ID)",
						ArgsUsage: "[run-id]",
						Flags: append([]cli.Flag{
							&cli.StringFlag{Name: "format", Usage: "Print as yaml or json instead of text"},
						}, db.Flags...),
						Action: db.RunAction,
					},
					{
						Name:      "records",
						Usage:     "Print the records a run extracted (latest if no ID)",
						ArgsUsage: "[run-id]",
						Flags: append([]cli.Flag{
							&cli.StringFlag{Name: "format", Value: "yaml", Usage: "yaml or json"},
						}, db.Flags...),
						Action: db.RecordsAction,
					},
				},
			},
			{
				Name:  "coldstart",
				Usage: "Print a quick start guide",
				Action: func(c *cli.Context) error {
					fmt.Print(help.ColdstartYAML)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
