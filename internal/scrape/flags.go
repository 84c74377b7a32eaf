package scrape

import (
	"github.com/urfave/cli/v2"
)

const envPrefix = "BOOKING_SCRAPER_"

func env(name string) []string {
	return []string{envPrefix + name}
}

// Flags are the scrape command's options. Every flag left unset keeps the value from
// --config or the built-in default.
var Flags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML file with selectors, timings and output settings",
		EnvVars: env("CONFIG"),
	},
	&cli.StringFlag{
		Name:    "url",
		Aliases: []string{"u"},
		Usage:   "Search results URL to scrape (overrides the search flags)",
	},
	&cli.StringFlag{
		Name:    "destination",
		Aliases: []string{"d"},
		Usage:   "City, region or property name to search for",
	},
	&cli.StringFlag{
		Name:  "checkin",
		Usage: "Check-in date (YYYY-MM-DD)",
	},
	&cli.StringFlag{
		Name:  "checkout",
		Usage: "Check-out date (YYYY-MM-DD)",
	},
	&cli.IntFlag{
		Name:  "adults",
		Value: 2,
		Usage: "Number of adults",
	},
	&cli.IntFlag{
		Name:  "rooms",
		Value: 1,
		Usage: "Number of rooms",
	},
	&cli.IntFlag{
		Name:  "children",
		Usage: "Number of children",
	},
	&cli.StringFlag{
		Name:    "mode",
		Value:   "browser",
		Usage:   "browser (headless Chrome, loads every page) or static (plain HTTP, first page only)",
		EnvVars: env("MODE"),
	},
	&cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   "output/properties.xlsx",
		Usage:   "Spreadsheet the records are appended to",
		EnvVars: env("OUTPUT"),
	},
	&cli.StringFlag{
		Name:  "output-format",
		Value: "xlsx",
		Usage: "Spreadsheet format: xlsx or csv",
	},
	&cli.StringFlag{
		Name:    "snapshot",
		Value:   "output/snapshot.html",
		Usage:   "Where the final page markup is written (overwritten each run)",
		EnvVars: env("SNAPSHOT"),
	},
	&cli.StringFlag{
		Name:    "artifact-dir",
		Value:   "scrape-results",
		Usage:   "Directory for per-run artifacts and the page cache",
		EnvVars: env("ARTIFACT_DIR"),
	},
	&cli.StringFlag{
		Name:  "sort-by",
		Usage: "Sort each batch by a column (e.g. title, reviewScore) before appending",
	},
	&cli.BoolFlag{
		Name:  "dedupe",
		Usage: "Skip records already present in the spreadsheet",
	},
	&cli.BoolFlag{
		Name:  "page-meta",
		Value: true,
		Usage: "Add page title and detected language to the report",
	},
	&cli.IntFlag{
		Name:    "max-clicks",
		Usage:   "Stop after this many 'load more' clicks (0 = until the button is gone)",
		EnvVars: env("MAX_CLICKS"),
	},
	&cli.DurationFlag{
		Name:  "nav-timeout",
		Usage: "Bound on the initial navigation",
	},
	&cli.DurationFlag{
		Name:    "ready-timeout",
		Usage:   "Bound on the wait for the 'load more' button to first become clickable",
		EnvVars: env("READY_TIMEOUT"),
	},
	&cli.DurationFlag{
		Name:    "settle",
		Usage:   "Pause after each click for new results to render",
		EnvVars: env("SETTLE"),
	},
	&cli.DurationFlag{
		Name:  "action-timeout",
		Usage: "Bound on each single browser interaction",
	},
	&cli.DurationFlag{
		Name:  "capture-timeout",
		Usage: "Bound on reading the final page markup",
	},
	&cli.DurationFlag{
		Name:  "cache-max-age",
		Usage: "Reuse a page fetched in static mode within this window (0 = always fetch)",
	},
	&cli.BoolFlag{
		Name:  "headless",
		Value: true,
		Usage: "Run Chrome without a window",
	},
	&cli.StringFlag{
		Name:    "chrome-path",
		Usage:   "Chrome or Chromium executable (default: search PATH)",
		EnvVars: env("CHROME_PATH"),
	},
	&cli.StringFlag{
		Name:    "user-agent",
		Usage:   "User-Agent for the browser and HTTP fetcher",
		EnvVars: env("USER_AGENT"),
	},
	&cli.StringFlag{
		Name:    "db",
		Usage:   "Run history database (default: next to the binary)",
		EnvVars: env("DB"),
	},
	&cli.BoolFlag{
		Name:  "no-db",
		Usage: "Do not record the run in history",
	},
	&cli.StringFlag{
		Name:  "format",
		Value: "yaml",
		Usage: "Report format: yaml or json",
	},
	&cli.StringFlag{
		Name:  "fields",
		Usage: "Comma separated report fields to print (e.g. status,written,summary)",
	},
}
