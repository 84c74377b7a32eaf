// Package models defines data structures for configuration and extraction results.
package models

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Scrape modes.
const (
	ModeBrowser = "browser" // drive a headless browser through the load-more cycle
	ModeStatic  = "static"  // single HTTP GET, no pagination
)

// Output formats for the record sink.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// Query is a structural marker for locating nodes: a tag name, attribute
// equality, and class-set membership. All parts are optional and combine with AND.
// Text is only honoured by the live browser session when locating interactive controls.
type Query struct {
	Tag     string            `yaml:"tag,omitempty"`
	Attrs   map[string]string `yaml:"attrs,omitempty"`
	Classes []string          `yaml:"classes,omitempty"`
	Text    string            `yaml:"text,omitempty"`
}

// Selector renders the query as a CSS selector.
func (q Query) Selector() string {
	var b strings.Builder
	if q.Tag != "" {
		b.WriteString(q.Tag)
	}
	for _, c := range q.Classes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		b.WriteString(".")
		b.WriteString(c)
	}
	keys := make([]string, 0, len(q.Attrs))
	for k := range q.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, `[%s="%s"]`, k, cssEscape(q.Attrs[k]))
	}
	if b.Len() == 0 {
		return "*"
	}
	return b.String()
}

func (q Query) String() string {
	if q.Text != "" {
		return fmt.Sprintf("%s:text(%q)", q.Selector(), q.Text)
	}
	return q.Selector()
}

func cssEscape(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `"`, `\"`)
}

// ByAttr is shorthand for a tag with a single attribute-equality marker.
func ByAttr(tag, attr, value string) Query {
	return Query{Tag: tag, Attrs: map[string]string{attr: value}}
}

// ByClass is shorthand for a tag carrying every listed class.
func ByClass(tag string, classes ...string) Query {
	return Query{Tag: tag, Classes: classes}
}

// SelectorSet holds every structural marker the scraper depends on.
// Markers are an external contract with the site and are assumed stable for one run.
type SelectorSet struct {
	Heading        Query `yaml:"heading"`
	Card           Query `yaml:"card"`
	Title          Query `yaml:"title"`
	ImageContainer Query `yaml:"image_container"`
	Image          Query `yaml:"image"`
	Link           Query `yaml:"link"`
	StarRating     Query `yaml:"star_rating"`
	MapContainer   Query `yaml:"map_container"`
	MapAnchor      Query `yaml:"map_anchor"`
	Location       Query `yaml:"location"`
	Review         Query `yaml:"review"`
	ReviewScore    Query `yaml:"review_score"`
	ReviewComment  Query `yaml:"review_comment"`
	ReviewCount    Query `yaml:"review_count"`
	LoadMore       Query `yaml:"load_more"`
}

// DefaultSelectors returns the markers for the booking.com search results page.
func DefaultSelectors() SelectorSet {
	return SelectorSet{
		Heading:        ByClass("h1", "f6431b446c", "d5f78961c3"),
		Card:           ByAttr("div", "data-testid", "property-card"),
		Title:          ByAttr("div", "data-testid", "title"),
		ImageContainer: ByClass("div", "a5922b8ca1"),
		Image:          Query{Tag: "img"},
		Link:           Query{Tag: "a"},
		StarRating:     ByClass("div", "b3f3c831be"),
		MapContainer:   ByClass("div", "abf093bdfe", "ecc6a9ed89"),
		MapAnchor:      Query{Tag: "a"},
		Location:       ByAttr("span", "data-testid", "address"),
		Review:         ByAttr("div", "data-testid", "review-score"),
		ReviewScore:    ByClass("div", "ac4a7896c7"),
		ReviewComment:  ByClass("div", "a3b8729ab1", "e6208ee469", "cb2cbb3ccb"),
		ReviewCount:    ByClass("div", "abf093bdfe", "f45d8e4c32", "d935416c47"),
		LoadMore:       Query{Tag: "button", Text: "Load more results"},
	}
}

// TimingConfig bounds every wait the load controller performs.
type TimingConfig struct {
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ReadyTimeout      time.Duration `yaml:"ready_timeout"`
	SettleInterval    time.Duration `yaml:"settle_interval"`
	ActionTimeout     time.Duration `yaml:"action_timeout"`
	CaptureTimeout    time.Duration `yaml:"capture_timeout"`
	MaxClicks         int           `yaml:"max_clicks"` // 0 = until the trigger disappears
}

// BrowserConfig configures the headless browser process.
type BrowserConfig struct {
	Headless     bool   `yaml:"headless"`
	UserAgent    string `yaml:"user_agent"`
	WindowWidth  int    `yaml:"window_width"`
	WindowHeight int    `yaml:"window_height"`
	ExecPath     string `yaml:"exec_path,omitempty"`
}

// OutputConfig says where the snapshot artifact and records go.
// CacheMaxAge reuses a static-mode page fetched within that window; 0 disables the cache.
// PageMeta adds the readability title and detected language to the run report.
type OutputConfig struct {
	Path         string        `yaml:"path"`
	Format       string        `yaml:"format"`
	SnapshotPath string        `yaml:"snapshot_path"`
	ArtifactDir  string        `yaml:"artifact_dir"`
	SortBy       string        `yaml:"sort_by,omitempty"`
	Dedupe       bool          `yaml:"dedupe,omitempty"`
	CacheMaxAge  time.Duration `yaml:"cache_max_age,omitempty"`
	PageMeta     bool          `yaml:"page_meta"`
}

// ScrapeConfig holds runtime configuration for one scrape.
// Values come from an optional YAML file, then CLI flags override them.
type ScrapeConfig struct {
	Mode         string        `yaml:"mode"`
	URL          string        `yaml:"url,omitempty"`
	Search       SearchParams  `yaml:"search"`
	Output       OutputConfig  `yaml:"output"`
	Timing       TimingConfig  `yaml:"timing"`
	Browser      BrowserConfig `yaml:"browser"`
	Selectors    SelectorSet   `yaml:"selectors"`
	DatabasePath string        `yaml:"database_path,omitempty"`
}

const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultScrapeConfig returns a config populated with the stock timings and markers.
func DefaultScrapeConfig() ScrapeConfig {
	return ScrapeConfig{
		Mode: ModeBrowser,
		Search: SearchParams{
			BaseURL: DefaultSearchBaseURL,
			Adults:  2,
			Rooms:   1,
		},
		Output: OutputConfig{
			Path:         filepath.Join("output", "properties.xlsx"),
			Format:       FormatXLSX,
			SnapshotPath: filepath.Join("output", "snapshot.html"),
			ArtifactDir:  "scrape-results",
			PageMeta:     true,
		},
		Timing: TimingConfig{
			NavigationTimeout: 60 * time.Second,
			ReadyTimeout:      40 * time.Second,
			SettleInterval:    10 * time.Second,
			ActionTimeout:     15 * time.Second,
			CaptureTimeout:    15 * time.Second,
		},
		Browser: BrowserConfig{
			Headless:     true,
			UserAgent:    DefaultUserAgent,
			WindowWidth:  1440,
			WindowHeight: 900,
		},
		Selectors: DefaultSelectors(),
	}
}

// LoadScrapeConfig reads a YAML file over the defaults. Keys absent from the file keep
// their default values.
func LoadScrapeConfig(path string) (ScrapeConfig, error) {
	cfg := DefaultScrapeConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the combination of values a run depends on.
func (c ScrapeConfig) Validate() error {
	switch c.Mode {
	case ModeBrowser, ModeStatic:
	default:
		return fmt.Errorf("unknown mode %q (want %s or %s)", c.Mode, ModeBrowser, ModeStatic)
	}
	switch c.Output.Format {
	case FormatXLSX, FormatCSV:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", c.Output.Format, FormatXLSX, FormatCSV)
	}
	if c.Output.Path == "" {
		return fmt.Errorf("output path is required")
	}
	if c.Mode == ModeBrowser {
		if c.Timing.ReadyTimeout <= 0 {
			return fmt.Errorf("ready timeout must be positive")
		}
		if c.Timing.SettleInterval < 0 {
			return fmt.Errorf("settle interval must not be negative")
		}
	}
	if c.Output.SortBy != "" && ColumnIndex(c.Output.SortBy) < 0 {
		return fmt.Errorf("unknown sort column %q", c.Output.SortBy)
	}
	return nil
}

// ColumnIndex returns the position of name in PropertyColumns, or -1.
func ColumnIndex(name string) int {
	for i, c := range PropertyColumns {
		if strings.EqualFold(c, name) {
			return i
		}
	}
	return -1
}
