package help

const ColdstartYAML = `# booking-scraper Quick Start

modes:
  browser: "Headless Chrome, clicks 'Load more results' until it is gone (default)"
  static: "Plain HTTP fetch, first page of results only"

outputs:
  spreadsheet: "output/properties.xlsx (--output, --output-format xlsx|csv), rows appended"
  snapshot: "output/snapshot.html (--snapshot), overwritten each run"
  run_artifacts: "scrape-results/{run_id}/snapshot.html and records.yaml"
  history: "booking-scraper.db next to the binary (--db)"

commands:
  search: |
    booking-scraper scrape --destination Paris --checkin 2025-06-01 --checkout 2025-06-04

  from_url: |
    booking-scraper scrape --url "https://www.booking.com/searchresults.html?ss=Paris"

  quick_sample: |
    booking-scraper scrape --destination Paris --max-clicks 2 --output-format csv --output paris.csv

  static_mode: |
    booking-scraper scrape --mode static --url "..." --cache-max-age 1h

  replay_snapshot: |
    booking-scraper replay output/snapshot.html
    booking-scraper replay --run 5 --records --format json

  list_runs: |
    booking-scraper db runs
    booking-scraper db runs --status partial

  run_details: |
    booking-scraper db run 5
    booking-scraper db records 5

exit_codes:
  0: "All pages loaded and every card extracted"
  1: "Partial: pagination stopped early or some cards were skipped; records kept"
  2: "Failed: navigation, readiness timeout or spreadsheet write; nothing appended"

config_file: |
  # --config scrape.yaml; flags override file values
  mode: browser
  timing:
    ready_timeout: 40s
    settle_interval: 10s
    max_clicks: 0
  output:
    path: output/properties.xlsx
    sort_by: reviewScore
    dedupe: true
  selectors:
    load_more: {tag: button, text: "Load more results"}
`
