package models

// PropertyColumns is the header row every record sink writes, in record field order.
var PropertyColumns = []string{
	"title",
	"imageLink",
	"urlLink",
	"starRating",
	"location",
	"mapLink",
	"reviewScore",
	"reviewComment",
	"reviewCount",
}

// UnknownTotal is reported when the results heading is missing from a snapshot.
const UnknownTotal = "Unknown"

// PropertyRecord is one listed item from a search results page.
// Every field may be empty; an empty field means the sub-node was not present.
type PropertyRecord struct {
	Title         string `json:"title" yaml:"title"`
	ImageLink     string `json:"image_link" yaml:"image_link"`
	URLLink       string `json:"url_link" yaml:"url_link"`
	StarRating    string `json:"star_rating" yaml:"star_rating"`
	Location      string `json:"location" yaml:"location"`
	MapLink       string `json:"map_link" yaml:"map_link"`
	ReviewScore   string `json:"review_score" yaml:"review_score"`
	ReviewComment string `json:"review_comment" yaml:"review_comment"`
	ReviewCount   string `json:"review_count" yaml:"review_count"`
}

// Row returns the record's fields in PropertyColumns order.
func (r PropertyRecord) Row() []string {
	return []string{
		r.Title,
		r.ImageLink,
		r.URLLink,
		r.StarRating,
		r.Location,
		r.MapLink,
		r.ReviewScore,
		r.ReviewComment,
		r.ReviewCount,
	}
}

// PropertyFromRow is the inverse of Row. Missing trailing cells are left empty.
func PropertyFromRow(row []string) PropertyRecord {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	return PropertyRecord{
		Title:         cell(0),
		ImageLink:     cell(1),
		URLLink:       cell(2),
		StarRating:    cell(3),
		Location:      cell(4),
		MapLink:       cell(5),
		ReviewScore:   cell(6),
		ReviewComment: cell(7),
		ReviewCount:   cell(8),
	}
}

// IsEmpty reports whether no field was populated.
func (r PropertyRecord) IsEmpty() bool {
	for _, v := range r.Row() {
		if v != "" {
			return false
		}
	}
	return true
}

// Summary is the site's own total-count heading. It is reported verbatim and can
// disagree with the number of records actually extracted.
type Summary struct {
	Total string `json:"total" yaml:"total"`
}

// Known reports whether the heading was found.
func (s Summary) Known() bool {
	return s.Total != "" && s.Total != UnknownTotal
}

// Extraction is the output of one pass of the extraction engine over a snapshot.
type Extraction struct {
	Summary   Summary          `json:"summary" yaml:"summary"`
	Records   []PropertyRecord `json:"records" yaml:"records"`
	CardCount int              `json:"card_count" yaml:"card_count"`
	Skipped   int              `json:"skipped" yaml:"skipped"`
}
