package extractor

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dtnitsch/booking-scraper/models"
	"github.com/dtnitsch/booking-scraper/pkg/snapshot"
)

const heading = `<h1 class="f6431b446c d5f78961c3">Paris: 1,204 properties found</h1>`

func fullCard(name string) string {
	return fmt.Sprintf(`<div data-testid="property-card">
  <div class="a5922b8ca1">
    <a href="https://example.com/hotel/%[1]s.html"><img src="https://img.example.com/%[1]s.jpg"></a>
  </div>
  <div data-testid="title">%[1]s</div>
  <div class="b3f3c831be" aria-label="4 out of 5 stars"></div>
  <div class="abf093bdfe ecc6a9ed89">
    <a href="https://example.com/map/%[1]s"><span data-testid="address">Paris 1st arr.</span></a>
  </div>
  <div data-testid="review-score">
    <div class="ac4a7896c7">Scored 8.4</div>
    <div class="a3b8729ab1 e6208ee469 cb2cbb3ccb">Very good</div>
    <div class="abf093bdfe f45d8e4c32 d935416c47">1,024 reviews</div>
  </div>
</div>`, name)
}

func page(parts ...string) string {
	return "<html><body>" + strings.Join(parts, "\n") + "</body></html>"
}

func extract(t *testing.T, html string) models.Extraction {
	t.Helper()
	snap, err := snapshot.New("https://example.com/search", html, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("snapshot.New() error = %v", err)
	}
	out, err := New(models.DefaultSelectors(), nil).Extract(snap)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	return out
}

func TestExtractFullCard(t *testing.T) {
	out := extract(t, page(heading, fullCard("Alpha")))

	if out.Summary.Total != "Paris: 1,204 properties found" {
		t.Errorf("Summary.Total = %q", out.Summary.Total)
	}
	if len(out.Records) != 1 {
		t.Fatalf("len(Records) = %d, want 1", len(out.Records))
	}

	want := models.PropertyRecord{
		Title:         "Alpha",
		ImageLink:     "https://img.example.com/Alpha.jpg",
		URLLink:       "https://example.com/hotel/Alpha.html",
		StarRating:    "4 out of 5 stars",
		Location:      "Paris 1st arr.",
		MapLink:       "https://example.com/map/Alpha",
		ReviewScore:   "8.4",
		ReviewComment: "Very good",
		ReviewCount:   "1,024 reviews",
	}
	if got := out.Records[0]; got != want {
		t.Errorf("record = %+v\nwant %+v", got, want)
	}
}

func TestExtractZeroCards(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		wantTotal string
	}{
		{"heading present", page(heading), "Paris: 1,204 properties found"},
		{"heading absent", page("<p>nothing here</p>"), models.UnknownTotal},
		{"empty document", "", models.UnknownTotal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := extract(t, tt.html)
			if out.Records == nil || len(out.Records) != 0 {
				t.Errorf("Records = %v, want empty non-nil slice", out.Records)
			}
			if out.Summary.Total != tt.wantTotal {
				t.Errorf("Summary.Total = %q, want %q", out.Summary.Total, tt.wantTotal)
			}
			if out.CardCount != 0 || out.Skipped != 0 {
				t.Errorf("CardCount/Skipped = %d/%d, want 0/0", out.CardCount, out.Skipped)
			}
		})
	}
}

func TestExtractMissingOptionalNodes(t *testing.T) {
	noReview := `<div data-testid="property-card">
  <div class="a5922b8ca1"><a href="/h/b"><img src="/i/b.jpg"></a></div>
  <div data-testid="title">Bravo</div>
</div>`
	emptyCard := `<div data-testid="property-card"></div>`
	mapWithoutLocation := `<div data-testid="property-card">
  <div data-testid="title">Charlie</div>
  <div class="abf093bdfe ecc6a9ed89"><a href="/map/c">Show on map</a></div>
  <div data-testid="review-score"><div class="ac4a7896c7">Wonderful</div></div>
</div>`

	out := extract(t, page(noReview, emptyCard, mapWithoutLocation))
	if len(out.Records) != 3 {
		t.Fatalf("len(Records) = %d, want 3", len(out.Records))
	}

	b := out.Records[0]
	if b.Title != "Bravo" || b.URLLink != "/h/b" || b.ImageLink != "/i/b.jpg" {
		t.Errorf("populated fields lost: %+v", b)
	}
	if b.StarRating != "" || b.MapLink != "" || b.Location != "" || b.ReviewScore != "" || b.ReviewComment != "" || b.ReviewCount != "" {
		t.Errorf("missing sub-nodes should yield empty fields: %+v", b)
	}

	if !out.Records[1].IsEmpty() {
		t.Errorf("empty card should still emit an empty record, got %+v", out.Records[1])
	}

	c := out.Records[2]
	if c.MapLink != "/map/c" || c.Location != "" {
		t.Errorf("map link without nested location: MapLink=%q Location=%q", c.MapLink, c.Location)
	}
	if c.ReviewScore != "" {
		t.Errorf("ReviewScore without digits = %q, want empty", c.ReviewScore)
	}
}

func TestExtractSkipsBrokenCardInOrder(t *testing.T) {
	broken := `<div data-testid="property-card">
  <div class="a5922b8ca1"><a href="/h/x"><img alt="no src"></a></div>
  <div data-testid="title">Broken</div>
</div>`
	brokenStars := `<div data-testid="property-card">
  <div data-testid="title">Also broken</div>
  <div class="b3f3c831be"></div>
</div>`

	out := extract(t, page(heading, fullCard("First"), broken, fullCard("Second"), brokenStars, fullCard("Third")))

	if out.CardCount != 5 {
		t.Errorf("CardCount = %d, want 5", out.CardCount)
	}
	if out.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", out.Skipped)
	}
	var titles []string
	for _, r := range out.Records {
		titles = append(titles, r.Title)
	}
	if want := []string{"First", "Second", "Third"}; !reflect.DeepEqual(titles, want) {
		t.Errorf("titles = %v, want %v", titles, want)
	}
}

func TestReviewScore(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"8.4 Excellent", "8.4"},
		{"Wonderful", ""},
		{"10", "10"},
		{"Scored 9.1", "9.1"},
		{"", ""},
		{"7. Good", "7"},
	}
	for _, tt := range tests {
		if got := ReviewScore(tt.in); got != tt.want {
			t.Errorf("ReviewScore(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractIdempotent(t *testing.T) {
	html := page(heading, fullCard("One"), fullCard("Two"))
	snap, err := snapshot.New("", html, time.Unix(0, 0))
	if err != nil {
		t.Fatalf("snapshot.New() error = %v", err)
	}
	e := New(models.DefaultSelectors(), nil)

	first, err := e.Extract(snap)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	second, err := e.Extract(snap)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated extraction differs:\n%+v\n%+v", first, second)
	}
}

func TestExtractConcurrentSnapshots(t *testing.T) {
	e := New(models.DefaultSelectors(), nil)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("Hotel%d", n)
			snap, err := snapshot.New("", page(fullCard(name)), time.Unix(0, 0))
			if err != nil {
				errs <- err
				return
			}
			out, err := e.Extract(snap)
			if err != nil {
				errs <- err
				return
			}
			if len(out.Records) != 1 || out.Records[0].Title != name {
				errs <- fmt.Errorf("snapshot %d: got %+v", n, out.Records)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
