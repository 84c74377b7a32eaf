package pagemeta

import (
	"testing"
	"time"

	"github.com/dtnitsch/booking-scraper/pkg/snapshot"
)

const articlePage = `<html><head>
<title>Hotels in Lisbon | Booking.com</title>
<meta property="og:site_name" content="Booking.com">
</head><body>
<article>
<h1>Hotels in Lisbon</h1>
<p>Lisbon is the capital of Portugal and one of the oldest cities in western Europe. The city sits on seven hills
above the Tagus river and is known for its trams, its tiled facades and its views over the water.</p>
<p>Travellers who stay in the Alfama district are close to the castle, the cathedral and many small restaurants
where fado music is played late into the evening. Prices vary a lot between the summer months and the winter.</p>
<p>The listings below were updated today and show the properties that still have rooms available for your dates.</p>
</article>
</body></html>`

func TestDescribe(t *testing.T) {
	snap, err := snapshot.New("https://www.booking.com/searchresults.html?ss=Lisbon", articlePage, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	meta, err := Describe(snap)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if meta.Title == "" {
		t.Error("Title is empty")
	}
	if meta.Language != "en" {
		t.Errorf("Language = %q, want en", meta.Language)
	}
	if meta.LanguageConfidence <= 0 || meta.LanguageConfidence > 1 {
		t.Errorf("LanguageConfidence = %v", meta.LanguageConfidence)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"empty", "   ", ""},
		{"english", "The hotel is close to the beach and the staff were very friendly to us.", "en"},
		{"german", "Das Hotel liegt direkt am Strand und das Personal war sehr freundlich zu uns.", "de"},
		{"french", "L'hôtel est situé près de la plage et le personnel était très accueillant avec nous.", "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := DetectLanguage(tt.text)
			if got != tt.want {
				t.Errorf("DetectLanguage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("héllo", 2); got != "hé" {
		t.Errorf("truncateRunes() = %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Errorf("truncateRunes() = %q", got)
	}
}
