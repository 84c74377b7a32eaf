// Package pagemeta describes a captured results page: its title, site name and the
// language it was rendered in. Everything here is best effort and never fails a run.
package pagemeta

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-shiori/go-readability"
	"github.com/pemistahl/lingua-go"

	"github.com/dtnitsch/booking-scraper/models"
	"github.com/dtnitsch/booking-scraper/pkg/snapshot"
)

// Meta is what could be learned about a page beyond its records.
type Meta struct {
	Title              string  `json:"title,omitempty" yaml:"title,omitempty"`
	SiteName           string  `json:"site_name,omitempty" yaml:"site_name,omitempty"`
	Excerpt            string  `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	Image              string  `json:"image,omitempty" yaml:"image,omitempty"`
	Language           string  `json:"language,omitempty" yaml:"language,omitempty"`
	LanguageConfidence float64 `json:"language_confidence,omitempty" yaml:"language_confidence,omitempty"`
}

var titleQuery = models.Query{Tag: "title"}

// maxSampleRunes bounds how much page text goes to language detection.
const maxSampleRunes = 4000

// Languages the results site is commonly rendered in.
var languages = []lingua.Language{
	lingua.English,
	lingua.French,
	lingua.German,
	lingua.Spanish,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Polish,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}

// Describe reads title metadata with readability and detects the page language.
func Describe(snap *snapshot.Snapshot) (Meta, error) {
	var meta Meta

	pageURL, err := url.Parse(snap.URL())
	if err != nil {
		return meta, fmt.Errorf("failed to parse page URL: %w", err)
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(snap.HTML()), pageURL)
	if err != nil {
		// Result listings often have no article body; fall back to the title element.
		meta.Title = snap.Root().Find(titleQuery).Text()
	} else {
		meta.Title = snapshot.NormalizeText(article.Title)
		meta.SiteName = snapshot.NormalizeText(article.SiteName)
		meta.Excerpt = snapshot.NormalizeText(article.Excerpt)
		meta.Image = article.Image
	}

	meta.Language, meta.LanguageConfidence = DetectLanguage(snap.Text())
	return meta, nil
}

// DetectLanguage returns the lowercase ISO 639-1 code of text's language, or "" when unsure.
func DetectLanguage(text string) (string, float64) {
	sample := truncateRunes(text, maxSampleRunes)
	if strings.TrimSpace(sample) == "" {
		return "", 0
	}

	d := languageDetector()
	language, ok := d.DetectLanguageOf(sample)
	if !ok {
		return "", 0
	}
	confidence := d.ComputeLanguageConfidence(sample, language)
	return strings.ToLower(language.IsoCode639_1().String()), confidence
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
