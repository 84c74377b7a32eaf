// Package extractor turns a document snapshot into property records.
package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/dtnitsch/booking-scraper/models"
	"github.com/dtnitsch/booking-scraper/pkg/snapshot"
)

// scorePattern matches the first integer or decimal token, e.g. "8.4" in "Scored 8.4".
var scorePattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ReviewScore pulls the numeric score out of free-form rating text.
// Text without digits yields "".
func ReviewScore(text string) string {
	return scorePattern.FindString(text)
}

// Extractor maps snapshots to records. It holds no mutable state, so one value can
// serve concurrent calls over independent snapshots.
type Extractor struct {
	selectors models.SelectorSet
	logger    *slog.Logger
}

func New(selectors models.SelectorSet, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{selectors: selectors, logger: logger}
}

// Extract reads the results heading and every item card, in document order.
// A card that fails with a CardExtractionError is logged and skipped; any other
// error aborts the pass.
func (e *Extractor) Extract(snap *snapshot.Snapshot) (models.Extraction, error) {
	root := snap.Root()
	out := models.Extraction{
		Summary: e.summary(root),
		Records: []models.PropertyRecord{},
	}

	cards := root.FindAll(e.selectors.Card)
	out.CardCount = len(cards)

	for i, card := range cards {
		record, err := e.extractCard(i, card)
		if err != nil {
			var cardErr *models.CardExtractionError
			if !errors.As(err, &cardErr) {
				return out, fmt.Errorf("failed to extract card %d: %w", i, err)
			}
			e.logger.Warn("Skipping property card", "card_index", cardErr.Index, "field", cardErr.Field, "error", cardErr.Err, "url", snap.URL())
			out.Skipped++
			continue
		}
		out.Records = append(out.Records, record)
	}

	e.logger.Debug("Extraction finished", "url", snap.URL(), "cards", out.CardCount, "records", len(out.Records), "skipped", out.Skipped, "total", out.Summary.Total)
	return out, nil
}

func (e *Extractor) summary(root snapshot.Node) models.Summary {
	heading := root.Find(e.selectors.Heading)
	if text := heading.Text(); text != "" {
		return models.Summary{Total: text}
	}
	return models.Summary{Total: models.UnknownTotal}
}

func (e *Extractor) extractCard(index int, card snapshot.Node) (models.PropertyRecord, error) {
	sel := e.selectors
	var rec models.PropertyRecord
	var err error

	imageBox := card.Find(sel.ImageContainer)
	if rec.ImageLink, err = requiredAttr(index, "imageLink", imageBox.Find(sel.Image), "src"); err != nil {
		return rec, err
	}
	if rec.URLLink, err = requiredAttr(index, "urlLink", imageBox.Find(sel.Link), "href"); err != nil {
		return rec, err
	}

	rec.Title = card.Find(sel.Title).Text()

	if rec.StarRating, err = requiredAttr(index, "starRating", card.Find(sel.StarRating), "aria-label"); err != nil {
		return rec, err
	}

	mapBox := card.Find(sel.MapContainer)
	if rec.MapLink, err = requiredAttr(index, "mapLink", mapBox.Find(sel.MapAnchor), "href"); err != nil {
		return rec, err
	}
	rec.Location = mapBox.Find(sel.Location).Text()

	review := card.Find(sel.Review)
	rec.ReviewScore = ReviewScore(review.Find(sel.ReviewScore).Text())
	rec.ReviewComment = review.Find(sel.ReviewComment).Text()
	rec.ReviewCount = review.Find(sel.ReviewCount).Text()

	return rec, nil
}

// requiredAttr reads attr from n. An absent node is an empty field; a present node
// without the attribute means the card's structure is broken.
func requiredAttr(index int, field string, n snapshot.Node, attr string) (string, error) {
	if !n.Exists() {
		return "", nil
	}
	v, ok := n.Attr(attr)
	if !ok {
		return "", &models.CardExtractionError{
			Index: index,
			Field: field,
			Err:   fmt.Errorf("<%s> has no %s attribute", n.Tag(), attr),
		}
	}
	return v, nil
}
