// Package browser drives a live browser session through repeated "load more"
// cycles and hands back one snapshot of the fully loaded page.
package browser

import (
	"context"

	"github.com/dtnitsch/booking-scraper/models"
)

// TriggerState is what the pagination control looks like right now.
type TriggerState string

const (
	TriggerAbsent    TriggerState = "absent"
	TriggerDisabled  TriggerState = "disabled"
	TriggerHidden    TriggerState = "hidden"
	TriggerClickable TriggerState = "clickable"
)

// Session is one exclusively owned browser tab. It is not safe for concurrent use.
type Session interface {
	// Navigate loads url. Network errors and non-success statuses are returned as errors.
	Navigate(ctx context.Context, url string) error
	// TriggerState locates the pagination control and reports its state. The located
	// control becomes the target of the next Click.
	TriggerState(ctx context.Context, trigger models.Query) (TriggerState, error)
	// Click scrolls the control found by the last TriggerState into view and clicks it.
	Click(ctx context.Context) error
	// Count returns how many nodes currently match q.
	Count(ctx context.Context, q models.Query) (int, error)
	// HTML returns the current outer markup of the document.
	HTML(ctx context.Context) (string, error)
	// Close releases the tab and its browser process. Safe to call more than once.
	Close() error
}

// Opener acquires a fresh session. The controller closes what it opens.
type Opener func(ctx context.Context) (Session, error)
