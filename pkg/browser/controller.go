package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dtnitsch/booking-scraper/models"
	"github.com/dtnitsch/booking-scraper/pkg/snapshot"
)

// State is a step of the load cycle.
type State int

const (
	StateStart State = iota
	StateAwaitingInitialReadiness
	StateReadyToPaginate
	StateClicking
	StateAwaitingPageGrowth
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateStart:                    "start",
	StateAwaitingInitialReadiness: "awaiting_initial_readiness",
	StateReadyToPaginate:          "ready_to_paginate",
	StateClicking:                 "clicking",
	StateAwaitingPageGrowth:       "awaiting_page_growth",
	StateDone:                     "done",
	StateFailed:                   "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transitions happen from s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Options bounds every wait the controller performs.
type Options struct {
	Trigger           models.Query
	Card              models.Query
	NavigationTimeout time.Duration
	ReadyTimeout      time.Duration
	PollInterval      time.Duration
	SettleInterval    time.Duration
	ActionTimeout     time.Duration
	CaptureTimeout    time.Duration
	MaxClicks         int
}

const DefaultPollInterval = 500 * time.Millisecond

// OptionsFromConfig copies the controller's knobs out of a scrape config.
func OptionsFromConfig(cfg models.ScrapeConfig) Options {
	return Options{
		Trigger:           cfg.Selectors.LoadMore,
		Card:              cfg.Selectors.Card,
		NavigationTimeout: cfg.Timing.NavigationTimeout,
		ReadyTimeout:      cfg.Timing.ReadyTimeout,
		PollInterval:      DefaultPollInterval,
		SettleInterval:    cfg.Timing.SettleInterval,
		ActionTimeout:     cfg.Timing.ActionTimeout,
		CaptureTimeout:    cfg.Timing.CaptureTimeout,
		MaxClicks:         cfg.Timing.MaxClicks,
	}
}

// LoadResult is what one Load produced. Snapshot is set whenever Load returns a nil error,
// including after a pagination failure, in which case State is StateFailed and Err says why.
type LoadResult struct {
	URL        string
	Snapshot   *snapshot.Snapshot
	State      State
	Clicks     int
	CardCounts []int
	Err        error
	Elapsed    time.Duration
}

// Complete reports whether the loop ran out of pages rather than failing.
func (r *LoadResult) Complete() bool {
	return r.State == StateDone
}

// Controller runs the load-more cycle against one session at a time.
type Controller struct {
	open   Opener
	opts   Options
	logger *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time

	state State
}

func NewController(open Opener, opts Options, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Controller{
		open:   open,
		opts:   opts,
		logger: logger,
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// State returns the state the last Load ended in.
func (c *Controller) State() State {
	return c.state
}

// Load opens a session, navigates to url, clicks the pagination trigger until it is gone,
// disabled or hidden, and returns a snapshot of the final document. The session is
// closed on every return path.
//
// Transport and readiness failures return an error and no snapshot. A failure after
// pagination started ends the loop but still returns the partially loaded snapshot.
func (c *Controller) Load(ctx context.Context, url string) (*LoadResult, error) {
	started := c.now()
	c.transition(StateStart, url)

	session, err := c.open(ctx)
	if err != nil {
		c.transition(StateFailed, url)
		return nil, &models.RunError{Kind: models.ErrTransportFailure, URL: url, Err: fmt.Errorf("failed to open browser session: %w", err)}
	}
	defer func() {
		if closeErr := session.Close(); closeErr != nil {
			c.logger.Warn("Failed to release browser session", "url", url, "error", closeErr)
		}
	}()

	navCtx, cancel := withTimeout(ctx, c.opts.NavigationTimeout)
	err = session.Navigate(navCtx, url)
	cancel()
	if err != nil {
		c.transition(StateFailed, url)
		return nil, &models.RunError{Kind: models.ErrTransportFailure, URL: url, Err: err}
	}

	c.transition(StateAwaitingInitialReadiness, url)
	if err := c.awaitReadiness(ctx, session); err != nil {
		c.transition(StateFailed, url)
		return nil, &models.RunError{Kind: models.ErrLoadTimeout, URL: url, Err: err}
	}

	result := &LoadResult{URL: url}
	if err := c.paginate(ctx, session, result); err != nil {
		result.Err = &models.RunError{Kind: models.ErrPaginationFailure, URL: url, Err: err}
		c.transition(StateFailed, url)
		c.logger.Warn("Pagination stopped early, keeping partial page", "url", url, "clicks", result.Clicks, "error", err)
	} else {
		c.transition(StateDone, url)
	}
	result.State = c.state

	snap, err := c.capture(ctx, session, url)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to capture snapshot: %w", err), result.Err)
	}
	result.Snapshot = snap
	result.Elapsed = c.now().Sub(started)

	c.logger.Info("Page load finished", "url", url, "state", result.State.String(), "clicks", result.Clicks, "bytes", snap.Size(), "elapsed", result.Elapsed.String())
	return result, nil
}

// awaitReadiness polls until the trigger first becomes clickable or ReadyTimeout passes.
func (c *Controller) awaitReadiness(ctx context.Context, session Session) error {
	deadline := c.now().Add(c.opts.ReadyTimeout)
	var last TriggerState
	var lastErr error

	for polls := 1; ; polls++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("readiness wait interrupted after %d polls: %w", polls-1, err)
		}

		actionCtx, cancel := withTimeout(ctx, c.opts.ActionTimeout)
		last, lastErr = session.TriggerState(actionCtx, c.opts.Trigger)
		cancel()
		if lastErr == nil && last == TriggerClickable {
			c.logger.Debug("Pagination trigger ready", "polls", polls)
			return nil
		}

		if !c.now().Before(deadline) {
			if lastErr != nil {
				return fmt.Errorf("trigger %s not clickable within %s: %w", c.opts.Trigger, c.opts.ReadyTimeout, lastErr)
			}
			return fmt.Errorf("trigger %s not clickable within %s (last state %s)", c.opts.Trigger, c.opts.ReadyTimeout, last)
		}
		if err := c.sleep(ctx, c.opts.PollInterval); err != nil {
			return fmt.Errorf("readiness wait interrupted: %w", err)
		}
	}
}

func (c *Controller) paginate(ctx context.Context, session Session, result *LoadResult) error {
	c.transition(StateReadyToPaginate, result.URL)
	previous := -1

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.opts.MaxClicks > 0 && result.Clicks >= c.opts.MaxClicks {
			c.logger.Info("Click limit reached", "url", result.URL, "max_clicks", c.opts.MaxClicks)
			return nil
		}

		actionCtx, cancel := withTimeout(ctx, c.opts.ActionTimeout)
		state, err := session.TriggerState(actionCtx, c.opts.Trigger)
		cancel()
		if err != nil {
			return err
		}
		if state != TriggerClickable {
			c.logger.Info("No more pages", "url", result.URL, "trigger", string(state), "clicks", result.Clicks)
			return nil
		}

		c.transition(StateClicking, result.URL)
		actionCtx, cancel = withTimeout(ctx, c.opts.ActionTimeout)
		err = session.Click(actionCtx)
		cancel()
		if err != nil {
			return err
		}
		result.Clicks++

		c.transition(StateAwaitingPageGrowth, result.URL)
		if err := c.sleep(ctx, c.opts.SettleInterval); err != nil {
			return err
		}

		if c.opts.Card.Selector() != "*" {
			actionCtx, cancel = withTimeout(ctx, c.opts.ActionTimeout)
			count, countErr := session.Count(actionCtx, c.opts.Card)
			cancel()
			switch {
			case countErr != nil:
				c.logger.Debug("Could not count item cards", "url", result.URL, "error", countErr)
			case count <= previous:
				c.logger.Warn("No growth observed after click", "url", result.URL, "click", result.Clicks, "cards", count)
			default:
				c.logger.Info("Loaded more results", "url", result.URL, "click", result.Clicks, "cards", count)
			}
			if countErr == nil {
				result.CardCounts = append(result.CardCounts, count)
				previous = count
			}
		}

		c.transition(StateReadyToPaginate, result.URL)
	}
}

// capture reads the final markup. It runs detached from ctx's cancellation, bounded by
// CaptureTimeout, so an interrupted scrape still keeps what was rendered.
func (c *Controller) capture(ctx context.Context, session Session, url string) (*snapshot.Snapshot, error) {
	captureCtx, cancel := withTimeout(context.WithoutCancel(ctx), c.opts.CaptureTimeout)
	defer cancel()

	html, err := session.HTML(captureCtx)
	if err != nil {
		return nil, err
	}
	return snapshot.New(url, html, c.now())
}

func (c *Controller) transition(to State, url string) {
	from := c.state
	c.state = to
	if from != to {
		c.logger.Debug("Load state", "url", url, "from", from.String(), "to", to.String())
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
