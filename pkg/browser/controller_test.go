package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dtnitsch/booking-scraper/models"
)

// fakeSession renders one card per load. After `pages` clicks the trigger reports
// `exhausted`, or hidden when that is unset.
type fakeSession struct {
	mu sync.Mutex

	pages       int
	exhausted   TriggerState
	notReadyFor int
	navigateErr error
	clickErrAt  int
	stateErr    error
	htmlErr     error
	onClick     func(clicks int)

	clicks     int
	polls      int
	closed     int
	navigated  string
	htmlCtxErr error
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	f.navigated = url
	return f.navigateErr
}

func (f *fakeSession) TriggerState(ctx context.Context, trigger models.Query) (TriggerState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls++
	if f.stateErr != nil {
		return "", f.stateErr
	}
	if f.notReadyFor < 0 || f.polls <= f.notReadyFor {
		return TriggerAbsent, nil
	}
	if f.clicks >= f.pages {
		if f.exhausted != "" {
			return f.exhausted, nil
		}
		return TriggerHidden, nil
	}
	return TriggerClickable, nil
}

func (f *fakeSession) Click(ctx context.Context) error {
	f.mu.Lock()
	f.clicks++
	clicks := f.clicks
	f.mu.Unlock()
	if f.clickErrAt > 0 && clicks == f.clickErrAt {
		return errors.New("element detached")
	}
	if f.onClick != nil {
		f.onClick(clicks)
	}
	return nil
}

func (f *fakeSession) Count(ctx context.Context, q models.Query) (int, error) {
	return f.clicks + 1, nil
}

func (f *fakeSession) HTML(ctx context.Context) (string, error) {
	f.htmlCtxErr = ctx.Err()
	if f.htmlErr != nil {
		return "", f.htmlErr
	}
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i <= f.clicks; i++ {
		fmt.Fprintf(&b, `<div data-testid="property-card">card %d</div>`, i)
	}
	b.WriteString("</body></html>")
	return b.String(), nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return nil
}

type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
	return nil
}

func newTestController(session *fakeSession, opts Options) (*Controller, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := NewController(func(ctx context.Context) (Session, error) { return session, nil }, opts, nil)
	c.now = clock.now
	c.sleep = clock.sleep
	return c, clock
}

func testOptions() Options {
	sel := models.DefaultSelectors()
	return Options{
		Trigger:        sel.LoadMore,
		Card:           sel.Card,
		ReadyTimeout:   40 * time.Second,
		PollInterval:   500 * time.Millisecond,
		SettleInterval: 10 * time.Second,
	}
}

func TestLoadClicksUntilTriggerGone(t *testing.T) {
	for _, exhausted := range []TriggerState{TriggerAbsent, TriggerHidden, TriggerDisabled} {
		t.Run(string(exhausted), func(t *testing.T) {
			session := &fakeSession{pages: 3, notReadyFor: 2, exhausted: exhausted}
			c, clock := newTestController(session, testOptions())

			res, err := c.Load(context.Background(), "https://example.test/search")
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if res.State != StateDone || !res.Complete() {
				t.Errorf("State = %s, want done", res.State)
			}
			if res.Err != nil {
				t.Errorf("Err = %v, want nil", res.Err)
			}
			if res.Clicks != 3 || session.clicks != 3 {
				t.Errorf("clicks = %d (session %d), want 3", res.Clicks, session.clicks)
			}
			if got := res.Snapshot.Count(models.DefaultSelectors().Card); got != 4 {
				t.Errorf("snapshot cards = %d, want 4", got)
			}
			if want := []int{2, 3, 4}; fmt.Sprint(res.CardCounts) != fmt.Sprint(want) {
				t.Errorf("CardCounts = %v, want %v", res.CardCounts, want)
			}
			if session.closed != 1 {
				t.Errorf("Close called %d times, want 1", session.closed)
			}
			if session.navigated != "https://example.test/search" {
				t.Errorf("navigated to %q", session.navigated)
			}

			settles := 0
			for _, d := range clock.slept {
				if d == 10*time.Second {
					settles++
				}
			}
			if settles != 3 {
				t.Errorf("settle waits = %d, want 3", settles)
			}
		})
	}
}

func TestLoadTriggerNeverClickable(t *testing.T) {
	session := &fakeSession{pages: 0}
	c, _ := newTestController(session, testOptions())

	res, err := c.Load(context.Background(), "https://example.test/")
	if !errors.Is(err, models.ErrLoadTimeout) {
		t.Fatalf("Load() = %+v, %v; want ErrLoadTimeout", res, err)
	}
}

func TestLoadReadinessTimeout(t *testing.T) {
	session := &fakeSession{notReadyFor: -1, pages: 5}
	c, clock := newTestController(session, testOptions())
	start := clock.t

	res, err := c.Load(context.Background(), "https://example.test/")
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, models.ErrLoadTimeout) {
		t.Fatalf("err = %v, want ErrLoadTimeout", err)
	}
	if session.clicks != 0 {
		t.Errorf("clicked %d times before readiness", session.clicks)
	}
	if elapsed := clock.t.Sub(start); elapsed < 40*time.Second || elapsed > 41*time.Second {
		t.Errorf("waited %s, want about 40s", elapsed)
	}
	if session.polls != 81 {
		t.Errorf("polls = %d, want 81", session.polls)
	}
	if session.closed != 1 {
		t.Errorf("Close called %d times, want 1", session.closed)
	}
	if c.State() != StateFailed {
		t.Errorf("State() = %s, want failed", c.State())
	}
}

func TestLoadClickFailureKeepsPartialSnapshot(t *testing.T) {
	session := &fakeSession{pages: 5, clickErrAt: 3}
	c, _ := newTestController(session, testOptions())

	res, err := c.Load(context.Background(), "https://example.test/")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.State != StateFailed {
		t.Errorf("State = %s, want failed", res.State)
	}
	if !errors.Is(res.Err, models.ErrPaginationFailure) {
		t.Errorf("Err = %v, want ErrPaginationFailure", res.Err)
	}
	if res.Clicks != 2 {
		t.Errorf("Clicks = %d, want 2", res.Clicks)
	}
	if res.Snapshot == nil || res.Snapshot.Size() == 0 {
		t.Fatal("expected partial snapshot")
	}
	if session.closed != 1 {
		t.Errorf("Close called %d times, want 1", session.closed)
	}
}

func TestLoadNavigationFailure(t *testing.T) {
	session := &fakeSession{pages: 1, navigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	c, _ := newTestController(session, testOptions())

	res, err := c.Load(context.Background(), "https://nowhere.invalid/")
	if res != nil {
		t.Errorf("result = %+v, want nil", res)
	}
	if !errors.Is(err, models.ErrTransportFailure) {
		t.Fatalf("err = %v, want ErrTransportFailure", err)
	}
	var runErr *models.RunError
	if !errors.As(err, &runErr) || runErr.URL != "https://nowhere.invalid/" {
		t.Errorf("err = %#v, want RunError with url", err)
	}
	if session.closed != 1 {
		t.Errorf("Close called %d times, want 1", session.closed)
	}
}

func TestLoadOpenFailure(t *testing.T) {
	c := NewController(func(ctx context.Context) (Session, error) {
		return nil, errors.New("chrome not found")
	}, testOptions(), nil)

	_, err := c.Load(context.Background(), "https://example.test/")
	if !errors.Is(err, models.ErrTransportFailure) {
		t.Fatalf("err = %v, want ErrTransportFailure", err)
	}
}

func TestLoadMaxClicks(t *testing.T) {
	opts := testOptions()
	opts.MaxClicks = 2
	session := &fakeSession{pages: 10}
	c, _ := newTestController(session, opts)

	res, err := c.Load(context.Background(), "https://example.test/")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.Clicks != 2 || res.State != StateDone {
		t.Errorf("Clicks = %d, State = %s; want 2, done", res.Clicks, res.State)
	}
}

func TestLoadCancelledMidPagination(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := &fakeSession{pages: 10}
	session.onClick = func(clicks int) {
		if clicks == 2 {
			cancel()
		}
	}
	c, _ := newTestController(session, testOptions())

	res, err := c.Load(ctx, "https://example.test/")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if res.State != StateFailed {
		t.Errorf("State = %s, want failed", res.State)
	}
	if !errors.Is(res.Err, context.Canceled) || !errors.Is(res.Err, models.ErrPaginationFailure) {
		t.Errorf("Err = %v, want cancelled pagination failure", res.Err)
	}
	if res.Clicks != 2 {
		t.Errorf("Clicks = %d, want 2", res.Clicks)
	}
	if session.htmlCtxErr != nil {
		t.Errorf("capture ran on cancelled context: %v", session.htmlCtxErr)
	}
	if session.closed != 1 {
		t.Errorf("Close called %d times, want 1", session.closed)
	}
}

func TestLoadCaptureFailure(t *testing.T) {
	session := &fakeSession{pages: 1, htmlErr: errors.New("target closed")}
	c, _ := newTestController(session, testOptions())

	res, err := c.Load(context.Background(), "https://example.test/")
	if err == nil || res != nil {
		t.Fatalf("Load() = %+v, %v; want capture error", res, err)
	}
	if session.closed != 1 {
		t.Errorf("Close called %d times, want 1", session.closed)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateStart, "start"},
		{StateAwaitingInitialReadiness, "awaiting_initial_readiness"},
		{StateAwaitingPageGrowth, "awaiting_page_growth"},
		{StateDone, "done"},
		{State(42), "state(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
	if !StateFailed.Terminal() || StateClicking.Terminal() {
		t.Error("Terminal() mismatch")
	}
}
