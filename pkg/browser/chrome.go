package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chromedp/chromedp"
	"github.com/dtnitsch/booking-scraper/models"
)

// triggerMarker tags the control located by TriggerState so Click can address it by CSS
// even when it was matched on text.
const triggerMarker = "data-scraper-trigger"

const triggerStateJS = `(() => {
	const marker = %q;
	const text = %q;
	document.querySelectorAll('[' + marker + ']').forEach(el => el.removeAttribute(marker));
	const el = Array.from(document.querySelectorAll(%q))
		.find(el => !text || (el.textContent || '').includes(text));
	if (!el) return 'absent';
	el.setAttribute(marker, '1');
	if (el.disabled || el.getAttribute('aria-disabled') === 'true') return 'disabled';
	const style = window.getComputedStyle(el);
	const rect = el.getBoundingClientRect();
	if (style.display === 'none' || style.visibility === 'hidden' || (rect.width === 0 && rect.height === 0)) return 'hidden';
	return 'clickable';
})()`

// ChromeSession is a Session backed by a headless Chrome tab through chromedp.
type ChromeSession struct {
	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
	logger      *slog.Logger
	closeOnce   sync.Once
	closeErr    error
}

// ChromeOpener returns an Opener that starts a new browser for every scrape.
func ChromeOpener(cfg models.BrowserConfig, logger *slog.Logger) Opener {
	return func(ctx context.Context) (Session, error) {
		return OpenChrome(ctx, cfg, logger)
	}
}

// OpenChrome starts a browser process and one tab. The browser outlives ctx
// cancellation until Close is called, so a cancelled scrape can still capture
// what was already rendered. ctx only bounds the startup.
func OpenChrome(ctx context.Context, cfg models.BrowserConfig, logger *slog.Logger) (*ChromeSession, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	s, err := startSession(ctx, allocCtx, cancelAlloc, logger)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Browser session started", "headless", cfg.Headless)
	return s, nil
}

// startSession opens a tab on allocCtx. chromedp binds the browser process, its
// websocket and the tab loop to the context of the first Run, so that Run gets the
// tab context itself and ctx is only watched while waiting for it.
func startSession(ctx, allocCtx context.Context, cancelAlloc context.CancelFunc, logger *slog.Logger) (*ChromeSession, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(format, args...), "source", "chromedp")
		}),
	)

	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	select {
	case err := <-started:
		if err != nil {
			cancelTab()
			cancelAlloc()
			return nil, fmt.Errorf("failed to start browser: %w", err)
		}
	case <-ctx.Done():
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("failed to start browser: %w", ctx.Err())
	}

	return &ChromeSession{ctx: tabCtx, cancelTab: cancelTab, cancelAlloc: cancelAlloc, logger: logger}, nil
}

// bind derives a context from the tab that also honours ctx's cancellation and deadline.
func (s *ChromeSession) bind(ctx context.Context) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	release := func() {
		stop()
		cancel()
	}
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		release = func() {
			cancelDeadline()
			stop()
			cancel()
		}
	}
	return runCtx, release
}

func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, release := s.bind(ctx)
	defer release()
	return chromedp.Run(runCtx, actions...)
}

func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, release := s.bind(ctx)
	defer release()

	resp, err := chromedp.RunResponse(runCtx, chromedp.Navigate(url))
	if err != nil {
		return fmt.Errorf("failed to navigate: %w", err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status >= 400) {
		return fmt.Errorf("navigation returned status code: %d", resp.Status)
	}
	return nil
}

func (s *ChromeSession) TriggerState(ctx context.Context, trigger models.Query) (TriggerState, error) {
	var state string
	script := fmt.Sprintf(triggerStateJS, triggerMarker, trigger.Text, trigger.Selector())
	if err := s.run(ctx, chromedp.Evaluate(script, &state)); err != nil {
		return "", fmt.Errorf("failed to locate pagination trigger: %w", err)
	}
	return TriggerState(state), nil
}

func (s *ChromeSession) Click(ctx context.Context) error {
	sel := "[" + triggerMarker + "]"
	if err := s.run(ctx,
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("failed to click pagination trigger: %w", err)
	}
	return nil
}

func (s *ChromeSession) Count(ctx context.Context, q models.Query) (int, error) {
	var n int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, q.Selector())
	if err := s.run(ctx, chromedp.Evaluate(script, &n)); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", q, err)
	}
	return n, nil
}

func (s *ChromeSession) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read document HTML: %w", err)
	}
	return html, nil
}

func (s *ChromeSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = chromedp.Cancel(s.ctx)
		s.cancelTab()
		s.cancelAlloc()
		s.logger.Info("Browser session released")
	})
	return s.closeErr
}
