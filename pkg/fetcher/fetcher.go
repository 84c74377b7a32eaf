package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dtnitsch/booking-scraper/models"
	"github.com/dtnitsch/booking-scraper/pkg/snapshot"
)

// Fetcher retrieves result pages over plain HTTP, without running any script.
// It backs the static scrape mode, where only the first page of results is available.
type Fetcher struct {
	client *resty.Client
	logger *slog.Logger
}

func NewFetcher(userAgent string, timeout time.Duration, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if userAgent == "" {
		userAgent = models.DefaultUserAgent
	}

	client := resty.New()
	client.SetHeader("user-agent", userAgent)
	client.SetHeader("accept-language", "en-US,en;q=0.9")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	client.SetRetryCount(2)
	client.SetRetryWaitTime(500 * time.Millisecond)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res.StatusCode() >= http.StatusInternalServerError
	})

	return &Fetcher{client: client, logger: logger}
}

func (f *Fetcher) GetHtmlBytes(ctx context.Context, url string) ([]byte, error) {
	res, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, &models.RunError{Kind: models.ErrTransportFailure, URL: url, Err: fmt.Errorf("failed to make HTTP request: %w", err)}
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return nil, &models.RunError{Kind: models.ErrTransportFailure, URL: url, Err: fmt.Errorf("failed to fetch HTML, status code: %d", res.StatusCode())}
	}

	f.logger.Debug("Fetched page", "url", url, "status", res.StatusCode(), "bytes", len(res.Body()), "elapsed", res.Time().String())
	return res.Body(), nil
}

// GetSnapshot fetches url and wraps the body as a document snapshot.
func (f *Fetcher) GetSnapshot(ctx context.Context, url string) (*snapshot.Snapshot, error) {
	body, err := f.GetHtmlBytes(ctx, url)
	if err != nil {
		return nil, err
	}
	snap, err := snapshot.New(url, string(body), time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return snap, nil
}
