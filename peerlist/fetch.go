package peerlist

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// A wrapper around zap.Logger to make it compatible with
// retryablehttp.LeveledLogger interface.
type retryableHttpLogger struct {
	inner *zap.Logger
}

func (r retryableHttpLogger) Error(format string, args ...any) {
	r.inner.Sugar().Errorw(format, args...)
}

func (r retryableHttpLogger) Info(format string, args ...any) {
	r.inner.Sugar().Infow(format, args...)
}

func (r retryableHttpLogger) Warn(format string, args ...any) {
	r.inner.Sugar().Warnw(format, args...)
}

func (r retryableHttpLogger) Debug(format string, args ...any) {
	r.inner.Sugar().Debugw(format, args...)
}

type FetcherOpt func(*Fetcher)

func WithLogger(logger *zap.Logger) FetcherOpt {
	return func(f *Fetcher) {
		f.logger = logger
		f.client.Logger = &retryableHttpLogger{inner: logger}
		f.client.ResponseLogHook = func(_ retryablehttp.Logger, resp *http.Response) {
			f.logger.Debug(
				"response received",
				zap.Stringer("url", resp.Request.URL),
				zap.Int("status", resp.StatusCode),
			)
		}
	}
}

// WithRetries configures the number of retries and the wait between them.
func WithRetries(retries int, waitMin, waitMax time.Duration) FetcherOpt {
	return func(f *Fetcher) {
		f.client.RetryMax = retries
		f.client.RetryWaitMin = waitMin
		f.client.RetryWaitMax = waitMax
	}
}

// WithTimeout limits a single request attempt.
func WithTimeout(timeout time.Duration) FetcherOpt {
	return func(f *Fetcher) {
		f.client.HTTPClient.Timeout = timeout
	}
}

// Fetcher downloads remote peer lists, retrying failed requests.
type Fetcher struct {
	logger *zap.Logger
	client *retryablehttp.Client
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...FetcherOpt) *Fetcher {
	f := &Fetcher{
		logger: zap.NewNop(),
		client: &retryablehttp.Client{
			HTTPClient:   &http.Client{Timeout: 30 * time.Second},
			RetryMax:     5,
			RetryWaitMin: time.Second,
			RetryWaitMax: 10 * time.Second,
			Backoff:      retryablehttp.LinearJitterBackoff,
			CheckRetry:   retryablehttp.DefaultRetryPolicy,
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads and parses the peer list at url.
func (f *Fetcher) Fetch(ctx context.Context, url string, format Format, column int) (*List, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch peer list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch peer list: unexpected status %s", resp.Status)
	}
	list, err := Parse(resp.Body, format, column)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	f.logger.Debug("fetched peer list",
		zap.String("url", url),
		zap.Stringer("format", format),
		zap.Int("rows", list.Rows),
		zap.Int("skipped", list.Skipped),
	)
	return list, nil
}
