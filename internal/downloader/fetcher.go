package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
	"igfetch/pkg/retry"
)

// HTTPFetcher downloads media bodies from the CDN
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	retry     *retry.Config
	logger    logger.Logger
}

// NewHTTPFetcher creates a fetcher. A nil retry config means one attempt.
func NewHTTPFetcher(client *http.Client, userAgent string, retryCfg *retry.Config, log logger.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	if retryCfg == nil {
		retryCfg = &retry.Config{MaxAttempts: 1}
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &HTTPFetcher{client: client, userAgent: userAgent, retry: retryCfg, logger: log}
}

// Fetch opens url. The caller closes the returned body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	return retry.DoWithResult(ctx, func(ctx context.Context) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}

		start := time.Now()
		resp, err := f.client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, &errs.Error{Type: errs.ErrorTypeNetwork, Message: err.Error()}
		}
		logger.LogRequest(f.logger, http.MethodGet, url, resp.StatusCode, time.Since(start))

		if apiErr := errs.FromStatus(resp.StatusCode); apiErr != nil {
			resp.Body.Close()
			return nil, apiErr
		}
		return resp.Body, nil
	}, f.retry)
}
