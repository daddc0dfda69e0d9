package usgs

import (
	"context"
	"io"
	"net/http"
	"time"
)

const (
	defaultMaxRetries     = 3
	defaultBackoffBase    = 500 * time.Millisecond
	defaultAttemptTimeout = 10 * time.Second
)

// retryStatus reports whether a response status is a transient upstream
// failure worth retrying on the same credential.
func retryStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// retryRoundTripper retries idempotent GET requests on transient upstream
// status codes with exponential backoff. Each attempt runs under its own
// timeout, so one hung connection cannot stall a scrape worker beyond
// attemptTimeout × (maxRetries+1). Rate-limit (429) responses are never
// retried here — advancing to the next credential is the caller's job.
type retryRoundTripper struct {
	base           http.RoundTripper
	maxRetries     int
	backoffBase    time.Duration
	attemptTimeout time.Duration
	sleep          func(ctx context.Context, d time.Duration) error // injectable for tests
}

func newRetryRoundTripper(base http.RoundTripper) *retryRoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &retryRoundTripper{
		base:           base,
		maxRetries:     defaultMaxRetries,
		backoffBase:    defaultBackoffBase,
		attemptTimeout: defaultAttemptTimeout,
		sleep:          sleepCtx,
	}
}

func (t *retryRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return t.base.RoundTrip(req)
	}

	delay := t.backoffBase
	for attempt := 0; ; attempt++ {
		resp, err := t.attempt(req)
		if err != nil {
			return nil, err
		}
		if !retryStatus(resp.StatusCode) || attempt == t.maxRetries {
			return resp, nil
		}

		// Transient upstream failure — drain the connection and retry.
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if err := t.sleep(req.Context(), delay); err != nil {
			return nil, err
		}
		delay *= 2
	}
}

// attempt performs a single round trip under the per-attempt timeout. The
// returned body keeps the attempt's context alive until it is closed.
func (t *retryRoundTripper) attempt(req *http.Request) (*http.Response, error) {
	if t.attemptTimeout <= 0 {
		return t.base.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.attemptTimeout)
	resp, err := t.base.RoundTrip(req.Clone(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
