// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across source adapters:
// a bounded retry client, a per-host rate limiter, and a typed status error.
package httputil

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay is the delay before the first retry. Each further retry
// doubles it (backoff factor 2). Tests override this to avoid real sleeps.
var RetryBaseDelay = 2 * time.Second

// RetryPolicy configures RetryClient.
type RetryPolicy struct {
	// MaxAttempts counts the first request; 3 means one call plus two retries.
	MaxAttempts int

	// Backoff is the geometric growth factor between delays.
	Backoff float64

	// RetryStatus lists the response codes that trigger a retry.
	RetryStatus map[int]bool
}

// DefaultRetryPolicy retries GET requests up to 3 attempts total on 429,
// 5xx gateway errors, and 400.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Backoff:     2,
		RetryStatus: map[int]bool{
			http.StatusTooManyRequests:     true,
			http.StatusInternalServerError: true,
			http.StatusBadGateway:          true,
			http.StatusServiceUnavailable:  true,
			http.StatusGatewayTimeout:      true,
			http.StatusBadRequest:          true,
		},
	}
}

// RetryClient wraps an *http.Client with automatic retry for GET requests.
// It holds no per-request state, so one instance may serve many requests.
type RetryClient struct {
	Client *http.Client
	Policy RetryPolicy
}

// NewRetryClient returns a RetryClient using DefaultRetryPolicy.
func NewRetryClient(client *http.Client) *RetryClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RetryClient{Client: client, Policy: DefaultRetryPolicy()}
}

// Do sends req, retrying on transport errors and on the policy's status
// codes. Only GET is retried; other methods are sent once. Bodies of
// retried responses are drained and closed before waiting. After the last
// attempt the final response or transport error is returned unchanged, so
// the caller can inspect the status code. If ctx is cancelled during a
// backoff wait Do returns ctx.Err().
func (c *RetryClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	attempts := c.Policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	if req.Method != http.MethodGet && req.Method != "" {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		resp, err := c.Client.Do(req.Clone(ctx))
		if attempt >= attempts {
			return resp, err
		}
		if err == nil && !c.Policy.RetryStatus[resp.StatusCode] {
			return resp, nil
		}
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
}

// Get is a convenience wrapper building a GET request for rawURL with the
// given headers.
func (c *RetryClient) Get(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range header {
		req.Header[k] = v
	}
	return c.Do(ctx, req)
}

// backoff returns the wait after the given failed attempt (1-based):
// RetryBaseDelay, then RetryBaseDelay*factor, and so on.
func (c *RetryClient) backoff(attempt int) time.Duration {
	factor := c.Policy.Backoff
	if factor <= 0 {
		factor = 2
	}
	return time.Duration(math.Pow(factor, float64(attempt-1)) * float64(RetryBaseDelay))
}

// NoRetry returns a RetryClient that sends each request exactly once.
func NoRetry(client *http.Client) *RetryClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RetryClient{Client: client, Policy: RetryPolicy{MaxAttempts: 1}}
}
