// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/econ-harvester/internal/httputil"
)

// ErrDisallowed is returned when robots.txt forbids fetching a page.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// BrowserHeaders returns the headers sent with landing-page requests.
func BrowserHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Upgrade-Insecure-Requests", "1")
	return h
}

// Fetcher downloads landing pages and parses them into goquery documents.
type Fetcher struct {
	// Client sends the request. Use httputil.NoRetry for single-shot fetches.
	Client *httputil.RetryClient

	// Header is sent with every request.
	Header http.Header

	// Limiter, Robots and Cache are optional.
	Limiter *httputil.Limiter
	Robots  *RobotsChecker
	Cache   *Cache
}

// Document fetches rawURL and parses the body as HTML. Non-2xx responses
// yield a *httputil.StatusError.
func (f *Fetcher) Document(ctx context.Context, rawURL string) (*goquery.Document, error) {
	if f.Robots != nil {
		allowed, err := f.Robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
	}
	if err := f.Limiter.Wait(ctx, rawURL); err != nil {
		return nil, err
	}

	resp, err := f.Client.Get(ctx, rawURL, f.Header)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from %s: %w", rawURL, err)
	}
	return doc, nil
}

// Extract fetches rawURL and applies fn to the document. Successful results
// are memoized in f.Cache when one is configured.
func Extract[T any](ctx context.Context, f *Fetcher, rawURL string, fn func(*goquery.Document) (T, error)) (T, error) {
	var zero T
	if v, ok := f.Cache.Get(rawURL); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	doc, err := f.Document(ctx, rawURL)
	if err != nil {
		return zero, err
	}
	t, err := fn(doc)
	if err != nil {
		return zero, err
	}
	f.Cache.Set(rawURL, t)
	return t, nil
}
