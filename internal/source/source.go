// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source translates each remote service's native protocol into
// normalized Records. Each adapter (arXiv, NBER, SSRN) implements Adapter;
// the harvest package invokes them in sequence under a shared budget.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/econ-harvester/internal/httputil"
	"github.com/pdiddy/econ-harvester/internal/scrape"
	"github.com/pdiddy/econ-harvester/pkg/types"
)

// Adapter fetches Records from one remote source.
type Adapter interface {
	Name() types.Source
	Fetch(ctx context.Context, req Request) (Result, error)
}

// Request holds the parameters of one adapter call.
type Request struct {
	Keywords []string

	// MaxArticles caps the number of Records returned. Zero or less returns
	// an empty Result without contacting the source.
	MaxArticles int

	// LoadFullAbstract scrapes each landing page for the full abstract.
	// arXiv ignores it because its feed already carries the summary.
	LoadFullAbstract bool
}

// Skip records a result dropped by an adapter and why.
type Skip struct {
	Source types.Source `json:"source"`
	Ref    string       `json:"ref"`
	Reason string       `json:"reason"`
}

// Result is the outcome of one adapter call.
type Result struct {
	Records []types.Record
	Skipped []Skip
	Pages   int
}

func (r *Result) skip(src types.Source, ref string, err error) {
	r.Skipped = append(r.Skipped, Skip{Source: src, Ref: ref, Reason: err.Error()})
}

// Event reports pagination progress.
type Event struct {
	Source  types.Source
	Page    int
	Count   int
	Target  int
	Percent float64
}

// ProgressFunc receives an Event after each page.
type ProgressFunc func(Event)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Common holds the collaborators every adapter shares. The zero value is
// usable: it sends requests with http.DefaultClient, logs nothing, reports
// no progress and sleeps for real.
type Common struct {
	Client    *http.Client
	UserAgent string

	// Limiter, when set, is consulted before every outbound request.
	Limiter *httputil.Limiter

	// Robots and Cache apply to landing-page scrapes only. Both optional.
	Robots *scrape.RobotsChecker
	Cache  *scrape.Cache

	Logger   *slog.Logger
	Progress ProgressFunc
	Sleep    SleepFunc
}

func (c *Common) client() *http.Client {
	if c.Client == nil {
		return http.DefaultClient
	}
	return c.Client
}

func (c *Common) log() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c *Common) sleep(ctx context.Context, d time.Duration) error {
	if c.Sleep == nil {
		return Sleep(ctx, d)
	}
	return c.Sleep(ctx, d)
}

func (c *Common) emit(src types.Source, page, count, target int) {
	if c.Progress == nil {
		return
	}
	ev := Event{Source: src, Page: page, Count: count, Target: target}
	if target > 0 {
		ev.Percent = float64(count) / float64(target) * 100
	}
	c.Progress(ev)
}

// getJSON issues a single GET and decodes a JSON body into v. Non-2xx
// responses yield a *httputil.StatusError.
func (c *Common) getJSON(ctx context.Context, rawURL string, header http.Header, v any) error {
	if err := c.Limiter.Wait(ctx, rawURL); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vals := range header {
		req.Header[k] = vals
	}

	resp, err := c.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// jitter returns a uniformly random duration in [lo, hi].
func jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

// joinTokens splits every keyword on whitespace and joins all tokens with
// "+", e.g. ["inflation", "labor market"] yields "inflation+labor+market".
func joinTokens(keywords []string) string {
	var words []string
	for _, kw := range keywords {
		words = append(words, strings.Fields(kw)...)
	}
	return strings.Join(words, "+")
}
