// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/econ-harvester/internal/httputil"
	"github.com/pdiddy/econ-harvester/internal/scrape"
	"github.com/pdiddy/econ-harvester/pkg/types"
)

// SSRN endpoints. Declared as vars so tests can substitute an httptest server.
var (
	ssrnSearchBase = "https://api.ssrn.com/papers/v1/papers/search/advanced"
	ssrnPaperBase  = "https://papers.ssrn.com/sol3/papers.cfm"
)

// DefaultScrapeTimeout bounds one SSRN landing-page request.
const DefaultScrapeTimeout = 30 * time.Second

// SSRN pacing. The search throttle is fixed; abstract scrapes wait a random
// interval first and back off for ssrnRateLimitPause on HTTP 429.
var (
	ssrnSearchDelay    = 1 * time.Second
	ssrnAbstractDelay  = [2]time.Duration{2 * time.Second, 6 * time.Second}
	ssrnRateLimitPause = 30 * time.Second
)

// SSRN pages through the SSRN fuzzy full-text search API.
type SSRN struct {
	Common

	// Cookie is sent with landing-page requests to reuse an authenticated
	// session. Optional.
	Cookie string

	// ScrapeTimeout bounds each landing-page request (default 30s).
	ScrapeTimeout time.Duration

	// Scraper fetches landing pages. When nil a fetcher over a RetryClient
	// with ScrapeTimeout is built on first use.
	Scraper *scrape.Fetcher
}

// Name returns the source tag.
func (s *SSRN) Name() types.Source { return types.SourceSSRN }

// Fetch pages through search results until req.MaxArticles papers are
// collected or a page comes back empty. Every search call is followed by a
// fixed one-second pause. A non-2xx search response is fatal.
//
// With req.LoadFullAbstract each landing page is scraped for the full
// abstract and keywords. An HTTP 429 there pauses for 30 seconds and keeps
// the record without those fields; any other scrape failure skips the
// record.
func (s *SSRN) Fetch(ctx context.Context, req Request) (Result, error) {
	var res Result
	if req.MaxArticles <= 0 {
		return res, nil
	}

	query := joinTokens(req.Keywords)

	for page := 1; ; page++ {
		data, err := s.searchPage(ctx, query, page)
		if err != nil {
			return Result{}, fmt.Errorf("SSRN search page %d: %w", page, err)
		}
		res.Pages++

		if len(data.Papers) == 0 {
			s.log().Info("SSRN results exhausted", "page", page, "count", len(res.Records))
			break
		}

		for i, raw := range data.Papers {
			if len(res.Records) >= req.MaxArticles {
				break
			}
			var paper ssrnPaper
			if err := json.Unmarshal(raw, &paper); err != nil {
				ref := fmt.Sprintf("page %d paper %d", page, i+1)
				s.log().Warn("skipping malformed SSRN paper", "ref", ref, "err", err)
				res.skip(types.SourceSSRN, ref, err)
				continue
			}

			rec, err := ssrnRecord(paper)
			if err != nil {
				s.log().Warn("skipping SSRN paper", "title", paper.Title, "err", err)
				res.skip(types.SourceSSRN, paper.Title, err)
				continue
			}

			if req.LoadFullAbstract {
				meta, err := s.metadata(ctx, rec.URL)
				if err != nil {
					if ctx.Err() != nil {
						return Result{}, ctx.Err()
					}
					s.log().Warn("skipping SSRN paper", "id", rec.ID, "err", err)
					res.skip(types.SourceSSRN, rec.ID, err)
					continue
				}
				if meta != nil {
					rec.FullAbstract = meta.FullAbstract
					rec.Keywords = meta.Keywords
				}
			}

			res.Records = append(res.Records, rec)
		}

		s.emit(types.SourceSSRN, page, len(res.Records), req.MaxArticles)
		if len(res.Records) >= req.MaxArticles {
			break
		}
	}
	return res, nil
}

// searchPage fetches one result page and then pauses for the fixed search
// throttle, whether or not the call succeeded.
func (s *SSRN) searchPage(ctx context.Context, query string, page int) (*ssrnResponse, error) {
	params := url.Values{
		"text":        {query},
		"text_fields": {"title-abstract-keywords"},
		"search_mode": {"fuzzy"},
		"sort_by":     {""},
		"page":        {strconv.Itoa(page)},
		"authors":     {""},
		"date":        {"all_time"},
	}

	var data ssrnResponse
	err := s.getJSON(ctx, ssrnSearchBase+"?"+params.Encode(), ssrnSearchHeaders(s.UserAgent), &data)
	if sleepErr := s.sleep(ctx, ssrnSearchDelay); sleepErr != nil && err == nil {
		err = sleepErr
	}
	if err != nil {
		return nil, err
	}
	return &data, nil
}

// metadata scrapes one landing page. It returns (nil, nil) when the page is
// rate limited.
func (s *SSRN) metadata(ctx context.Context, pageURL string) (*scrape.SSRNMeta, error) {
	if err := s.sleep(ctx, jitter(ssrnAbstractDelay[0], ssrnAbstractDelay[1])); err != nil {
		return nil, err
	}

	meta, err := scrape.Extract(ctx, s.scraper(), pageURL, scrape.SSRNMetadata)
	if httputil.IsStatus(err, http.StatusTooManyRequests) {
		s.log().Warn("SSRN rate limited, pausing", "url", pageURL, "pause", ssrnRateLimitPause)
		if err := s.sleep(ctx, ssrnRateLimitPause); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *SSRN) scraper() *scrape.Fetcher {
	if s.Scraper == nil {
		timeout := s.ScrapeTimeout
		if timeout <= 0 {
			timeout = DefaultScrapeTimeout
		}
		client := &http.Client{Timeout: timeout}
		if s.Client != nil {
			client.Transport = s.Client.Transport
			client.Jar = s.Client.Jar
		}

		header := scrape.BrowserHeaders(s.UserAgent)
		if s.Cookie != "" {
			header.Set("Cookie", s.Cookie)
		}
		s.Scraper = &scrape.Fetcher{
			Client:  httputil.NewRetryClient(client),
			Header:  header,
			Limiter: s.Limiter,
			Robots:  s.Robots,
			Cache:   s.Cache,
		}
	}
	return s.Scraper
}

func ssrnSearchHeaders(userAgent string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", "en-US,en;q=0.9")
	h.Set("Referer", "https://www.ssrn.com/")
	h.Set("Origin", "https://www.ssrn.com")
	return h
}

// SSRNPaperURL returns the abstract page for an SSRN paper id.
func SSRNPaperURL(id string) string {
	return ssrnPaperBase + "?" + url.Values{"abstract_id": {id}}.Encode()
}

// ssrnRecord normalizes one search hit, stripping highlight markup from the
// title and joined snippets.
func ssrnRecord(p ssrnPaper) (types.Record, error) {
	id := strings.TrimSpace(string(p.ID))
	if id == "" {
		return types.Record{}, errors.New("paper has no id")
	}

	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		authors = append(authors, a.FullName)
	}

	return types.Record{
		Title:           scrape.StripHighlight(p.Title),
		Authors:         authors,
		Abstract:        scrape.StripHighlight(strings.Join(p.Snippets, " ")),
		PublicationDate: p.ApprovedDate,
		URL:             SSRNPaperURL(id),
		Source:          types.SourceSSRN,
		ID:              id,
	}, nil
}

// SSRN search API JSON structures. Papers are decoded one at a time so a
// malformed entry is skipped without losing the page.
type ssrnResponse struct {
	Papers []json.RawMessage `json:"papers"`
}

type ssrnPaper struct {
	ID           flexString   `json:"id"`
	Title        string       `json:"title"`
	Authors      []ssrnAuthor `json:"authors"`
	Snippets     []string     `json:"snippets"`
	ApprovedDate string       `json:"approved_date"`
}

type ssrnAuthor struct {
	FullName string `json:"full_name"`
}
