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

// NBER endpoints. Declared as vars so tests can substitute an httptest server.
var (
	nberSearchBase = "https://www.nber.org/api/v1/search"
	nberSiteBase   = "https://www.nber.org"
)

const (
	nberPageSize     = 100
	nberWorkingPaper = "working_paper"
)

// NBER pacing: a short pause between result pages and a longer one after
// each landing-page scrape.
var (
	nberPageDelay     = [2]time.Duration{200 * time.Millisecond, 500 * time.Millisecond}
	nberAbstractDelay = [2]time.Duration{1 * time.Second, 3 * time.Second}
)

// NBER pages through the NBER search API, keeping working papers only.
type NBER struct {
	Common

	// Scraper fetches landing pages for full abstracts. When nil a
	// single-attempt fetcher over Common.Client is used.
	Scraper *scrape.Fetcher
}

// Name returns the source tag.
func (n *NBER) Name() types.Source { return types.SourceNBER }

// Fetch pages through search results until req.MaxArticles working papers
// are collected, the declared total is exhausted, or a page comes back
// empty. A non-2xx search response is fatal. Results whose author markup or
// landing page cannot be parsed are skipped and reported in Result.Skipped.
func (n *NBER) Fetch(ctx context.Context, req Request) (Result, error) {
	var res Result
	if req.MaxArticles <= 0 {
		return res, nil
	}

	query := joinTokens(req.Keywords)
	total := 0

	for page := 1; ; page++ {
		data, err := n.searchPage(ctx, query, page)
		if err != nil {
			return Result{}, fmt.Errorf("NBER search page %d: %w", page, err)
		}
		res.Pages++

		if page == 1 {
			total = int(data.TotalResults)
			n.log().Info("NBER search", "query", query, "total_results", total)
		}
		if len(data.Results) == 0 {
			n.log().Info("NBER results exhausted", "page", page, "count", len(res.Records))
			break
		}

		for i, raw := range data.Results {
			if len(res.Records) >= req.MaxArticles {
				break
			}
			var item nberResult
			if err := json.Unmarshal(raw, &item); err != nil {
				ref := fmt.Sprintf("page %d result %d", page, i+1)
				n.log().Warn("skipping malformed NBER result", "ref", ref, "err", err)
				res.skip(types.SourceNBER, ref, err)
				continue
			}
			if item.Type != nberWorkingPaper {
				continue
			}

			rec, err := nberRecord(item)
			if err != nil {
				n.log().Warn("skipping NBER result", "url", item.URL, "err", err)
				res.skip(types.SourceNBER, item.URL, err)
				continue
			}

			if req.LoadFullAbstract {
				abstract, err := scrape.Extract(ctx, n.scraper(), rec.URL, scrape.NBERAbstract)
				if err != nil {
					if ctx.Err() != nil {
						return Result{}, ctx.Err()
					}
					n.log().Warn("skipping NBER result", "url", rec.URL, "err", err)
					res.skip(types.SourceNBER, rec.URL, err)
					continue
				}
				rec.FullAbstract = abstract
				if err := n.sleep(ctx, jitter(nberAbstractDelay[0], nberAbstractDelay[1])); err != nil {
					return Result{}, err
				}
			}

			res.Records = append(res.Records, rec)
		}

		target := req.MaxArticles
		if total > 0 && total < target {
			target = total
		}
		n.emit(types.SourceNBER, page, len(res.Records), target)

		if len(res.Records) >= req.MaxArticles {
			break
		}
		if total > 0 && page*nberPageSize >= total {
			break
		}
		if err := n.sleep(ctx, jitter(nberPageDelay[0], nberPageDelay[1])); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}

func (n *NBER) searchPage(ctx context.Context, query string, page int) (*nberResponse, error) {
	params := url.Values{
		"q":       {query},
		"page":    {strconv.Itoa(page)},
		"perPage": {strconv.Itoa(nberPageSize)},
		"sort":    {"relevance"},
	}
	header := http.Header{}
	header.Set("User-Agent", n.UserAgent)

	var data nberResponse
	if err := n.getJSON(ctx, nberSearchBase+"?"+params.Encode(), header, &data); err != nil {
		return nil, err
	}
	return &data, nil
}

func (n *NBER) scraper() *scrape.Fetcher {
	if n.Scraper == nil {
		n.Scraper = &scrape.Fetcher{
			Client:  httputil.NoRetry(n.client()),
			Header:  nberPageHeaders(n.UserAgent),
			Limiter: n.Limiter,
			Robots:  n.Robots,
			Cache:   n.Cache,
		}
	}
	return n.Scraper
}

func nberPageHeaders(userAgent string) http.Header {
	h := scrape.BrowserHeaders(userAgent)
	h.Set("Accept-Language", "en-US,en;q=0.9")
	return h
}

// nberRecord normalizes one working-paper result. The id is the trailing
// path segment of the result URL; every author fragment must contain a link.
func nberRecord(item nberResult) (types.Record, error) {
	authors := make([]string, 0, len(item.Authors))
	for _, frag := range item.Authors {
		name, err := scrape.ParseAuthorLink(frag)
		if err != nil {
			return types.Record{}, err
		}
		authors = append(authors, name)
	}

	id := item.URL
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	if id == "" {
		return types.Record{}, errors.New("result has no paper id in url")
	}

	return types.Record{
		Title:           item.Title,
		Authors:         authors,
		Abstract:        item.Abstract,
		PublicationDate: item.DisplayDate,
		URL:             nberSiteBase + item.URL,
		PDFURL:          fmt.Sprintf("%s/system/files/working_papers/%s/%s.pdf", nberSiteBase, id, id),
		Source:          types.SourceNBER,
		ID:              id,
	}, nil
}

// NBER search API JSON structures. Results are decoded one at a time so a
// malformed entry is skipped without losing the page.
type nberResponse struct {
	Results      []json.RawMessage `json:"results"`
	TotalResults flexInt           `json:"totalResults"`
}

type nberResult struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	URL         string   `json:"url"`
	Abstract    string   `json:"abstract"`
	DisplayDate string   `json:"displaydate"`
}
