// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed/atom"

	"github.com/pdiddy/econ-harvester/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "http://export.arxiv.org/api/query"

// arxivDomainTerm restricts every arXiv query to economics papers.
const arxivDomainTerm = "economics"

// Arxiv queries the arXiv Atom API. It issues exactly one request per call:
// no pagination and no retry.
type Arxiv struct {
	Common
}

// Name returns the source tag.
func (a *Arxiv) Name() types.Source { return types.SourceArxiv }

// Fetch returns at most req.MaxArticles entries matching any keyword.
// Transport errors, non-200 responses and malformed XML fail the call;
// entries with missing sub-elements degrade to empty fields.
func (a *Arxiv) Fetch(ctx context.Context, req Request) (Result, error) {
	var res Result
	if req.MaxArticles <= 0 {
		return res, nil
	}

	params := url.Values{
		"search_query": {buildArxivQuery(req.Keywords)},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(req.MaxArticles)},
	}
	reqURL := arxivAPIBase + "?" + params.Encode()

	if err := a.Limiter.Wait(ctx, reqURL); err != nil {
		return Result{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("creating request: %w", err)
	}
	if a.UserAgent != "" {
		httpReq.Header.Set("User-Agent", a.UserAgent)
	}

	resp, err := a.client().Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	feed, err := (&atom.Parser{}).Parse(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("parsing arXiv response: %w", err)
	}
	res.Pages = 1

	for _, entry := range feed.Entries {
		if len(res.Records) >= req.MaxArticles {
			break
		}
		if entry == nil {
			continue
		}
		res.Records = append(res.Records, arxivRecord(entry))
	}

	a.log().Info("arXiv entries parsed", "count", len(res.Records), "requested", req.MaxArticles)
	a.emit(types.SourceArxiv, 1, len(res.Records), req.MaxArticles)
	return res, nil
}

// arxivRecord normalizes one Atom entry. The summary becomes the full
// abstract and the entry id doubles as the landing-page URL.
func arxivRecord(entry *atom.Entry) types.Record {
	r := types.Record{
		Title:           strings.TrimSpace(entry.Title),
		FullAbstract:    strings.TrimSpace(entry.Summary),
		PublicationDate: entry.Published,
		URL:             entry.ID,
		ID:              entry.ID,
		PDFURL:          arxivPDFURL(entry.ID),
		Authors:         make([]string, 0, len(entry.Authors)),
		Source:          types.SourceArxiv,
	}
	for _, a := range entry.Authors {
		if a == nil {
			continue
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			r.Authors = append(r.Authors, name)
		}
	}
	for _, c := range entry.Categories {
		if c != nil && c.Term != "" {
			r.Categories = append(r.Categories, c.Term)
		}
	}
	return r
}

// buildArxivQuery ANDs the economics domain term with an OR-group of the
// field-scoped, quoted keywords:
//
//	all:economics AND (all:"inflation" OR all:"labor market")
func buildArxivQuery(keywords []string) string {
	q := "all:" + arxivDomainTerm
	if len(keywords) == 0 {
		return q
	}
	scoped := make([]string, len(keywords))
	for i, kw := range keywords {
		scoped[i] = `all:"` + kw + `"`
	}
	return q + " AND (" + strings.Join(scoped, " OR ") + ")"
}

// arxivPDFURL derives the PDF address from an abstract URL
// (http://arxiv.org/abs/2301.07041v1 → http://arxiv.org/pdf/2301.07041v1.pdf).
func arxivPDFURL(id string) string {
	if id == "" {
		return ""
	}
	return strings.ReplaceAll(id, "abs", "pdf") + ".pdf"
}
