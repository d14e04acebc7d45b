// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/econ-harvester/pkg/types"
)

const sampleArxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title type="html">ArXiv Query</title>
  <id>http://arxiv.org/api/abc</id>
  <updated>2024-05-01T00:00:00-04:00</updated>
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <updated>2023-01-18T10:00:00Z</updated>
    <published>2023-01-17T18:59:59Z</published>
    <title>
      Inflation Expectations and the Labor Market
    </title>
    <summary>
      We study how inflation expectations shape wage bargaining.
    </summary>
    <author><name>Jane Doe</name></author>
    <author><name>John Roe</name></author>
    <category term="econ.GN" scheme="http://arxiv.org/schemas/atom"/>
    <category term="q-fin.EC" scheme="http://arxiv.org/schemas/atom"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2402.00001v2</id>
    <published>2024-02-01T00:00:00Z</published>
    <title>Labor Market Search</title>
  </entry>
</feed>`

func arxivServer(t *testing.T, status int, body string, hits *int32, lastQuery *url.Values) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		if lastQuery != nil {
			*lastQuery = r.URL.Query()
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	swap(t, &arxivAPIBase, ts.URL)
	return ts
}

func TestBuildArxivQuery(t *testing.T) {
	got := buildArxivQuery([]string{"inflation", "labor market"})
	assert.Equal(t, `all:economics AND (all:"inflation" OR all:"labor market")`, got)
	assert.Contains(t, got, `all:"inflation"`)
	assert.Contains(t, got, `all:"labor market"`)

	assert.Equal(t, `all:economics AND (all:"tariffs")`, buildArxivQuery([]string{"tariffs"}))
	assert.Equal(t, "all:economics", buildArxivQuery(nil))
}

func TestArxivPDFURL(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "http://arxiv.org/pdf/2301.07041v1.pdf"},
		{"http://arxiv.org/abs/1706.03762", "http://arxiv.org/pdf/1706.03762.pdf"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, arxivPDFURL(tt.id))
		})
	}
}

func TestArxivFetch(t *testing.T) {
	var q url.Values
	ts := arxivServer(t, http.StatusOK, sampleArxivFeed, nil, &q)

	a := &Arxiv{Common: Common{Client: ts.Client(), UserAgent: "test/0.1"}}
	res, err := a.Fetch(context.Background(), Request{Keywords: []string{"inflation", "labor market"}, MaxArticles: 10})
	require.NoError(t, err)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Pages)
	assert.Empty(t, res.Skipped)

	assert.Equal(t, `all:economics AND (all:"inflation" OR all:"labor market")`, q.Get("search_query"))
	assert.Equal(t, "0", q.Get("start"))
	assert.Equal(t, "10", q.Get("max_results"))

	r := res.Records[0]
	assert.Equal(t, "Inflation Expectations and the Labor Market", r.Title)
	assert.Equal(t, []string{"Jane Doe", "John Roe"}, r.Authors)
	assert.Equal(t, "We study how inflation expectations shape wage bargaining.", r.FullAbstract)
	assert.Empty(t, r.Abstract)
	assert.Equal(t, "2023-01-17T18:59:59Z", r.PublicationDate)
	assert.Equal(t, "http://arxiv.org/abs/2301.07041v1", r.URL)
	assert.Equal(t, "http://arxiv.org/abs/2301.07041v1", r.ID)
	assert.Equal(t, "http://arxiv.org/pdf/2301.07041v1.pdf", r.PDFURL)
	assert.Equal(t, []string{"econ.GN", "q-fin.EC"}, r.Categories)
	assert.Equal(t, types.SourceArxiv, r.Source)

	// Missing sub-elements degrade to empty values.
	r2 := res.Records[1]
	assert.Equal(t, "Labor Market Search", r2.Title)
	assert.Empty(t, r2.FullAbstract)
	assert.NotNil(t, r2.Authors)
	assert.Empty(t, r2.Authors)
	assert.Empty(t, r2.Categories)
	assert.Equal(t, types.SourceArxiv, r2.Source)
}

func TestArxivFetch_Idempotent(t *testing.T) {
	ts := arxivServer(t, http.StatusOK, sampleArxivFeed, nil, nil)
	a := &Arxiv{Common: Common{Client: ts.Client()}}
	req := Request{Keywords: []string{"inflation"}, MaxArticles: 5}

	first, err := a.Fetch(context.Background(), req)
	require.NoError(t, err)
	second, err := a.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, first.Records, second.Records)
}

func TestArxivFetch_NeverExceedsBudget(t *testing.T) {
	ts := arxivServer(t, http.StatusOK, sampleArxivFeed, nil, nil)
	a := &Arxiv{Common: Common{Client: ts.Client()}}

	res, err := a.Fetch(context.Background(), Request{Keywords: []string{"inflation"}, MaxArticles: 1})
	require.NoError(t, err)
	assert.Len(t, res.Records, 1)
}

func TestArxivFetch_ZeroBudgetSendsNoRequest(t *testing.T) {
	var hits int32
	ts := arxivServer(t, http.StatusOK, sampleArxivFeed, &hits, nil)
	a := &Arxiv{Common: Common{Client: ts.Client()}}

	res, err := a.Fetch(context.Background(), Request{Keywords: []string{"inflation"}, MaxArticles: 0})
	require.NoError(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits))
}

func TestArxivFetch_MalformedXML(t *testing.T) {
	ts := arxivServer(t, http.StatusOK, `<html><body>Service unavailable</body></html>`, nil, nil)
	a := &Arxiv{Common: Common{Client: ts.Client()}}

	_, err := a.Fetch(context.Background(), Request{Keywords: []string{"inflation"}, MaxArticles: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing arXiv response")
}

func TestArxivFetch_HTTPError(t *testing.T) {
	var hits int32
	ts := arxivServer(t, http.StatusServiceUnavailable, "", &hits, nil)
	a := &Arxiv{Common: Common{Client: ts.Client()}}

	_, err := a.Fetch(context.Background(), Request{Keywords: []string{"inflation"}, MaxArticles: 3})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "HTTP 503"))
	// Single shot: no retry.
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestArxivFetch_ReportsProgress(t *testing.T) {
	ts := arxivServer(t, http.StatusOK, sampleArxivFeed, nil, nil)
	var log progressLog
	a := &Arxiv{Common: Common{Client: ts.Client(), Progress: log.record}}

	_, err := a.Fetch(context.Background(), Request{Keywords: []string{"inflation"}, MaxArticles: 4})
	require.NoError(t, err)
	require.Len(t, log.events, 1)
	assert.Equal(t, Event{Source: types.SourceArxiv, Page: 1, Count: 2, Target: 4, Percent: 50}, log.events[0])
}
