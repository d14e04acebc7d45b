// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape isolates the HTML extraction each source needs behind small
// functions, so selector changes stay local and testable without the
// pagination and retry logic of the adapters.
package scrape

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNotFound is returned when an expected element is missing from a page.
var ErrNotFound = errors.New("element not found")

const (
	nberAbstractSelector = "div.page-header__intro-inner"
	ssrnAbstractSelector = "div.abstract-text"
	keywordsMarker       = "Keywords:"
)

// ParseAuthorLink returns the text of the first link in an HTML fragment,
// e.g. `<a href="/people/jane_doe">Jane Doe</a>` yields "Jane Doe".
func ParseAuthorLink(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("parsing author fragment: %w", err)
	}
	link := doc.Find("a").First()
	if link.Length() == 0 {
		return "", fmt.Errorf("author fragment %q: %w", fragment, ErrNotFound)
	}
	return link.Text(), nil
}

// NBERAbstract extracts the full abstract from an NBER working paper page:
// the first paragraph of the intro block with newlines removed.
func NBERAbstract(doc *goquery.Document) (string, error) {
	p := doc.Find(nberAbstractSelector).First().Find("p").First()
	if p.Length() == 0 {
		return "", fmt.Errorf("NBER abstract %s p: %w", nberAbstractSelector, ErrNotFound)
	}
	return strings.TrimSpace(strings.ReplaceAll(p.Text(), "\n", "")), nil
}

// SSRNMeta holds the fields scraped from an SSRN abstract page.
type SSRNMeta struct {
	FullAbstract string
	Keywords     []string
}

// SSRNMetadata extracts the abstract and author keywords from an SSRN
// abstract page. The abstract is required; keywords are optional.
func SSRNMetadata(doc *goquery.Document) (SSRNMeta, error) {
	p := doc.Find(ssrnAbstractSelector).First().Find("p").First()
	if p.Length() == 0 {
		return SSRNMeta{}, fmt.Errorf("SSRN abstract %s p: %w", ssrnAbstractSelector, ErrNotFound)
	}
	meta := SSRNMeta{FullAbstract: strings.TrimSpace(p.Text())}

	doc.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(strings.ToLower(text), "keywords") {
			return true
		}
		meta.Keywords = splitKeywords(text)
		return false
	})
	return meta, nil
}

// splitKeywords takes the text after the "Keywords:" marker, if present, and
// splits it on commas.
func splitKeywords(text string) []string {
	if _, after, ok := strings.Cut(text, keywordsMarker); ok {
		text = after
	}
	parts := strings.Split(text, ",")
	keywords := make([]string, 0, len(parts))
	for _, kw := range parts {
		keywords = append(keywords, strings.TrimSpace(kw))
	}
	return keywords
}

// StripHighlight removes the <em> search-hit markup SSRN wraps around
// matched terms.
func StripHighlight(s string) string {
	return strings.NewReplacer("<em>", "", "</em>", "").Replace(s)
}
