// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the econ-harvester pipeline:
// the normalized Record every source adapter produces, the Source tag, and the
// configuration consumed by the harvest stage.
package types

// Source identifies the remote service a Record was harvested from.
type Source string

const (
	SourceArxiv Source = "arxiv"
	SourceNBER  Source = "nber"
	SourceSSRN  Source = "ssrn"
)

// Sources lists every known source in orchestration order.
var Sources = []Source{SourceNBER, SourceArxiv, SourceSSRN}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	switch s {
	case SourceArxiv, SourceNBER, SourceSSRN:
		return true
	}
	return false
}

func (s Source) String() string { return string(s) }

// Record is one normalized article-metadata entry produced by a source adapter.
// Title and Source are always serialized, even when empty. Records from
// different sources are never merged: the same article found twice yields two
// Records.
type Record struct {
	// Title is the article title as the source reports it.
	Title string `json:"title" yaml:"title"`

	// Authors lists author display names in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Abstract is the source-provided snippet or summary; may be short.
	Abstract string `json:"abstract" yaml:"abstract"`

	// FullAbstract is fetched separately from the landing page (arXiv
	// supplies it inline).
	FullAbstract string `json:"full_abstract,omitempty" yaml:"full_abstract,omitempty"`

	// PublicationDate is passed through verbatim in the source's own format.
	PublicationDate string `json:"publication_date" yaml:"publication_date"`

	// URL is the canonical landing page.
	URL string `json:"url" yaml:"url"`

	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// Keywords are author keywords scraped from the landing page (SSRN only).
	Keywords []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`

	// Categories are subject category terms (arXiv only).
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	Source Source `json:"source" yaml:"source"`

	// ID is the source-native identifier.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
}
