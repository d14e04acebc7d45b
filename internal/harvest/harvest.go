// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest splits a record budget across the NBER, arXiv and SSRN
// adapters, runs them in order, and concatenates their output.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdiddy/econ-harvester/internal/source"
	"github.com/pdiddy/econ-harvester/pkg/types"
)

// Budget is the per-source share of a total record budget.
type Budget struct {
	NBER  int `json:"nber"`
	Arxiv int `json:"arxiv"`
	SSRN  int `json:"ssrn"`
}

// Plan splits total 50/10/40 across NBER, arXiv and SSRN by integer floor.
// The shares may sum to less than total; the remainder is dropped.
func Plan(total int) Budget {
	if total <= 0 {
		return Budget{}
	}
	return Budget{
		NBER:  total * 5 / 10,
		Arxiv: total * 1 / 10,
		SSRN:  total * 4 / 10,
	}
}

// For returns the share allotted to src.
func (b Budget) For(src types.Source) int {
	switch src {
	case types.SourceNBER:
		return b.NBER
	case types.SourceArxiv:
		return b.Arxiv
	case types.SourceSSRN:
		return b.SSRN
	}
	return 0
}

// Total is the sum of the three shares.
func (b Budget) Total() int { return b.NBER + b.Arxiv + b.SSRN }

// Request holds the parameters of one harvest.
type Request struct {
	Keywords         []string
	MaxArticles      int
	LoadFullAbstract bool

	// OutputPath, when set, receives the combined records as a JSON array.
	// A directory gets an articles.json inside it.
	OutputPath string
}

// Output is the outcome of Run.
type Output struct {
	Records []types.Record
	Budget  Budget

	// Results holds each completed adapter's result, including skips.
	Results map[types.Source]source.Result

	// Written is the artifact path, empty when nothing was persisted.
	Written string
}

// Skipped returns the skips of every completed adapter in run order.
func (o Output) Skipped() []source.Skip {
	var all []source.Skip
	for _, src := range types.Sources {
		all = append(all, o.Results[src].Skipped...)
	}
	return all
}

// SourceError reports the adapter that aborted a harvest.
type SourceError struct {
	Source types.Source
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// ErrNoAdapter is wrapped in a SourceError when a Harvester field is nil.
var ErrNoAdapter = errors.New("adapter not configured")

// Harvester runs the three adapters in sequence.
type Harvester struct {
	NBER  source.Adapter
	Arxiv source.Adapter
	SSRN  source.Adapter

	// Progress, when set, receives one Event per finished adapter.
	Progress source.ProgressFunc
	Logger   *slog.Logger
}

// Run fetches Plan(req.MaxArticles) records from NBER, then arXiv, then
// SSRN and returns them concatenated in that order.
//
// If an adapter fails, Run stops and returns the records of the adapters
// that already completed together with a *SourceError. The artifact is
// written only when all three adapters succeed; a write failure is fatal.
func (h *Harvester) Run(ctx context.Context, req Request) (Output, error) {
	out := Output{
		Budget:  Plan(req.MaxArticles),
		Results: make(map[types.Source]source.Result, len(types.Sources)),
	}
	log := h.log()
	log.Info("harvest started", "keywords", req.Keywords, "max_articles", req.MaxArticles,
		"nber", out.Budget.NBER, "arxiv", out.Budget.Arxiv, "ssrn", out.Budget.SSRN)

	for _, src := range types.Sources {
		adapter := h.adapter(src)
		if adapter == nil {
			return out, &SourceError{Source: src, Err: ErrNoAdapter}
		}

		share := out.Budget.For(src)
		res, err := adapter.Fetch(ctx, source.Request{
			Keywords:         req.Keywords,
			MaxArticles:      share,
			LoadFullAbstract: req.LoadFullAbstract,
		})
		if err != nil {
			log.Error("source failed", "source", src, "err", err)
			return out, &SourceError{Source: src, Err: err}
		}

		out.Results[src] = res
		out.Records = append(out.Records, res.Records...)
		log.Info("source finished", "source", src, "records", len(res.Records),
			"skipped", len(res.Skipped), "pages", res.Pages)
		h.report(src, res, share)
	}

	if req.OutputPath != "" {
		path, err := WriteRecords(req.OutputPath, out.Records)
		if err != nil {
			return out, err
		}
		out.Written = path
		log.Info("records written", "path", path, "count", len(out.Records))
	}
	return out, nil
}

func (h *Harvester) adapter(src types.Source) source.Adapter {
	switch src {
	case types.SourceNBER:
		return h.NBER
	case types.SourceArxiv:
		return h.Arxiv
	case types.SourceSSRN:
		return h.SSRN
	}
	return nil
}

func (h *Harvester) report(src types.Source, res source.Result, target int) {
	if h.Progress == nil {
		return
	}
	ev := source.Event{Source: src, Page: res.Pages, Count: len(res.Records), Target: target}
	if target > 0 {
		ev.Percent = float64(ev.Count) / float64(target) * 100
	}
	h.Progress(ev)
}

func (h *Harvester) log() *slog.Logger {
	if h.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return h.Logger
}
