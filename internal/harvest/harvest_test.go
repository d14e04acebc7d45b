// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/econ-harvester/internal/source"
	"github.com/pdiddy/econ-harvester/pkg/types"
)

// fakeAdapter returns up to req.MaxArticles generated records and remembers
// the requests it saw.
type fakeAdapter struct {
	src       types.Source
	available int
	err       error
	calls     *[]types.Source
	got       []source.Request
}

func (f *fakeAdapter) Name() types.Source { return f.src }

func (f *fakeAdapter) Fetch(_ context.Context, req source.Request) (source.Result, error) {
	f.got = append(f.got, req)
	if f.calls != nil {
		*f.calls = append(*f.calls, f.src)
	}
	if f.err != nil {
		return source.Result{}, f.err
	}
	n := min(req.MaxArticles, f.available)
	res := source.Result{Pages: 1}
	for i := range n {
		res.Records = append(res.Records, types.Record{
			Title:  fmt.Sprintf("%s paper %d", f.src, i+1),
			URL:    fmt.Sprintf("https://example.org/%s/%d", f.src, i+1),
			Source: f.src,
		})
	}
	return res, nil
}

func newHarvester(calls *[]types.Source) (*Harvester, map[types.Source]*fakeAdapter) {
	fakes := map[types.Source]*fakeAdapter{}
	for _, src := range types.Sources {
		fakes[src] = &fakeAdapter{src: src, available: 1000, calls: calls}
	}
	return &Harvester{
		NBER:  fakes[types.SourceNBER],
		Arxiv: fakes[types.SourceArxiv],
		SSRN:  fakes[types.SourceSSRN],
	}, fakes
}

func TestPlan(t *testing.T) {
	tests := []struct {
		total int
		want  Budget
	}{
		{100, Budget{NBER: 50, Arxiv: 10, SSRN: 40}},
		{7, Budget{NBER: 3, Arxiv: 0, SSRN: 2}},
		{1, Budget{}},
		{15, Budget{NBER: 7, Arxiv: 1, SSRN: 6}},
		{0, Budget{}},
		{-5, Budget{}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.total), func(t *testing.T) {
			got := Plan(tt.total)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got.Total(), max(tt.total, 0))
		})
	}
}

func TestBudgetFor(t *testing.T) {
	b := Plan(100)
	assert.Equal(t, 50, b.For(types.SourceNBER))
	assert.Equal(t, 10, b.For(types.SourceArxiv))
	assert.Equal(t, 40, b.For(types.SourceSSRN))
	assert.Equal(t, 0, b.For("other"))
}

func TestRunOrderAndBudget(t *testing.T) {
	var calls []types.Source
	h, fakes := newHarvester(&calls)

	out, err := h.Run(context.Background(), Request{Keywords: []string{"inflation"}, MaxArticles: 100, LoadFullAbstract: true})
	require.NoError(t, err)

	assert.Equal(t, []types.Source{types.SourceNBER, types.SourceArxiv, types.SourceSSRN}, calls)
	assert.Equal(t, 50, fakes[types.SourceNBER].got[0].MaxArticles)
	assert.Equal(t, 10, fakes[types.SourceArxiv].got[0].MaxArticles)
	assert.Equal(t, 40, fakes[types.SourceSSRN].got[0].MaxArticles)
	assert.True(t, fakes[types.SourceSSRN].got[0].LoadFullAbstract)
	assert.Equal(t, []string{"inflation"}, fakes[types.SourceNBER].got[0].Keywords)

	require.Len(t, out.Records, 100)
	assert.Equal(t, types.SourceNBER, out.Records[0].Source)
	assert.Equal(t, types.SourceArxiv, out.Records[50].Source)
	assert.Equal(t, types.SourceSSRN, out.Records[60].Source)
	assert.Equal(t, types.SourceSSRN, out.Records[99].Source)
	assert.Empty(t, out.Written)
}

func TestRunRecordsCarryValidSource(t *testing.T) {
	h, _ := newHarvester(nil)
	out, err := h.Run(context.Background(), Request{MaxArticles: 20})
	require.NoError(t, err)
	for _, r := range out.Records {
		assert.True(t, r.Source.Valid(), "record %q has source %q", r.Title, r.Source)
	}
}

func TestRunNeverExceedsBudget(t *testing.T) {
	h, _ := newHarvester(nil)
	out, err := h.Run(context.Background(), Request{MaxArticles: 7})
	require.NoError(t, err)
	assert.Len(t, out.Records, 5)
	assert.LessOrEqual(t, len(out.Results[types.SourceNBER].Records), 3)
	assert.Empty(t, out.Results[types.SourceArxiv].Records)
}

func TestRunExhaustionIsNotAnError(t *testing.T) {
	h, fakes := newHarvester(nil)
	fakes[types.SourceNBER].available = 2

	out, err := h.Run(context.Background(), Request{MaxArticles: 100})
	require.NoError(t, err)
	assert.Len(t, out.Records, 2+10+40)
}

func TestRunPartialFailure(t *testing.T) {
	var calls []types.Source
	h, fakes := newHarvester(&calls)
	boom := errors.New("search page 1: HTTP 503")
	fakes[types.SourceArxiv].err = boom

	dir := t.TempDir()
	out, err := h.Run(context.Background(), Request{MaxArticles: 100, OutputPath: dir})
	require.Error(t, err)

	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.SourceArxiv, se.Source)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "arxiv")

	// NBER completed, SSRN never ran.
	assert.Len(t, out.Records, 50)
	assert.Equal(t, []types.Source{types.SourceNBER, types.SourceArxiv}, calls)
	_, ran := out.Results[types.SourceSSRN]
	assert.False(t, ran)

	// Nothing persisted on failure.
	_, statErr := os.Stat(filepath.Join(dir, ArtifactName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunMissingAdapter(t *testing.T) {
	h, _ := newHarvester(nil)
	h.SSRN = nil

	_, err := h.Run(context.Background(), Request{MaxArticles: 10})
	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, types.SourceSSRN, se.Source)
	assert.ErrorIs(t, err, ErrNoAdapter)
}

func TestRunPersists(t *testing.T) {
	h, _ := newHarvester(nil)
	dir := t.TempDir()

	out, err := h.Run(context.Background(), Request{MaxArticles: 10, OutputPath: dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ArtifactName), out.Written)

	loaded, err := ReadRecords(out.Written)
	require.NoError(t, err)
	assert.Equal(t, out.Records, loaded)
}

func TestRunPersistFailureIsFatal(t *testing.T) {
	h, _ := newHarvester(nil)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := h.Run(context.Background(), Request{MaxArticles: 10, OutputPath: filepath.Join(blocker, "out.json")})
	require.Error(t, err)
	var se *SourceError
	assert.False(t, errors.As(err, &se))
}

func TestRunReportsProgressPerSource(t *testing.T) {
	var events []source.Event
	h, _ := newHarvester(nil)
	h.Progress = func(ev source.Event) { events = append(events, ev) }

	_, err := h.Run(context.Background(), Request{MaxArticles: 100})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, source.Event{Source: types.SourceNBER, Page: 1, Count: 50, Target: 50, Percent: 100}, events[0])
	assert.Equal(t, types.SourceArxiv, events[1].Source)
	assert.Equal(t, types.SourceSSRN, events[2].Source)
}

func TestOutputSkipped(t *testing.T) {
	out := Output{Results: map[types.Source]source.Result{
		types.SourceSSRN: {Skipped: []source.Skip{{Source: types.SourceSSRN, Ref: "1", Reason: "404"}}},
		types.SourceNBER: {Skipped: []source.Skip{{Source: types.SourceNBER, Ref: "/papers/w1", Reason: "bad author"}}},
	}}
	skipped := out.Skipped()
	require.Len(t, skipped, 2)
	assert.Equal(t, types.SourceNBER, skipped[0].Source)
	assert.Equal(t, types.SourceSSRN, skipped[1].Source)
}
