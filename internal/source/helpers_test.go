// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pdiddy/econ-harvester/internal/httputil"
)

func init() {
	// Keep landing-page retries fast.
	httputil.RetryBaseDelay = time.Millisecond
}

// sleepRecorder replaces real sleeps and remembers every requested pause.
type sleepRecorder struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses = append(s.pauses, d)
	return ctx.Err()
}

func (s *sleepRecorder) all() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.pauses...)
}

func (s *sleepRecorder) count(d time.Duration) int {
	n := 0
	for _, p := range s.all() {
		if p == d {
			n++
		}
	}
	return n
}

// swap points an endpoint var at a test server for the duration of t.
func swap(t *testing.T, target *string, value string) {
	t.Helper()
	old := *target
	*target = value
	t.Cleanup(func() { *target = old })
}

type progressLog struct {
	mu     sync.Mutex
	events []Event
}

func (p *progressLog) record(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}
