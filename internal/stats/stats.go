// Package stats keeps a rolling window of bind pass outcomes.
package stats

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	at         time.Time
	durationUs int64
	bound      int
	missing    int
	failed     bool
}

// Snapshot aggregates the samples currently inside the window. Latency
// figures only cover passes that got past the fetch.
type Snapshot struct {
	Passes   int     `json:"passes"`
	Failures int     `json:"fetch_failures"`
	Bound    int     `json:"bound"`
	Missing  int     `json:"missing"`
	MinUs    int64   `json:"min_us"`
	MaxUs    int64   `json:"max_us"`
	AvgUs    float64 `json:"avg_us"`
	P50Us    float64 `json:"p50_us"`
	P95Us    float64 `json:"p95_us"`
	P99Us    float64 `json:"p99_us"`
}

// Window records bind passes within a maximum age.
type Window struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewWindow(maxAge time.Duration) *Window {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Window{
		samples: make([]sample, 0, 256),
		maxAge:  maxAge,
	}
}

// RecordPass records a completed bind pass.
func (w *Window) RecordPass(d time.Duration, bound, missing int) {
	us := d.Microseconds()
	if us < 0 {
		us = 0
	}
	w.add(sample{durationUs: us, bound: bound, missing: missing})
}

// RecordFailure records a pass aborted by a fetch failure.
func (w *Window) RecordFailure() {
	w.add(sample{failed: true})
}

func (w *Window) add(s sample) {
	now := time.Now()
	s.at = now

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)
	w.samples = append(w.samples, s)
}

func (w *Window) Snapshot() Snapshot {
	now := time.Now()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now)

	var snap Snapshot
	values := make([]int64, 0, len(w.samples))
	var sum int64
	for _, s := range w.samples {
		if s.failed {
			snap.Failures++
			continue
		}
		snap.Bound += s.bound
		snap.Missing += s.missing
		values = append(values, s.durationUs)
		sum += s.durationUs
	}
	snap.Passes = len(values)
	if len(values) == 0 {
		return snap
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	snap.MinUs = values[0]
	snap.MaxUs = values[len(values)-1]
	snap.AvgUs = float64(sum) / float64(len(values))
	snap.P50Us = percentile(values, 50)
	snap.P95Us = percentile(values, 95)
	snap.P99Us = percentile(values, 99)
	return snap
}

func (w *Window) pruneLocked(now time.Time) {
	cutoff := now.Add(-w.maxAge)
	writeIdx := 0
	for _, s := range w.samples {
		if !s.at.Before(cutoff) {
			w.samples[writeIdx] = s
			writeIdx++
		}
	}
	w.samples = w.samples[:writeIdx]
}

func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if pct <= 0 {
		return float64(sorted[0])
	}
	if pct >= 100 {
		return float64(sorted[len(sorted)-1])
	}

	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo := float64(sorted[lower])
	hi := float64(sorted[upper])
	return lo + ((hi - lo) * weight)
}
