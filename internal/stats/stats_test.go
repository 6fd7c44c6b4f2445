package stats

import (
	"testing"
	"time"
)

func TestWindowSnapshotPercentiles(t *testing.T) {
	w := NewWindow(time.Hour)
	for _, us := range []int64{100, 200, 300, 400, 500} {
		w.RecordPass(time.Duration(us)*time.Microsecond, 2, 1)
	}

	snap := w.Snapshot()
	if snap.Passes != 5 {
		t.Fatalf("expected passes=5, got %d", snap.Passes)
	}
	if snap.MinUs != 100 || snap.MaxUs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinUs, snap.MaxUs)
	}
	if snap.AvgUs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgUs)
	}
	if snap.P50Us != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Us)
	}
	if snap.P95Us != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Us)
	}
	if snap.P99Us != 496 {
		t.Fatalf("expected p99=496, got %f", snap.P99Us)
	}
	if snap.Bound != 10 || snap.Missing != 5 {
		t.Fatalf("expected bound=10 missing=5, got bound=%d missing=%d", snap.Bound, snap.Missing)
	}
}

func TestWindowCountsFailuresSeparately(t *testing.T) {
	w := NewWindow(time.Hour)
	w.RecordFailure()
	w.RecordFailure()
	w.RecordPass(50*time.Microsecond, 1, 0)

	snap := w.Snapshot()
	if snap.Failures != 2 {
		t.Fatalf("expected failures=2, got %d", snap.Failures)
	}
	if snap.Passes != 1 {
		t.Fatalf("expected passes=1, got %d", snap.Passes)
	}
	if snap.MinUs != 50 {
		t.Fatalf("expected min=50, got %d", snap.MinUs)
	}
}

func TestWindowPrunesExpiredSamples(t *testing.T) {
	w := NewWindow(10 * time.Millisecond)
	w.RecordPass(100*time.Microsecond, 1, 0)
	time.Sleep(25 * time.Millisecond)

	snap := w.Snapshot()
	if snap.Passes != 0 {
		t.Fatalf("expected passes=0 after prune, got %d", snap.Passes)
	}

	w.RecordPass(200*time.Microsecond, 1, 0)
	snap = w.Snapshot()
	if snap.Passes != 1 {
		t.Fatalf("expected passes=1 for fresh sample, got %d", snap.Passes)
	}
	if snap.MinUs != 200 || snap.MaxUs != 200 {
		t.Fatalf("expected min=max=200, got min=%d max=%d", snap.MinUs, snap.MaxUs)
	}
}

func TestWindowClampsNegativeDuration(t *testing.T) {
	w := NewWindow(time.Hour)
	w.RecordPass(-10*time.Microsecond, 0, 0)
	snap := w.Snapshot()
	if snap.Passes != 1 {
		t.Fatalf("expected passes=1, got %d", snap.Passes)
	}
	if snap.MinUs != 0 || snap.MaxUs != 0 {
		t.Fatalf("expected clamped duration=0, got min=%d max=%d", snap.MinUs, snap.MaxUs)
	}
}
