package metrics

import (
	"strings"
	"testing"
)

func TestHistogramCountsFirstMatchingBucket(t *testing.T) {
	h := newHistogram([]float64{10, 100})
	h.Observe(5)
	h.Observe(50)
	h.Observe(500)

	snap := h.Snapshot()
	if snap.count != 3 {
		t.Fatalf("expected count 3, got %d", snap.count)
	}
	if snap.counts[0] != 1 || snap.counts[1] != 1 {
		t.Fatalf("unexpected bucket counts: %v", snap.counts)
	}
}

func TestRenderIncludesRateLimitedLabels(t *testing.T) {
	IncRateLimited("transcribe")
	IncRateLimited("transcribe")
	IncRateLimited("enhance")

	out := Render()
	if !strings.Contains(out, `upstream_rate_limited_total{operation="enhance"}`) {
		t.Fatalf("expected enhance label in output:\n%s", out)
	}
	if !strings.Contains(out, "# TYPE meeting_processing_duration_ms histogram") {
		t.Fatalf("expected processing histogram in output")
	}
	if !strings.Contains(out, `meeting_processing_duration_ms_bucket{le="+Inf"}`) {
		t.Fatalf("expected +Inf bucket in output")
	}
}
