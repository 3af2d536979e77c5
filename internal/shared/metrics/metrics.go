package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	sessionsStartedTotal   atomic.Uint64
	sessionsCompletedTotal atomic.Uint64
	sessionsFailedTotal    atomic.Uint64
	chunkTranscriptsTotal  atomic.Uint64
	remindersSentTotal     atomic.Uint64

	reprocessJobsReceived      atomic.Uint64
	reprocessJobsCompleted     atomic.Uint64
	reprocessJobsFailed        atomic.Uint64
	reprocessJobsUnrecoverable atomic.Uint64

	rateLimited = newCounterVec()

	processingDuration = newHistogram([]float64{1000, 2500, 5000, 10000, 30000, 60000, 120000, 300000})
)

// IncSessionStarted counts a recording that reached the recording state.
func IncSessionStarted() {
	sessionsStartedTotal.Add(1)
}

// IncSessionCompleted counts a session that persisted its note.
func IncSessionCompleted() {
	sessionsCompletedTotal.Add(1)
}

// IncSessionFailed counts a session that ended in the error state.
func IncSessionFailed() {
	sessionsFailedTotal.Add(1)
}

// IncChunkTranscript counts non-empty live chunk transcripts.
func IncChunkTranscript() {
	chunkTranscriptsTotal.Add(1)
}

// IncReminderSent counts reminders dispatched as notifications.
func IncReminderSent() {
	remindersSentTotal.Add(1)
}

// IncRateLimited counts admission denials for an operation.
func IncRateLimited(operation string) {
	rateLimited.Inc(operation)
}

func IncReprocessJobsReceived()      { reprocessJobsReceived.Add(1) }
func IncReprocessJobsCompleted()     { reprocessJobsCompleted.Add(1) }
func IncReprocessJobsFailed()        { reprocessJobsFailed.Add(1) }
func IncReprocessJobsUnrecoverable() { reprocessJobsUnrecoverable.Add(1) }

// ObserveProcessingDurationMs records the processing stage duration in milliseconds.
func ObserveProcessingDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	processingDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "meeting_sessions_started_total", "Recording sessions started", sessionsStartedTotal.Load())
	writeCounter(&buf, "meeting_sessions_completed_total", "Recording sessions completed", sessionsCompletedTotal.Load())
	writeCounter(&buf, "meeting_sessions_failed_total", "Recording sessions that ended in error", sessionsFailedTotal.Load())
	writeCounter(&buf, "chunk_transcripts_total", "Non-empty live chunk transcripts", chunkTranscriptsTotal.Load())
	writeCounter(&buf, "reminders_sent_total", "Reminder notifications dispatched", remindersSentTotal.Load())
	writeCounter(&buf, "reprocess_jobs_received_total", "Reprocess jobs received", reprocessJobsReceived.Load())
	writeCounter(&buf, "reprocess_jobs_completed_total", "Reprocess jobs completed", reprocessJobsCompleted.Load())
	writeCounter(&buf, "reprocess_jobs_failed_total", "Reprocess jobs failed", reprocessJobsFailed.Load())
	writeCounter(&buf, "reprocess_jobs_unrecoverable_total", "Reprocess jobs deleted as unrecoverable", reprocessJobsUnrecoverable.Load())
	writeCounterVec(&buf, "upstream_rate_limited_total", "Upstream calls denied by the client-side limiter", "operation", rateLimited.Snapshot())
	writeHistogram(&buf, "meeting_processing_duration_ms", "Processing duration in milliseconds", processingDuration.Snapshot())
	return buf.String()
}

type counterVec struct {
	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec() *counterVec {
	return &counterVec{values: make(map[string]uint64)}
}

func (v *counterVec) Inc(label string) {
	v.mu.Lock()
	v.values[label]++
	v.mu.Unlock()
}

func (v *counterVec) Snapshot() map[string]uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]uint64, len(v.values))
	for k, val := range v.values {
		out[k] = val
	}
	return out
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value into the first bucket whose bound it fits.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeCounterVec(buf *bytes.Buffer, name, help, label string, values map[string]uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(buf, "%s{%s=%q} %d\n", name, label, k, values[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
