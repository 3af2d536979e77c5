package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"meetnotes-backend/internal/host"
	"meetnotes-backend/internal/shared/telemetry"
)

// Default timer intervals.
const (
	DefaultCollectInterval = time.Second
	DefaultChunkInterval   = 10 * time.Second
	drainTimeout           = 5 * time.Second
)

// Capture states.
const (
	StateIdle      = "idle"
	StateRecording = "recording"
	stateStopping  = "stopping"
)

// Capture records from a Device. Only one recording runs at a time.
type Capture struct {
	Device          Device
	Shell           host.Shell
	Constraints     Constraints
	CollectInterval time.Duration
	ChunkInterval   time.Duration

	mu        sync.Mutex
	state     string
	mimeType  string
	stream    Stream
	pending   bytes.Buffer
	pieces    [][]byte
	chunkFrom int
	chunkSeq  int
	elapsed   atomic.Int64
	cancel    context.CancelFunc
	readDone  chan struct{}
	loops     sync.WaitGroup
}

// NewCapture constructs a Capture with default constraints and intervals.
func NewCapture(device Device, shell host.Shell) *Capture {
	return &Capture{
		Device:          device,
		Shell:           shell,
		Constraints:     DefaultConstraints(),
		CollectInterval: DefaultCollectInterval,
		ChunkInterval:   DefaultChunkInterval,
	}
}

// State reports idle or recording. A capture that is finalizing still
// reports recording.
func (c *Capture) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateRecording, stateStopping:
		return StateRecording
	default:
		return StateIdle
	}
}

// Elapsed returns the recording duration at one second resolution.
func (c *Capture) Elapsed() time.Duration {
	return time.Duration(c.elapsed.Load()) * time.Second
}

// Start opens the device and begins buffering. When onChunk is set it is
// called every ChunkInterval with the audio collected since the previous
// chunk; its failures never stop the recording. The chunk context is
// cancelled by Stop.
func (c *Capture) Start(ctx context.Context, onChunk func(ctx context.Context, chunk Chunk)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateRecording || c.state == stateStopping {
		return ErrAlreadyRecording
	}

	mimeType, err := NegotiateMimeType(c.Device)
	if err != nil {
		return err
	}
	stream, err := c.Device.Open(ctx, c.constraints(), mimeType)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("open audio device: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.state = StateRecording
	c.mimeType = mimeType
	c.stream = stream
	c.pending.Reset()
	c.pieces = nil
	c.chunkFrom = 0
	c.chunkSeq = 0
	c.elapsed.Store(0)
	c.cancel = cancel
	c.readDone = make(chan struct{})

	go c.readLoop(stream, c.readDone)

	c.loops.Add(2)
	go c.collectLoop(loopCtx)
	go c.durationLoop(loopCtx)
	if onChunk != nil {
		c.loops.Add(1)
		go c.chunkLoop(loopCtx, onChunk)
	}

	host.OrNop(c.Shell).RecordingStarted()
	telemetry.Info("audio.capture_started", map[string]any{"mime_type": mimeType})
	return nil
}

// Stop finalizes the encoder, stops all timers, releases the stream and
// calls onComplete once with the assembled recording after every buffered
// byte has been collected. Stop while idle does nothing.
func (c *Capture) Stop(onComplete func(Recording)) error {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return nil
	}
	c.state = stateStopping
	stream := c.stream
	readDone := c.readDone
	cancel := c.cancel
	c.mu.Unlock()

	cancel()
	c.loops.Wait()

	stopErr := stream.Stop()
	select {
	case <-readDone:
	case <-time.After(drainTimeout):
		telemetry.Warn("audio.drain_timeout", nil)
	}
	closeErr := stream.Close()
	<-readDone

	c.mu.Lock()
	c.collectLocked()
	rec := Recording{
		Data:     bytes.Join(c.pieces, nil),
		MimeType: c.mimeType,
		Duration: c.Elapsed(),
	}
	c.state = StateIdle
	c.stream = nil
	c.pieces = nil
	c.mu.Unlock()

	host.OrNop(c.Shell).RecordingStopped()
	telemetry.Info("audio.capture_stopped", map[string]any{
		"bytes":       len(rec.Data),
		"duration_ms": rec.Duration.Milliseconds(),
	})

	if onComplete != nil {
		onComplete(rec)
	}
	if stopErr != nil {
		return fmt.Errorf("stop encoder: %w", stopErr)
	}
	if closeErr != nil {
		return fmt.Errorf("release stream: %w", closeErr)
	}
	return nil
}

func (c *Capture) constraints() Constraints {
	if c.Constraints == (Constraints{}) {
		return DefaultConstraints()
	}
	return c.Constraints
}

func (c *Capture) readLoop(stream Stream, done chan struct{}) {
	defer close(done)
	buf := make([]byte, 32*1024)
	for {
		n, err := stream.Read(buf)
		if n > 0 {
			c.mu.Lock()
			c.pending.Write(buf[:n])
			c.mu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				telemetry.Warn("audio.read_failed", map[string]any{"error": err.Error()})
			}
			return
		}
	}
}

// collectLocked moves pending bytes into a new piece. c.mu must be held.
func (c *Capture) collectLocked() {
	if c.pending.Len() == 0 {
		return
	}
	piece := make([]byte, c.pending.Len())
	copy(piece, c.pending.Bytes())
	c.pending.Reset()
	c.pieces = append(c.pieces, piece)
}

func (c *Capture) collectLoop(ctx context.Context) {
	defer c.loops.Done()
	ticker := time.NewTicker(orDefault(c.CollectInterval, DefaultCollectInterval))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			c.collectLocked()
			c.mu.Unlock()
		}
	}
}

func (c *Capture) durationLoop(ctx context.Context) {
	defer c.loops.Done()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.elapsed.Add(1)
		}
	}
}

func (c *Capture) chunkLoop(ctx context.Context, onChunk func(context.Context, Chunk)) {
	defer c.loops.Done()
	ticker := time.NewTicker(orDefault(c.ChunkInterval, DefaultChunkInterval))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			chunk, ok := c.nextChunk()
			if !ok {
				continue
			}
			c.emit(ctx, onChunk, chunk)
		}
	}
}

// nextChunk returns the pieces collected since the previous chunk. Later
// chunks are prefixed with the first piece so each carries the container
// header.
func (c *Capture) nextChunk() (Chunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.collectLocked()
	if c.chunkFrom >= len(c.pieces) {
		return Chunk{}, false
	}
	parts := c.pieces[c.chunkFrom:]
	if c.chunkFrom > 0 {
		parts = append([][]byte{c.pieces[0]}, parts...)
	}
	c.chunkFrom = len(c.pieces)
	chunk := Chunk{Index: c.chunkSeq, Data: bytes.Join(parts, nil), MimeType: c.mimeType}
	c.chunkSeq++
	return chunk, true
}

func (c *Capture) emit(ctx context.Context, onChunk func(context.Context, Chunk), chunk Chunk) {
	defer func() {
		if r := recover(); r != nil {
			telemetry.Error("audio.chunk_callback_panic", map[string]any{
				"index": chunk.Index,
				"panic": fmt.Sprint(r),
			})
		}
	}()
	onChunk(ctx, chunk)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
