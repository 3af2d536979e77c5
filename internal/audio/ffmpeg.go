package audio

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FFmpegDevice captures from the platform input through an ffmpeg child
// process that writes an Opus stream to stdout.
type FFmpegDevice struct {
	Path        string
	InputFormat string
	InputDevice string
	// StartupTimeout bounds how long Open waits for the first audio bytes
	// before assuming the device is live.
	StartupTimeout time.Duration

	probeOnce sync.Once
	muxers    map[string]bool
	probeErr  error
}

var muxerFor = map[string]string{
	"audio/webm": "webm",
	"audio/ogg":  "ogg",
}

// CheckFFmpeg reports whether the ffmpeg binary can be found.
func (d *FFmpegDevice) CheckFFmpeg() error {
	if _, err := exec.LookPath(d.path()); err != nil {
		return fmt.Errorf("ffmpeg not found at %q. Install it (brew install ffmpeg, apt install ffmpeg) or set FFMPEG_PATH", d.path())
	}
	return nil
}

// Supports probes the ffmpeg build for the container's muxer.
func (d *FFmpegDevice) Supports(mimeType string) bool {
	muxer, ok := muxerFor[mimeType]
	if !ok {
		return false
	}
	d.probeOnce.Do(d.probe)
	return d.probeErr == nil && d.muxers[muxer]
}

func (d *FFmpegDevice) probe() {
	out, err := exec.Command(d.path(), "-hide_banner", "-muxers").Output()
	if err != nil {
		d.probeErr = err
		return
	}
	d.muxers = parseMuxers(out)
}

// parseMuxers reads `ffmpeg -muxers` output lines such as " E  webm  WebM".
func parseMuxers(out []byte) map[string]bool {
	muxers := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || !strings.Contains(fields[0], "E") || fields[0] == "--" {
			continue
		}
		for _, name := range strings.Split(fields[1], ",") {
			muxers[name] = true
		}
	}
	return muxers
}

// Args builds the ffmpeg command line for a capture.
func (d *FFmpegDevice) Args(c Constraints, mimeType string) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-nostats",
		"-f", d.InputFormat,
		"-i", d.InputDevice,
		"-ac", strconv.Itoa(c.Channels),
		"-ar", strconv.Itoa(c.SampleRate),
	}
	if c.NoiseSuppression {
		args = append(args, "-af", "highpass=f=80,afftdn")
	}
	args = append(args,
		"-c:a", "libopus",
		"-b:a", "48k",
		"-f", muxerFor[mimeType],
		"pipe:1",
	)
	return args
}

// Open starts ffmpeg and waits until it produces audio, exits or the startup
// timeout passes.
func (d *FFmpegDevice) Open(ctx context.Context, c Constraints, mimeType string) (Stream, error) {
	if _, ok := muxerFor[mimeType]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, mimeType)
	}
	cmd := exec.Command(d.path(), d.Args(c, mimeType)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &limitedBuffer{limit: 8 * 1024}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &ffmpegStream{cmd: cmd, stdin: stdin, out: bufio.NewReaderSize(stdout, 64*1024), peeked: make(chan struct{})}

	ready := make(chan error, 1)
	go func() {
		_, err := s.out.Peek(1)
		close(s.peeked)
		ready <- err
	}()

	timeout := d.StartupTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case err := <-ready:
		if err == nil {
			return s, nil
		}
		_ = cmd.Wait()
		return nil, classifyStartup(stderr.String(), err)
	case <-time.After(timeout):
		return s, nil
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, ctx.Err()
	}
}

func (d *FFmpegDevice) path() string {
	if strings.TrimSpace(d.Path) == "" {
		return "ffmpeg"
	}
	return d.Path
}

// classifyStartup maps ffmpeg's startup failure onto ErrPermissionDenied
// when the platform refused access.
func classifyStartup(stderr string, err error) error {
	lower := strings.ToLower(stderr)
	for _, marker := range []string{"permission denied", "not authorized", "operation not permitted", "access denied"} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, strings.TrimSpace(stderr))
		}
	}
	msg := strings.TrimSpace(stderr)
	if msg == "" {
		msg = err.Error()
	}
	return fmt.Errorf("ffmpeg exited before producing audio: %s", msg)
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	out    *bufio.Reader
	once   sync.Once
	// peeked is closed once the startup probe has finished with out.
	peeked chan struct{}
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	<-s.peeked
	return s.out.Read(p)
}

// Stop sends ffmpeg's interactive quit command so it writes the trailer.
func (s *ffmpegStream) Stop() error {
	_, err := io.WriteString(s.stdin, "q")
	_ = s.stdin.Close()
	return err
}

// Close waits for ffmpeg to exit, killing it if it does not.
func (s *ffmpegStream) Close() error {
	var err error
	s.once.Do(func() {
		done := make(chan error, 1)
		go func() { done <- s.cmd.Wait() }()
		select {
		case err = <-done:
		case <-time.After(drainTimeout):
			_ = s.cmd.Process.Kill()
			err = <-done
		}
	})
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 255 {
		// ffmpeg exits 255 when interrupted; the output is complete.
		return nil
	}
	return err
}

type limitedBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
