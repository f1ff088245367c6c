package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var errBrokenPipe = errors.New("broken pipe")

// recordingWriter is a FlushWriter that keeps every flushed frame and can be
// told to fail, standing in for a client that went away.
type recordingWriter struct {
	mu      sync.Mutex
	pending bytes.Buffer
	flushed []string
	broken  bool
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken {
		return 0, errBrokenPipe
	}
	return w.pending.Write(p)
}

func (w *recordingWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.broken {
		return errBrokenPipe
	}
	if w.pending.Len() > 0 {
		w.flushed = append(w.flushed, w.pending.String())
		w.pending.Reset()
	}
	return nil
}

func (w *recordingWriter) breakPipe() {
	w.mu.Lock()
	w.broken = true
	w.mu.Unlock()
}

func (w *recordingWriter) frames() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.flushed))
	copy(out, w.flushed)
	return out
}

// decodeDataFrame parses a "data: {...}\n\n" frame.
func decodeDataFrame(t *testing.T, frame string) map[string]any {
	t.Helper()
	require.True(t, strings.HasPrefix(frame, "data: "), "not a data frame: %q", frame)
	require.True(t, strings.HasSuffix(frame, "\n\n"), "frame not terminated: %q", frame)
	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(strings.TrimPrefix(frame, "data: "), "\n\n")), &out))
	return out
}

type countingMetrics struct {
	mu      sync.Mutex
	opened  int
	closed  map[string]int
	pushed  map[string]int
	dropped map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{closed: map[string]int{}, pushed: map[string]int{}, dropped: map[string]int{}}
}

func (m *countingMetrics) StreamOpened() {
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()
}

func (m *countingMetrics) StreamClosed(reason string) {
	m.mu.Lock()
	m.closed[reason]++
	m.mu.Unlock()
}

func (m *countingMetrics) EventPushed(eventType string, delivered bool) {
	m.mu.Lock()
	if delivered {
		m.pushed[eventType]++
	} else {
		m.dropped[eventType]++
	}
	m.mu.Unlock()
}

func (m *countingMetrics) closedCount(reason string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed[reason]
}

// queued drains the frames waiting in c's outbox.
func queued(c *Conn) []string {
	var out []string
	for {
		select {
		case frame := <-c.outbox:
			out = append(out, string(frame))
		default:
			return out
		}
	}
}

// stallingWriter accepts a fixed number of writes and then blocks, like a
// client that stopped reading once its socket buffer filled up. Abort and
// release unblock it; blocked and later writes fail.
type stallingWriter struct {
	mu      sync.Mutex
	allow   int
	writes  int
	unblock chan struct{}
	aborted chan struct{}

	releaseOnce sync.Once
	abortOnce   sync.Once
}

func newStallingWriter(allow int) *stallingWriter {
	return &stallingWriter{allow: allow, unblock: make(chan struct{}), aborted: make(chan struct{})}
}

func (w *stallingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.writes++
	n := w.writes
	w.mu.Unlock()
	if n <= w.allow {
		return len(p), nil
	}
	<-w.unblock
	return 0, errBrokenPipe
}

func (w *stallingWriter) Flush() error { return nil }

func (w *stallingWriter) Abort() {
	w.abortOnce.Do(func() { close(w.aborted) })
	w.release()
}

func (w *stallingWriter) release() {
	w.releaseOnce.Do(func() { close(w.unblock) })
}

func (w *stallingWriter) writeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
