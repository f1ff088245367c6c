package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters for requests and notification streams.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	streamsOpen  int64
	streamCloses map[string]int64
	pushes       map[string]int64
}

// Snapshot is a point-in-time copy of the stream counters.
type Snapshot struct {
	StreamsOpen  int64            `json:"streams_open"`
	StreamCloses map[string]int64 `json:"stream_closes"`
	Pushes       map[string]int64 `json:"pushes"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		streamCloses: make(map[string]int64),
		pushes:       make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// StreamOpened counts a newly registered stream.
func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamsOpen++
}

// StreamClosed counts a torn down stream by reason.
func (m *Metrics) StreamClosed(reason string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamsOpen--
	m.streamCloses[reason]++
}

// EventPushed counts push outcomes per event type.
func (m *Metrics) EventPushed(eventType string, delivered bool) {
	if m == nil {
		return
	}
	outcome := "dropped"
	if delivered {
		outcome = "delivered"
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pushes[eventType+"|"+outcome]++
}

// Requests returns the request count for path, method and status.
func (m *Metrics) Requests(path, method string, status int) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount[path+"|"+method+"|"+strconv.Itoa(status)]
}

// Snapshot copies the stream counters.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{
		StreamsOpen:  m.streamsOpen,
		StreamCloses: make(map[string]int64, len(m.streamCloses)),
		Pushes:       make(map[string]int64, len(m.pushes)),
	}
	for k, v := range m.streamCloses {
		snap.StreamCloses[k] = v
	}
	for k, v := range m.pushes {
		snap.Pushes[k] = v
	}
	return snap
}
