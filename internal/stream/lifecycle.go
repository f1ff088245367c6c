package stream

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultKeepAlive is the interval between keep-alive comment frames.
	DefaultKeepAlive = 30 * time.Second
	// DefaultWriteTimeout bounds a single frame write to a client.
	DefaultWriteTimeout = 10 * time.Second
)

// Metrics receives stream lifecycle and delivery counters.
type Metrics interface {
	StreamOpened()
	StreamClosed(reason string)
	EventPushed(eventType string, delivered bool)
}

type noopMetrics struct{}

func (noopMetrics) StreamOpened()            {}
func (noopMetrics) StreamClosed(string)      {}
func (noopMetrics) EventPushed(string, bool) {}

// Teardown reasons reported to Metrics and logs.
const (
	CloseAborted         = "aborted"
	CloseWriteFailed     = "write_failed"
	CloseKeepAliveFailed = "keepalive_failed"
	CloseConnectFailed   = "connect_failed"
	CloseReleased        = "released"
)

// Lifecycle runs one goroutine per open stream: it registers the connection,
// announces it, keeps it alive and tears it down exactly once.
type Lifecycle struct {
	registry     *Registry
	keepAlive    time.Duration
	writeTimeout time.Duration
	outbox       int
	logger       *zap.Logger
	metrics      Metrics
	onOpen       func(ctx context.Context, principalID string)
}

// LifecycleOption customises a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithKeepAlive overrides DefaultKeepAlive.
func WithKeepAlive(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		if d > 0 {
			l.keepAlive = d
		}
	}
}

// WithWriteTimeout overrides DefaultWriteTimeout.
func WithWriteTimeout(d time.Duration) LifecycleOption {
	return func(l *Lifecycle) {
		if d > 0 {
			l.writeTimeout = d
		}
	}
}

// WithOutbox overrides DefaultOutbox.
func WithOutbox(frames int) LifecycleOption {
	return func(l *Lifecycle) {
		if frames > 0 {
			l.outbox = frames
		}
	}
}

// WithLogger sets the lifecycle logger.
func WithLogger(logger *zap.Logger) LifecycleOption {
	return func(l *Lifecycle) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) LifecycleOption {
	return func(l *Lifecycle) {
		if m != nil {
			l.metrics = m
		}
	}
}

// WithOnOpen registers a hook run after the CONNECTED frame was written,
// e.g. to replay the current unread count.
func WithOnOpen(fn func(ctx context.Context, principalID string)) LifecycleOption {
	return func(l *Lifecycle) {
		l.onOpen = fn
	}
}

// NewLifecycle constructs a Lifecycle bound to registry.
func NewLifecycle(registry *Registry, opts ...LifecycleOption) *Lifecycle {
	l := &Lifecycle{
		registry:     registry,
		keepAlive:    DefaultKeepAlive,
		writeTimeout: DefaultWriteTimeout,
		outbox:       DefaultOutbox,
		logger:       zap.NewNop(),
		metrics:      noopMetrics{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Serve owns w until the stream ends. It blocks until ctx is cancelled (the
// client aborted or the server is shutting down), the connection was released
// or overflowed, or a write failed. The only error returned is a failure to
// register.
func (l *Lifecycle) Serve(ctx context.Context, principalID string, w FlushWriter) error {
	conn := NewConn(principalID, l.outbox)
	// Queued before the conn is visible to Push, so CONNECTED is always first.
	if err := conn.Send(Event{Type: EventConnected, Data: ConnectedPayload{PrincipalID: principalID}}); err != nil {
		return err
	}
	if err := l.registry.Register(principalID, conn); err != nil {
		conn.Close()
		return err
	}
	l.metrics.StreamOpened()
	l.logger.Debug("stream opened", zap.String("principal_id", principalID))

	ticker := time.NewTicker(l.keepAlive)
	var once sync.Once
	teardown := func(reason string) {
		once.Do(func() {
			ticker.Stop()
			l.registry.Release(principalID, conn)
			conn.Close()
			l.metrics.StreamClosed(reason)
			l.logger.Debug("stream closed",
				zap.String("principal_id", principalID),
				zap.String("reason", reason),
				zap.Duration("age", time.Since(conn.CreatedAt())))
		})
	}
	defer teardown(CloseAborted)

	if err := conn.writeFrame(w, <-conn.outbox, l.writeTimeout); err != nil {
		teardown(CloseConnectFailed)
		return nil
	}
	if l.onOpen != nil {
		l.onOpen(ctx, principalID)
	}

	for {
		select {
		case <-ctx.Done():
			teardown(CloseAborted)
			return nil
		case <-conn.Done():
			teardown(CloseReleased)
			return nil
		case frame := <-conn.outbox:
			if err := conn.writeFrame(w, frame, l.writeTimeout); err != nil {
				teardown(CloseWriteFailed)
				return nil
			}
		case <-ticker.C:
			if err := conn.writeFrame(w, commentFrame("keepalive"), l.writeTimeout); err != nil {
				teardown(CloseKeepAliveFailed)
				return nil
			}
		}
	}
}
