package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/storefront-live/internal/auth"
	"github.com/spec-kit/storefront-live/internal/events"
	"github.com/spec-kit/storefront-live/internal/repository"
	"github.com/spec-kit/storefront-live/internal/session"
	"github.com/spec-kit/storefront-live/internal/stream"
)

type frameRecorder struct {
	mu      sync.Mutex
	pending bytes.Buffer
	frames  []string
}

func (w *frameRecorder) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending.Write(p)
}

func (w *frameRecorder) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending.Len() > 0 {
		w.frames = append(w.frames, w.pending.String())
		w.pending.Reset()
	}
	return nil
}

func (w *frameRecorder) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames)
}

func (w *frameRecorder) lastContains(substr string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.frames) > 0 && strings.Contains(w.frames[len(w.frames)-1], substr)
}

// events decodes every data frame written so far.
func (w *frameRecorder) events(t *testing.T) []map[string]any {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]map[string]any, 0, len(w.frames))
	for _, frame := range w.frames {
		if !strings.HasPrefix(frame, "data: ") {
			continue
		}
		var ev map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(frame, "data: "))), &ev))
		out = append(out, ev)
	}
	return out
}

// stalledWriter lets the CONNECTED frame through and then blocks every write
// until the test ends, like a client that stopped reading.
type stalledWriter struct {
	mu      sync.Mutex
	writes  int
	release chan struct{}
}

func (w *stalledWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	w.writes++
	n := w.writes
	w.mu.Unlock()
	if n > 1 {
		<-w.release
	}
	return len(p), nil
}

func (w *stalledWriter) Flush() error { return nil }

func (w *stalledWriter) writeCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

type harness struct {
	redis      *miniredis.Miniredis
	client     *redis.Client
	registry   *stream.Registry
	notifier   *stream.Notifier
	lifecycle  *stream.Lifecycle
	dispatcher events.Dispatcher
	unread     repository.UnreadCounter
	principals *repository.MemoryPrincipalRepository
	orders     *repository.MemoryOrderRepository
	sessions   *session.Store

	notifications *NotificationService
	orderService  *OrderService
	authService   *AuthService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := &harness{
		redis:      mr,
		client:     client,
		registry:   stream.NewRegistry(),
		dispatcher: events.NewInMemoryDispatcher(nil),
		unread:     repository.NewUnreadCounter(client, "test:"),
		principals: repository.NewMemoryPrincipalRepository(),
		orders:     repository.NewMemoryOrderRepository(),
		sessions:   session.NewStore(client, "test:", time.Hour),
	}
	h.notifier = stream.NewNotifier(h.registry, nil)
	h.lifecycle = stream.NewLifecycle(h.registry, stream.WithKeepAlive(time.Hour))
	h.notifications = NewNotificationService(h.dispatcher, h.notifier, h.unread, nil)
	h.notifications.RegisterHandlers()
	h.orderService = NewOrderService(h.orders, h.dispatcher)
	h.authService = NewAuthService(AuthDependencies{
		Principals: h.principals,
		Sessions:   h.sessions,
		Tokens:     auth.NewTokenManager("secret", 24*time.Hour),
		Hasher:     auth.NewPasswordHasher(bcrypt.MinCost),
	})
	return h
}

// serve runs a stream for principalID on w until the test ends.
func (h *harness) serve(t *testing.T, principalID string, w stream.FlushWriter) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = h.lifecycle.Serve(ctx, principalID, w)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, func() bool { return h.registry.Connected(principalID) }, time.Second, 5*time.Millisecond)
}

// connect opens a stream for principalID and waits for its CONNECTED frame.
func (h *harness) connect(t *testing.T, principalID string) *frameRecorder {
	t.Helper()
	w := &frameRecorder{}
	h.serve(t, principalID, w)
	require.Eventually(t, func() bool { return w.count() >= 1 }, time.Second, 5*time.Millisecond)
	return w
}

// received returns the events principalID's stream got after CONNECTED. It
// pushes a marker frame and waits for it, so everything queued earlier has
// been written.
func (h *harness) received(t *testing.T, principalID string, w *frameRecorder) []map[string]any {
	t.Helper()
	require.True(t, h.notifier.SetUnreadCount(principalID, -1))
	require.Eventually(t, func() bool { return w.lastContains(`"count":-1`) }, time.Second, 5*time.Millisecond)
	all := w.events(t)
	require.Equal(t, "CONNECTED", all[0]["type"])
	return all[1 : len(all)-1]
}
