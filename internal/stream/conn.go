package stream

import (
	"errors"
	"sync"
	"time"
)

var (
	// ErrConnClosed is returned by sends on a released connection.
	ErrConnClosed = errors.New("stream: connection closed")
	// ErrOutboxFull is returned when a client falls too far behind; the
	// connection is closed with it.
	ErrOutboxFull = errors.New("stream: outbox full")
	// ErrWriteStalled is returned when a single write outlives the write timeout.
	ErrWriteStalled = errors.New("stream: write stalled")
)

// DefaultOutbox is how many frames may wait for one slow client.
const DefaultOutbox = 64

// FlushWriter is the write side of a streaming transport. *bufio.Writer
// satisfies it, which is what fasthttp hands to a body stream writer.
type FlushWriter interface {
	Write(p []byte) (int, error)
	Flush() error
}

// Aborter is implemented by writers that can tear down their transport, which
// unblocks a write stuck on a client that stopped reading.
type Aborter interface {
	Abort()
}

// Conn is the handle for one open client stream. Sends only enqueue a
// complete frame; the stream's own goroutine does the writing, so a stalled
// client never blocks the caller.
type Conn struct {
	principalID string
	createdAt   time.Time

	mu     sync.Mutex
	outbox chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

// NewConn creates a connection for principalID holding at most capacity
// unwritten frames. A non-positive capacity means DefaultOutbox.
func NewConn(principalID string, capacity int) *Conn {
	if capacity <= 0 {
		capacity = DefaultOutbox
	}
	return &Conn{
		principalID: principalID,
		createdAt:   time.Now(),
		outbox:      make(chan []byte, capacity),
		done:        make(chan struct{}),
	}
}

// PrincipalID returns the identity the stream is bound to.
func (c *Conn) PrincipalID() string { return c.principalID }

// CreatedAt returns when the connection was opened.
func (c *Conn) CreatedAt() time.Time { return c.createdAt }

// Done is closed once the connection has been released, overflowed or a
// write failed.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Closed reports whether Done has been closed.
func (c *Conn) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Send queues one complete frame. A full outbox closes the connection.
func (c *Conn) Send(ev Event) error {
	frame, err := encodeFrame(ev)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// Close releases the connection. It is safe to call more than once.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *Conn) enqueue(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Closed() {
		return ErrConnClosed
	}
	select {
	case c.outbox <- frame:
		return nil
	default:
		c.Close()
		return ErrOutboxFull
	}
}

// writeFrame writes and flushes frame on w. If that takes longer than timeout
// the connection is closed and w is aborted when it supports it.
func (c *Conn) writeFrame(w FlushWriter, frame []byte, timeout time.Duration) error {
	stall := time.AfterFunc(timeout, func() {
		c.Close()
		if a, ok := w.(Aborter); ok {
			a.Abort()
		}
	})
	_, err := w.Write(frame)
	if err == nil {
		err = w.Flush()
	}
	if !stall.Stop() && err == nil {
		err = ErrWriteStalled
	}
	if err != nil {
		c.Close()
	}
	return err
}
