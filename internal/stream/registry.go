// Package stream owns the live notification streams: the registry mapping a
// principal to its open connection, the per-connection lifecycle, and the
// notifier business code uses to push events.
package stream

import (
	"errors"
	"sync"
)

// ErrRegistryClosed is returned when registering after shutdown.
var ErrRegistryClosed = errors.New("stream: registry closed")

// Registry maps principal ids to their single active connection.
//
// Operations on the same principal id are serialized by a per-key lock; the
// shared map lock is only held for the map access itself. Pushes only queue
// frames, so a slow client never blocks the caller.
type Registry struct {
	keys keyedMutex

	mu      sync.RWMutex
	entries map[string]*Conn
	closed  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		keys:    keyedMutex{locks: make(map[string]*keyLock)},
		entries: make(map[string]*Conn),
	}
}

// Register binds conn to principalID, replacing any previous connection
// without closing it. The replaced connection stays open but is never
// looked up again.
func (r *Registry) Register(principalID string, conn *Conn) error {
	unlock := r.keys.Lock(principalID)
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRegistryClosed
	}
	r.entries[principalID] = conn
	return nil
}

// Unregister removes whatever connection is bound to principalID.
func (r *Registry) Unregister(principalID string) {
	unlock := r.keys.Lock(principalID)
	defer unlock()

	r.mu.Lock()
	delete(r.entries, principalID)
	r.mu.Unlock()
}

// Release removes the entry for principalID only if it is still conn.
func (r *Registry) Release(principalID string, conn *Conn) bool {
	unlock := r.keys.Lock(principalID)
	defer unlock()

	return r.removeIfCurrent(principalID, conn)
}

// Lookup returns the connection bound to principalID.
func (r *Registry) Lookup(principalID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.entries[principalID]
	return conn, ok
}

// Connected reports whether principalID has an open stream.
func (r *Registry) Connected(principalID string) bool {
	_, ok := r.Lookup(principalID)
	return ok
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Push queues ev on principalID's stream. It returns false when nobody is
// connected or the connection is closed or overflowing; either drops the entry.
func (r *Registry) Push(principalID string, ev Event) bool {
	unlock := r.keys.Lock(principalID)
	defer unlock()

	conn, ok := r.Lookup(principalID)
	if !ok {
		return false
	}
	if err := conn.Send(ev); err != nil {
		r.removeIfCurrent(principalID, conn)
		return false
	}
	return true
}

// Close drops every entry and releases its connection. Later registrations fail.
func (r *Registry) Close() {
	r.mu.Lock()
	conns := make([]*Conn, 0, len(r.entries))
	for _, conn := range r.entries {
		conns = append(conns, conn)
	}
	r.entries = make(map[string]*Conn)
	r.closed = true
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

// removeIfCurrent must be called with the principal's key lock held.
func (r *Registry) removeIfCurrent(principalID string, conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.entries[principalID]; ok && current == conn {
		delete(r.entries, principalID)
		return true
	}
	return false
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per key and forgets it when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
