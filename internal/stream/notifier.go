package stream

// Notifier is the push surface business code calls. Delivery is best effort:
// a disconnected principal simply misses the event.
type Notifier struct {
	registry *Registry
	metrics  Metrics
}

// NewNotifier constructs a Notifier over registry. metrics may be nil.
func NewNotifier(registry *Registry, metrics Metrics) *Notifier {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Notifier{registry: registry, metrics: metrics}
}

// Notify pushes a NOTIFICATION event and reports whether it was written.
func (n *Notifier) Notify(principalID string, notification Notification) bool {
	return n.push(principalID, Event{Type: EventNotification, Data: notification})
}

// SetUnreadCount pushes an UNREAD_COUNT event and reports whether it was written.
func (n *Notifier) SetUnreadCount(principalID string, count int64) bool {
	return n.push(principalID, Event{Type: EventUnreadCount, Data: UnreadCountPayload{Count: count}})
}

// Connected reports whether principalID currently has an open stream.
func (n *Notifier) Connected(principalID string) bool {
	return n.registry.Connected(principalID)
}

func (n *Notifier) push(principalID string, ev Event) bool {
	delivered := n.registry.Push(principalID, ev)
	n.metrics.EventPushed(string(ev.Type), delivered)
	return delivered
}
