package stream

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EventType enumerates the frames sent on a notification stream.
type EventType string

const (
	EventConnected    EventType = "CONNECTED"
	EventNotification EventType = "NOTIFICATION"
	EventUnreadCount  EventType = "UNREAD_COUNT"
	EventKeepAlive    EventType = "KEEPALIVE"
)

// Event is one frame pushed to a client.
type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data,omitempty"`
}

// ConnectedPayload tells the client which identity the stream is bound to.
type ConnectedPayload struct {
	PrincipalID string `json:"principalId"`
}

// UnreadCountPayload carries the caller-supplied unread counter.
type UnreadCountPayload struct {
	Count int64 `json:"count"`
}

// Notification is the payload business code hands to Notifier.Notify. Extra
// data keys are flattened next to title and body on the wire.
type Notification struct {
	Title string
	Body  string
	Data  map[string]any
}

// MarshalJSON flattens Data alongside title and body. Title and body win on key clashes.
func (n Notification) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Data)+2)
	for k, v := range n.Data {
		out[k] = v
	}
	out["title"] = n.Title
	if n.Body != "" {
		out["body"] = n.Body
	}
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (n *Notification) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if title, ok := raw["title"].(string); ok {
		n.Title = title
	}
	if body, ok := raw["body"].(string); ok {
		n.Body = body
	}
	delete(raw, "title")
	delete(raw, "body")
	if len(raw) > 0 {
		n.Data = raw
	}
	return nil
}

// encodeFrame renders an event as a single SSE frame. Keep-alives are comment
// frames; everything else is a data frame with a JSON body.
func encodeFrame(ev Event) ([]byte, error) {
	if ev.Type == EventKeepAlive {
		return commentFrame("keepalive"), nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	var buf bytes.Buffer
	buf.Grow(len(payload) + 8)
	buf.WriteString("data: ")
	buf.Write(payload)
	buf.WriteString("\n\n")
	return buf.Bytes(), nil
}

func commentFrame(comment string) []byte {
	return []byte(": " + comment + "\n\n")
}
