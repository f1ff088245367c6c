package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/storefront-live/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventOrderStatusChanged EventType = "order_status_changed"
)

// Actor identifies who triggered an event.
type Actor struct {
	PrincipalID string      `json:"principal_id"`
	Role        domain.Role `json:"role"`
}

// Event represents a business event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Recipient string    `json:"recipient"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// NewEvent stamps an event with an id and timestamp.
func NewEvent(eventType EventType, recipient string, actor Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Recipient: recipient,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// OrderStatusChangedPayload payload.
type OrderStatusChangedPayload struct {
	OrderID   string             `json:"order_id"`
	OldStatus domain.OrderStatus `json:"old_status"`
	NewStatus domain.OrderStatus `json:"new_status"`
}
