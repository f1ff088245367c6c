package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/storefront-live/internal/domain"
	"github.com/spec-kit/storefront-live/internal/events"
	"github.com/spec-kit/storefront-live/internal/repository"
	"github.com/spec-kit/storefront-live/internal/stream"
)

// Pusher is the live delivery surface of the notification stream.
type Pusher interface {
	Notify(principalID string, notification stream.Notification) bool
	SetUnreadCount(principalID string, count int64) bool
}

// NotificationService turns business events into live notifications and
// keeps the per-principal unread counter.
type NotificationService struct {
	dispatcher events.Dispatcher
	pusher     Pusher
	unread     repository.UnreadCounter
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, pusher Pusher, unread repository.UnreadCounter, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		pusher:     pusher,
		unread:     unread,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventOrderStatusChanged, n.handleOrderStatusChanged)
}

func (n *NotificationService) handleOrderStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.OrderStatusChangedPayload)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s", event.Payload, event.Type)
	}
	notification := stream.Notification{
		Title: orderStatusTitle(payload.NewStatus),
		Body:  fmt.Sprintf("Order %s is now %s.", shortID(payload.OrderID), strings.ToLower(string(payload.NewStatus))),
		Data: map[string]any{
			"orderId": payload.OrderID,
			"status":  string(payload.NewStatus),
		},
	}
	n.deliver(ctx, event.ID, event.Recipient, notification)
	return nil
}

// SendDirect delivers an operator-authored notification and reports whether
// the recipient had an open stream.
func (n *NotificationService) SendDirect(ctx context.Context, recipient string, notification stream.Notification) bool {
	return n.deliver(ctx, "", recipient, notification)
}

// deliver pushes the notification and the refreshed unread count.
func (n *NotificationService) deliver(ctx context.Context, eventID, recipient string, notification stream.Notification) bool {
	delivered := n.pusher.Notify(recipient, notification)
	n.logger.Debug("notification pushed",
		zap.String("event_id", eventID),
		zap.String("recipient", recipient),
		zap.Bool("delivered", delivered))

	if n.unread == nil {
		return delivered
	}
	count, err := n.unread.Increment(ctx, recipient)
	if err != nil {
		n.logger.Warn("unread counter unavailable", zap.String("recipient", recipient), zap.Error(err))
		return delivered
	}
	n.pusher.SetUnreadCount(recipient, count)
	return delivered
}

// SyncUnread pushes the stored unread count to principalID's stream.
func (n *NotificationService) SyncUnread(ctx context.Context, principalID string) {
	if n.unread == nil {
		return
	}
	count, err := n.unread.Get(ctx, principalID)
	if err != nil {
		n.logger.Warn("unread counter unavailable", zap.String("recipient", principalID), zap.Error(err))
		return
	}
	n.pusher.SetUnreadCount(principalID, count)
}

// MarkAllRead resets the unread counter and pushes zero to any open stream.
func (n *NotificationService) MarkAllRead(ctx context.Context, principalID string) error {
	if n.unread != nil {
		if err := n.unread.Reset(ctx, principalID); err != nil {
			return err
		}
	}
	n.pusher.SetUnreadCount(principalID, 0)
	return nil
}

// UnreadCount returns the stored unread count.
func (n *NotificationService) UnreadCount(ctx context.Context, principalID string) (int64, error) {
	if n.unread == nil {
		return 0, nil
	}
	return n.unread.Get(ctx, principalID)
}

func orderStatusTitle(status domain.OrderStatus) string {
	switch status {
	case domain.OrderStatusPaid:
		return "Payment received"
	case domain.OrderStatusShipped:
		return "Order shipped"
	case domain.OrderStatusDelivered:
		return "Order delivered"
	case domain.OrderStatusCancelled:
		return "Order cancelled"
	default:
		return "Order updated"
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
