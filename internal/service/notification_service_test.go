package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront-live/internal/domain"
	"github.com/spec-kit/storefront-live/internal/events"
	"github.com/spec-kit/storefront-live/internal/stream"
)

func TestOrderStatusChangedNotifiesCustomer(t *testing.T) {
	h := newHarness(t)
	w := h.connect(t, "cust-1")

	event := events.NewEvent(events.EventOrderStatusChanged, "cust-1", events.Actor{}, events.OrderStatusChangedPayload{
		OrderID:   "order-123456789",
		OldStatus: domain.OrderStatusPaid,
		NewStatus: domain.OrderStatusShipped,
	})
	require.NoError(t, h.dispatcher.Publish(context.Background(), event))

	got := h.received(t, "cust-1", w)
	require.Len(t, got, 2)
	assert.Equal(t, "NOTIFICATION", got[0]["type"])
	data := got[0]["data"].(map[string]any)
	assert.Equal(t, "Order shipped", data["title"])
	assert.Equal(t, "Order order-12 is now shipped.", data["body"])
	assert.Equal(t, "order-123456789", data["orderId"])
	assert.Equal(t, "SHIPPED", data["status"])

	assert.Equal(t, "UNREAD_COUNT", got[1]["type"])
	assert.Equal(t, map[string]any{"count": float64(1)}, got[1]["data"])
}

func TestNotificationToOfflinePrincipalStillCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.False(t, h.notifications.SendDirect(ctx, "cust-1", stream.Notification{Title: "Sale"}))
	assert.False(t, h.notifications.SendDirect(ctx, "cust-1", stream.Notification{Title: "Sale again"}))

	count, err := h.notifications.UnreadCount(ctx, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	w := h.connect(t, "cust-1")
	h.notifications.SyncUnread(ctx, "cust-1")
	got := h.received(t, "cust-1", w)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"count": float64(2)}, got[0]["data"])
}

func TestSendDirectDeliversToConnectedOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.connect(t, "alice")
	bob := h.connect(t, "bob")

	assert.True(t, h.notifications.SendDirect(ctx, "alice", stream.Notification{
		Title: "Hello",
		Body:  "Just for you",
		Data:  map[string]any{"promo": "SPRING"},
	}))

	got := h.received(t, "alice", alice)
	require.Len(t, got, 2)
	assert.Equal(t, map[string]any{"title": "Hello", "body": "Just for you", "promo": "SPRING"}, got[0]["data"])
	assert.Empty(t, h.received(t, "bob", bob))
}

func TestMarkAllRead(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.notifications.SendDirect(ctx, "cust-1", stream.Notification{Title: "One"})
	w := h.connect(t, "cust-1")

	require.NoError(t, h.notifications.MarkAllRead(ctx, "cust-1"))

	count, err := h.notifications.UnreadCount(ctx, "cust-1")
	require.NoError(t, err)
	assert.Zero(t, count)
	got := h.received(t, "cust-1", w)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]any{"count": float64(0)}, got[0]["data"])
}

func TestNotificationSurvivesCounterOutage(t *testing.T) {
	h := newHarness(t)
	w := h.connect(t, "cust-1")
	h.redis.Close()

	assert.True(t, h.notifications.SendDirect(context.Background(), "cust-1", stream.Notification{Title: "Still here"}))
	got := h.received(t, "cust-1", w)
	require.Len(t, got, 1)
	assert.Equal(t, "NOTIFICATION", got[0]["type"])
}

func TestNotificationServiceWithoutCounter(t *testing.T) {
	h := newHarness(t)
	svc := NewNotificationService(nil, h.notifier, nil, nil)
	svc.RegisterHandlers()

	count, err := svc.UnreadCount(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.NoError(t, svc.MarkAllRead(context.Background(), "cust-1"))
}

func TestOrderStatusTitles(t *testing.T) {
	assert.Equal(t, "Payment received", orderStatusTitle(domain.OrderStatusPaid))
	assert.Equal(t, "Order delivered", orderStatusTitle(domain.OrderStatusDelivered))
	assert.Equal(t, "Order cancelled", orderStatusTitle(domain.OrderStatusCancelled))
	assert.Equal(t, "Order updated", orderStatusTitle(domain.OrderStatusPending))
}
