package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/storefront-live/internal/domain"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

func TestUpdateStatusNotifiesCustomer(t *testing.T) {
	h := newHarness(t)
	order := h.orders.Put(domain.Order{CustomerID: "cust-1", Status: domain.OrderStatusPaid})
	w := h.connect(t, "cust-1")
	staff := &domain.Principal{ID: "staff-1", Role: domain.RoleStaff}

	updated, err := h.orderService.UpdateStatus(context.Background(), staff, order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, updated.Status)

	got := h.received(t, "cust-1", w)
	require.Len(t, got, 2)
	assert.Equal(t, "Order shipped", got[0]["data"].(map[string]any)["title"])
}

func TestUpdateStatusSameStatusIsNoop(t *testing.T) {
	h := newHarness(t)
	order := h.orders.Put(domain.Order{CustomerID: "cust-1", Status: domain.OrderStatusPaid})
	w := h.connect(t, "cust-1")

	_, err := h.orderService.UpdateStatus(context.Background(), nil, order.ID, domain.OrderStatusPaid)
	require.NoError(t, err)
	assert.Empty(t, h.received(t, "cust-1", w))
}

func TestUpdateStatusErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orderService.UpdateStatus(ctx, nil, "missing", domain.OrderStatusShipped)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, apperrors.ToDomainError(err).HTTPStatus)

	_, err = h.orderService.UpdateStatus(ctx, nil, "missing", domain.OrderStatus("LOST"))
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.ToDomainError(err).HTTPStatus)
}

func TestUpdateStatusOtherCustomersUnaffected(t *testing.T) {
	h := newHarness(t)
	order := h.orders.Put(domain.Order{CustomerID: "cust-1", Status: domain.OrderStatusPending})
	other := h.connect(t, "cust-2")

	_, err := h.orderService.UpdateStatus(context.Background(), nil, order.ID, domain.OrderStatusPaid)
	require.NoError(t, err)
	assert.Empty(t, h.received(t, "cust-2", other))
}

func TestUpdateStatusDoesNotWaitForStalledClient(t *testing.T) {
	h := newHarness(t)
	order := h.orders.Put(domain.Order{CustomerID: "cust-1", Status: domain.OrderStatusPaid})
	w := &stalledWriter{release: make(chan struct{})}
	h.serve(t, "cust-1", w)
	// Runs before serve's cleanup, which waits for the blocked writer.
	t.Cleanup(func() { close(w.release) })

	done := make(chan error, 1)
	go func() {
		_, err := h.orderService.UpdateStatus(context.Background(), nil, order.ID, domain.OrderStatusShipped)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("status update blocked on a client that stopped reading")
	}
	require.Eventually(t, func() bool { return w.writeCount() == 2 }, time.Second, 5*time.Millisecond)
}
