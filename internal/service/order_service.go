package service

import (
	"context"
	"errors"

	"github.com/spec-kit/storefront-live/internal/domain"
	"github.com/spec-kit/storefront-live/internal/events"
	"github.com/spec-kit/storefront-live/internal/repository"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// OrderService coordinates order workflows that customers are notified about.
type OrderService struct {
	orders     repository.OrderRepository
	dispatcher events.Dispatcher
}

// NewOrderService builds the service.
func NewOrderService(orders repository.OrderRepository, dispatcher events.Dispatcher) *OrderService {
	return &OrderService{orders: orders, dispatcher: dispatcher}
}

// UpdateStatus moves an order to status and publishes order_status_changed.
// Setting the current status again is a no-op and publishes nothing.
func (s *OrderService) UpdateStatus(ctx context.Context, actor *domain.Principal, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid order status", map[string]any{"status": status})
	}

	current, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFound("order", map[string]any{"id": orderID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	if current.Status == status {
		return current, nil
	}

	updated, err := s.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewNotFound("order", map[string]any{"id": orderID})
		}
		return nil, apperrors.NewInternalError(err)
	}

	if s.dispatcher != nil {
		event := events.NewEvent(events.EventOrderStatusChanged, updated.CustomerID, actorOf(actor), events.OrderStatusChangedPayload{
			OrderID:   updated.ID,
			OldStatus: current.Status,
			NewStatus: updated.Status,
		})
		_ = s.dispatcher.Publish(ctx, event)
	}
	return updated, nil
}

func actorOf(p *domain.Principal) events.Actor {
	if p == nil {
		return events.Actor{}
	}
	return events.Actor{PrincipalID: p.ID, Role: p.Role}
}
