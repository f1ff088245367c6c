package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-live/internal/api/dto"
	"github.com/spec-kit/storefront-live/internal/auth"
	"github.com/spec-kit/storefront-live/internal/domain"
	"github.com/spec-kit/storefront-live/internal/service"
	"github.com/spec-kit/storefront-live/internal/stream"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// AdminHandler exposes back-office endpoints that trigger notifications.
type AdminHandler struct {
	orders        *service.OrderService
	notifications *service.NotificationService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(orders *service.OrderService, notifications *service.NotificationService) *AdminHandler {
	return &AdminHandler{orders: orders, notifications: notifications}
}

// UpdateOrderStatus handles PATCH /admin/orders/:id/status.
func (h *AdminHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	actor, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	var req dto.OrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	status := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	order, err := h.orders.UpdateStatus(c.UserContext(), actor, c.Params("id"), status)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"data": dto.OrderResponse{
			ID:         order.ID,
			CustomerID: order.CustomerID,
			Status:     string(order.Status),
		},
	})
}

// SendNotification handles POST /admin/notifications.
func (h *AdminHandler) SendNotification(c *fiber.Ctx) error {
	var req dto.DirectNotificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.PrincipalID == "" || req.Title == "" {
		return apperrors.NewValidationError("principal_id and title required", nil)
	}

	delivered := h.notifications.SendDirect(c.UserContext(), req.PrincipalID, stream.Notification{
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})

	return c.Status(http.StatusAccepted).JSON(fiber.Map{
		"data": dto.DirectNotificationResponse{Delivered: delivered},
	})
}
