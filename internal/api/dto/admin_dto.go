package dto

// OrderStatusRequest payload for PATCH /admin/orders/:id/status.
type OrderStatusRequest struct {
	Status string `json:"status"`
}

// OrderResponse is the public view of an order.
type OrderResponse struct {
	ID         string `json:"id"`
	CustomerID string `json:"customer_id"`
	Status     string `json:"status"`
}

// DirectNotificationRequest payload for POST /admin/notifications.
type DirectNotificationRequest struct {
	PrincipalID string         `json:"principal_id"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
}

// DirectNotificationResponse reports whether the recipient was connected.
type DirectNotificationResponse struct {
	Delivered bool `json:"delivered"`
}

// UnreadCountResponse carries the stored unread counter.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}
