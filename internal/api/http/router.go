package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-live/internal/api/http/handlers"
	"github.com/spec-kit/storefront-live/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Notifications  *handlers.NotificationsHandler
	Admin          *handlers.AdminHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/staff/login", cfg.Auth.StaffLogin)
	authGroup.Post("/admin/login", cfg.Auth.AdminLogin)
	authGroup.Post("/logout", cfg.Auth.Logout)

	app.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle)
	notifications.Get("/stream", cfg.Notifications.Stream)
	notifications.Get("/unread", cfg.Notifications.UnreadCount)
	notifications.Post("/read", cfg.Notifications.MarkRead)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireStaff())
	admin.Patch("/orders/:id/status", cfg.Admin.UpdateOrderStatus)
	admin.Post("/notifications", auth.RequireAdmin(), cfg.Admin.SendNotification)
}
