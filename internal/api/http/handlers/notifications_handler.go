package handlers

import (
	"bufio"
	"context"
	"net"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-live/internal/api/dto"
	"github.com/spec-kit/storefront-live/internal/auth"
	"github.com/spec-kit/storefront-live/internal/service"
	"github.com/spec-kit/storefront-live/internal/stream"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// NotificationsHandler serves the live notification stream.
type NotificationsHandler struct {
	lifecycle     *stream.Lifecycle
	notifications *service.NotificationService
	logger        *zap.Logger
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(lifecycle *stream.Lifecycle, notifications *service.NotificationService, logger *zap.Logger) *NotificationsHandler {
	return &NotificationsHandler{lifecycle: lifecycle, notifications: notifications, logger: logger}
}

// Stream handles GET /notifications/stream.
//
// The response body is written by fasthttp after this handler returns, on the
// connection's own goroutine, so the fiber.Ctx must not be touched inside the
// stream writer. The connection is closed once the stream ends.
func (h *NotificationsHandler) Stream(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	principalID := principal.ID
	shutdown := c.Context().Done()
	raw := c.Context().Conn()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache, no-transform")
	c.Set("X-Accel-Buffering", "no")
	c.Context().SetConnectionClose()
	c.Status(fiber.StatusOK)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() {
			select {
			case <-shutdown:
				cancel()
			case <-ctx.Done():
			}
		}()
		go watchClientAbort(raw, cancel)

		if err := h.lifecycle.Serve(ctx, principalID, &streamWriter{Writer: w, conn: raw}); err != nil {
			h.logger.Warn("notification stream rejected", zap.String("principal_id", principalID), zap.Error(err))
		}
	}))
	return nil
}

// watchClientAbort cancels the stream once the client hangs up. fasthttp does
// not read the connection while a body stream writer runs, and an event
// stream client never sends anything, so the read only returns on EOF or a
// closed socket.
func watchClientAbort(conn net.Conn, cancel context.CancelFunc) {
	if conn == nil {
		return
	}
	buf := make([]byte, 1)
	for {
		if _, err := conn.Read(buf); err != nil {
			cancel()
			return
		}
	}
}

// streamWriter lets a stalled write tear down the client connection.
type streamWriter struct {
	*bufio.Writer
	conn net.Conn
}

func (w *streamWriter) Abort() {
	if w.conn != nil {
		_ = w.conn.Close()
	}
}

// UnreadCount handles GET /notifications/unread.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	count, err := h.notifications.UnreadCount(c.UserContext(), principal.ID)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{Count: count}})
}

// MarkRead handles POST /notifications/read.
func (h *NotificationsHandler) MarkRead(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	if err := h.notifications.MarkAllRead(c.UserContext(), principal.ID); err != nil {
		return apperrors.NewInternalError(err)
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{Count: 0}})
}
