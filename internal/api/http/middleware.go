package http

import (
	"context"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/spec-kit/storefront-live/internal/observability"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// RegisterMiddlewares attaches global middlewares. Every request gets an
// X-Request-ID first so the logger and error bodies can carry it; the request
// logger wraps the error renderer so it records the rendered status.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(requestid.New())
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorRenderer(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeout(timeout))
	}
}

// requestTimeout bounds the user context handed to services. The notification
// stream does not use it once its handler has returned.
func requestTimeout(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorRenderer turns handler errors and panics into the JSON error envelope.
func errorRenderer(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}
			domainErr := apperrors.ToDomainError(err)
			if metrics != nil {
				metrics.RecordError(c.Path(), c.Method(), domainErr.Code)
			}
			if domainErr.HTTPStatus >= http.StatusInternalServerError {
				logger.Error("request failed",
					zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
					zap.String("path", c.Path()),
					zap.Error(domainErr))
			}
			err = c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
				"error": errorBody(domainErr, c.GetRespHeader(fiber.HeaderXRequestID)),
			})
		}()
		return c.Next()
	}
}

// errorBody never tells a caller why a credential was rejected, and never
// leaks the cause of a server-side failure.
func errorBody(e *apperrors.DomainError, requestID string) fiber.Map {
	body := fiber.Map{"code": e.Code, "message": e.Message}
	switch {
	case e.HTTPStatus == http.StatusUnauthorized:
		body["code"] = "UNAUTHORIZED"
		body["message"] = "authentication required"
	case e.HTTPStatus >= http.StatusInternalServerError:
		body["message"] = http.StatusText(e.HTTPStatus)
	case len(e.Details) > 0:
		body["details"] = e.Details
	}
	if requestID != "" {
		body["request_id"] = requestID
	}
	return body
}
