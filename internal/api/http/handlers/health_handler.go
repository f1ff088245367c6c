package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-live/internal/observability"
	"github.com/spec-kit/storefront-live/internal/persistence"
	"github.com/spec-kit/storefront-live/internal/stream"
)

// HealthHandler answers liveness and readiness checks.
type HealthHandler struct {
	serviceName string
	version     string
	postgres    *persistence.Postgres
	redis       *persistence.Redis
	registry    *stream.Registry
	metrics     *observability.Metrics
}

// HealthDependencies bundles what the health checks report on.
type HealthDependencies struct {
	ServiceName string
	Version     string
	Postgres    *persistence.Postgres
	Redis       *persistence.Redis
	Registry    *stream.Registry
	Metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(deps HealthDependencies) *HealthHandler {
	return &HealthHandler{
		serviceName: deps.ServiceName,
		version:     deps.Version,
		postgres:    deps.Postgres,
		redis:       deps.Redis,
		registry:    deps.Registry,
		metrics:     deps.Metrics,
	}
}

// Live reports service liveness along with stream counters.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	}
	if h.registry != nil {
		body["open_streams"] = h.registry.Len()
	}
	if h.metrics != nil {
		body["streams"] = h.metrics.Snapshot()
	}
	return c.JSON(body)
}

// Ready reports service readiness by checking dependencies. Postgres is
// reported as disabled when the service runs on in-memory stores.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	depStatus := fiber.Map{}
	ready := true

	if h.postgres.PoolHandle() == nil {
		depStatus["postgres"] = "disabled"
	} else if err := h.postgres.Ping(ctx); err != nil {
		depStatus["postgres"] = err.Error()
		ready = false
	} else {
		depStatus["postgres"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		depStatus["redis"] = err.Error()
		ready = false
	} else {
		depStatus["redis"] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
