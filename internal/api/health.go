package api

import (
	"context"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/config"
	"github.com/Spower4/ghost-choice-backend/internal/services/cache"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	cfg   *config.Config
	cache *cache.Cache
}

// NewHealthHandler creates a new health check handler
func NewHealthHandler(cfg *config.Config, c *cache.Cache) *HealthHandler {
	return &HealthHandler{cfg: cfg, cache: c}
}

// HealthCheck returns the health status of the service and its dependencies
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	cacheStatus := h.checkCache()
	searchStatus := h.checkSearchProvider()
	plannerStatus := h.cfg.PlannerProvider()

	overallStatus := "healthy"
	statusCode := fiber.StatusOK

	// A dead cache degrades but does not fail the service; a missing search
	// provider does.
	if searchStatus != "healthy" {
		overallStatus = "unhealthy"
		statusCode = fiber.StatusServiceUnavailable
	} else if cacheStatus == "unhealthy" {
		overallStatus = "degraded"
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks": fiber.Map{
			"cache":   cacheStatus,
			"search":  searchStatus,
			"planner": plannerStatus,
		},
	})
}

func (h *HealthHandler) checkCache() string {
	if !h.cache.Enabled() {
		return "disabled"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := h.cache.Ping(ctx); err != nil {
		return "unhealthy"
	}
	return "healthy"
}

func (h *HealthHandler) checkSearchProvider() string {
	if !h.cfg.Providers.SerpAPI.Configured() {
		return "unconfigured"
	}
	return "healthy"
}
