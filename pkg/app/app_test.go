package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/api"
	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/build"
	"github.com/Spower4/ghost-choice-backend/internal/services/cache"
	"github.com/Spower4/ghost-choice-backend/internal/services/rank"
	"github.com/Spower4/ghost-choice-backend/internal/services/request"
	"github.com/Spower4/ghost-choice-backend/internal/services/response"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestTimeoutHeaderBoundsUserContext(t *testing.T) {
	app := fiber.New()
	app.Use(requestTimeout())
	app.Get("/slow", func(c *fiber.Ctx) error {
		select {
		case <-c.UserContext().Done():
			return c.Status(fiber.StatusServiceUnavailable).SendString("deadline")
		case <-time.After(10 * time.Second):
			return c.SendString("done")
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/slow", nil)
	req.Header.Set("X-Request-Timeout", "50ms")

	start := time.Now()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRequestTimeoutDefaultsWhenHeaderAbsent(t *testing.T) {
	app := fiber.New()
	app.Use(requestTimeout())
	app.Get("/check", func(c *fiber.Ctx) error {
		deadline, ok := c.UserContext().Deadline()
		require.True(t, ok)
		assert.InDelta(t, time.Minute.Seconds(), time.Until(deadline).Seconds(), 5)
		return c.SendString("ok")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/check", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

// stallPlanner returns a one-category plan without touching a provider
type stallPlanner struct{}

func (stallPlanner) Plan(_ context.Context, req models.PlanRequest, _ string) *models.BuildPlan {
	return &models.BuildPlan{
		Categories: []models.PlannedCategory{
			{Name: "item", Query: req.Query, Amount: req.Budget, Percentage: 100},
		},
	}
}

// stallSearcher blocks until the request context expires
type stallSearcher struct{}

func (stallSearcher) Search(ctx context.Context, _ string, _ models.SearchSettings, _ string) ([]models.Product, int, error) {
	<-ctx.Done()
	return nil, 0, ctx.Err()
}

func TestShortRequestTimeoutAbortsSlowBuild(t *testing.T) {
	buildSvc := build.NewService(stallPlanner{}, stallSearcher{}, rank.NewService(),
		cache.New(models.CacheConfig{}, nil), nil)
	handler := api.NewBuildHandler(buildSvc, request.NewService(), response.NewService())

	app := fiber.New()
	app.Use(requestTimeout())
	app.Post("/v1/build", handler.Build)

	raw := []byte(`{"query":"office chair","settings":{"budget":500}}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/build", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Timeout", "100ms")

	start := time.Now()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestLimitReachedSendsRateLimitEnvelope(t *testing.T) {
	app := fiber.New()
	app.Use(limiter.New(limiter.Config{
		Max:          1,
		Expiration:   time.Minute,
		LimitReached: limitReachedHandler(request.NewService(), response.NewService()),
	}))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})

	first, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, first.StatusCode)

	second, err := app.Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, second.StatusCode)

	raw, err := io.ReadAll(second.Body)
	require.NoError(t, err)

	var body response.ErrorResponse
	require.NoError(t, json.Unmarshal(raw, &body), "body: %s", raw)
	assert.Equal(t, string(models.ErrorTypeRateLimit), body.Error.Type)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body.Error.Code)
	assert.True(t, body.Error.Retryable)
}
