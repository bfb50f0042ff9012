// Package api contains the HTTP handlers. Handlers parse and validate the
// request, delegate to a service, and send the response envelope; no
// business logic lives here.
package api

import (
	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/build"
	"github.com/Spower4/ghost-choice-backend/internal/services/request"
	"github.com/Spower4/ghost-choice-backend/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// BuildHandler serves the build, reroll, and swap endpoints
type BuildHandler struct {
	builder  *build.Service
	requests *request.Service
	resp     *response.Service
}

// NewBuildHandler creates a build handler
func NewBuildHandler(builder *build.Service, requests *request.Service, resp *response.Service) *BuildHandler {
	return &BuildHandler{
		builder:  builder,
		requests: requests,
		resp:     resp,
	}
}

// Build handles POST /v1/build
func (h *BuildHandler) Build(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	var req models.BuildRequest
	if err := c.BodyParser(&req); err != nil {
		return h.resp.BadRequest(c, requestID, "invalid request body")
	}

	fiberlog.Infof("[%s] Build: %q (budget %.2f)", requestID, req.Query, req.Settings.Budget)

	result, err := h.builder.Build(c.UserContext(), req, requestID)
	if err != nil {
		return h.resp.Error(c, requestID, err)
	}
	return h.resp.Success(c, result)
}

// Reroll handles POST /v1/reroll; same pipeline as Build with every cache
// tier bypassed.
func (h *BuildHandler) Reroll(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	var req models.BuildRequest
	if err := c.BodyParser(&req); err != nil {
		return h.resp.BadRequest(c, requestID, "invalid request body")
	}

	fiberlog.Infof("[%s] Reroll: %q", requestID, req.Query)

	result, err := h.builder.Reroll(c.UserContext(), req, requestID)
	if err != nil {
		return h.resp.Error(c, requestID, err)
	}
	return h.resp.Success(c, result)
}

// Swap handles POST /v1/swap
func (h *BuildHandler) Swap(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	var req models.SwapRequest
	if err := c.BodyParser(&req); err != nil {
		return h.resp.BadRequest(c, requestID, "invalid request body")
	}

	result, err := h.builder.Swap(c.UserContext(), req, requestID)
	if err != nil {
		return h.resp.Error(c, requestID, err)
	}
	return h.resp.Success(c, result)
}
