package api

import (
	"strings"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/plan"
	"github.com/Spower4/ghost-choice-backend/internal/services/request"
	"github.com/Spower4/ghost-choice-backend/internal/services/response"

	"github.com/gofiber/fiber/v2"
)

// PlanHandler serves the standalone planning endpoint
type PlanHandler struct {
	planner  *plan.Service
	requests *request.Service
	resp     *response.Service
}

// NewPlanHandler creates a plan handler
func NewPlanHandler(planner *plan.Service, requests *request.Service, resp *response.Service) *PlanHandler {
	return &PlanHandler{
		planner:  planner,
		requests: requests,
		resp:     resp,
	}
}

// Plan handles POST /v1/plan
func (h *PlanHandler) Plan(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	var req models.PlanRequest
	if err := c.BodyParser(&req); err != nil {
		return h.resp.BadRequest(c, requestID, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return h.resp.BadRequest(c, requestID, "query is required")
	}
	if req.Budget <= 0 {
		return h.resp.BadRequest(c, requestID, "budget must be greater than zero")
	}

	result := h.planner.Plan(c.UserContext(), req, requestID)
	return h.resp.Success(c, result)
}
