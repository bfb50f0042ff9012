package api

import (
	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/request"
	"github.com/Spower4/ghost-choice-backend/internal/services/response"
	"github.com/Spower4/ghost-choice-backend/internal/services/setups"

	"github.com/gofiber/fiber/v2"
)

// SetupsHandler serves setup sharing
type SetupsHandler struct {
	setups   *setups.Service
	requests *request.Service
	resp     *response.Service
}

// NewSetupsHandler creates a setups handler
func NewSetupsHandler(svc *setups.Service, requests *request.Service, resp *response.Service) *SetupsHandler {
	return &SetupsHandler{
		setups:   svc,
		requests: requests,
		resp:     resp,
	}
}

// Share handles POST /v1/setups
func (h *SetupsHandler) Share(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	var req models.ShareSetupRequest
	if err := c.BodyParser(&req); err != nil {
		return h.resp.BadRequest(c, requestID, "invalid request body")
	}

	result, err := h.setups.Share(c.UserContext(), req.Setup, requestID)
	if err != nil {
		return h.resp.Error(c, requestID, err)
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

// Get handles GET /v1/setups/:id
func (h *SetupsHandler) Get(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	setup, err := h.setups.Get(c.UserContext(), c.Params("id"), requestID)
	if err != nil {
		return h.resp.Error(c, requestID, err)
	}
	return h.resp.Success(c, setup)
}
