package api

import (
	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/request"
	"github.com/Spower4/ghost-choice-backend/internal/services/response"
	"github.com/Spower4/ghost-choice-backend/internal/services/scene"

	"github.com/gofiber/fiber/v2"
)

// SceneHandler serves the AI scene rendering endpoint
type SceneHandler struct {
	scenes   *scene.Service
	requests *request.Service
	resp     *response.Service
}

// NewSceneHandler creates a scene handler
func NewSceneHandler(scenes *scene.Service, requests *request.Service, resp *response.Service) *SceneHandler {
	return &SceneHandler{
		scenes:   scenes,
		requests: requests,
		resp:     resp,
	}
}

// Generate handles POST /v1/ai-scene
func (h *SceneHandler) Generate(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	var req models.SceneRequest
	if err := c.BodyParser(&req); err != nil {
		return h.resp.BadRequest(c, requestID, "invalid request body")
	}
	if len(req.Products) == 0 {
		return h.resp.BadRequest(c, requestID, "at least one product is required")
	}

	result, err := h.scenes.Generate(c.UserContext(), req, requestID)
	if err != nil {
		return h.resp.Error(c, requestID, err)
	}
	return h.resp.Success(c, result)
}
