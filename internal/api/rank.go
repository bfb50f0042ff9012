package api

import (
	"strings"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/rank"
	"github.com/Spower4/ghost-choice-backend/internal/services/request"
	"github.com/Spower4/ghost-choice-backend/internal/services/response"

	"github.com/gofiber/fiber/v2"
)

// RankHandler serves the standalone ranking endpoint
type RankHandler struct {
	ranker   *rank.Service
	requests *request.Service
	resp     *response.Service
}

// NewRankHandler creates a rank handler
func NewRankHandler(ranker *rank.Service, requests *request.Service, resp *response.Service) *RankHandler {
	return &RankHandler{
		ranker:   ranker,
		requests: requests,
		resp:     resp,
	}
}

// Rank handles POST /v1/rank
func (h *RankHandler) Rank(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	var req models.RankRequest
	if err := c.BodyParser(&req); err != nil {
		return h.resp.BadRequest(c, requestID, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return h.resp.BadRequest(c, requestID, "query is required")
	}

	ranked, weights := h.ranker.Rank(req.Query, req.Products, req.Weights, requestID)
	return h.resp.Success(c, models.RankResponse{Products: ranked, Weights: weights})
}
