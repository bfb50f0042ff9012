package api

import (
	"strings"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/cache"
	"github.com/Spower4/ghost-choice-backend/internal/services/rank"
	"github.com/Spower4/ghost-choice-backend/internal/services/request"
	"github.com/Spower4/ghost-choice-backend/internal/services/response"
	"github.com/Spower4/ghost-choice-backend/internal/services/search"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// SearchHandler serves the direct search endpoint
type SearchHandler struct {
	searcher *search.Service
	ranker   *rank.Service
	cache    *cache.Cache
	requests *request.Service
	resp     *response.Service
}

// NewSearchHandler creates a search handler
func NewSearchHandler(searcher *search.Service, ranker *rank.Service, c *cache.Cache, requests *request.Service, resp *response.Service) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		ranker:   ranker,
		cache:    c,
		requests: requests,
		resp:     resp,
	}
}

// cachedSearchResponse is the payload stored under a direct-search key
type cachedSearchResponse struct {
	Products   []models.Product `json:"products"`
	RawResults int              `json:"rawResults"`
}

// Search handles POST /v1/search: one provider query, ranked, cached by
// normalized settings.
func (h *SearchHandler) Search(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	var req models.SearchRequest
	if err := c.BodyParser(&req); err != nil {
		return h.resp.BadRequest(c, requestID, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return h.resp.BadRequest(c, requestID, "query is required")
	}

	start := time.Now()

	key, keyErr := cache.SearchKey(req.Query, req.Settings, start)
	if keyErr == nil {
		var hit cachedSearchResponse
		if h.cache.GetJSON(c.UserContext(), key, &hit) {
			fiberlog.Debugf("[%s] Search: cache hit for %q", requestID, req.Query)
			return h.resp.Success(c, models.SearchResponse{
				Products: hit.Products,
				SearchMetadata: models.SearchMetadata{
					Query:           req.Query,
					Provider:        models.ProviderSerpAPI,
					TotalResults:    hit.RawResults,
					FilteredResults: len(hit.Products),
					CacheHit:        true,
					CacheTier:       models.CacheTierExact,
					SearchedAt:      start.UTC(),
					DurationMs:      time.Since(start).Milliseconds(),
				},
			})
		}
	}

	products, raw, err := h.searcher.Search(c.UserContext(), req.Query, req.Settings, requestID)
	if err != nil {
		return h.resp.Error(c, requestID, err)
	}

	ranked, _ := h.ranker.Rank(req.Query, products, req.Settings.Weights, requestID)

	if keyErr == nil {
		h.cache.SetJSON(c.UserContext(), key, cachedSearchResponse{Products: ranked, RawResults: raw}, models.SearchResultTTL)
	}

	return h.resp.Success(c, models.SearchResponse{
		Products: ranked,
		SearchMetadata: models.SearchMetadata{
			Query:           req.Query,
			Provider:        models.ProviderSerpAPI,
			TotalResults:    raw,
			FilteredResults: len(ranked),
			SearchedAt:      start.UTC(),
			DurationMs:      time.Since(start).Milliseconds(),
		},
	})
}
