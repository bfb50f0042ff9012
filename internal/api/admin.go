package api

import (
	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/cache"
	"github.com/Spower4/ghost-choice-backend/internal/services/notify"
	"github.com/Spower4/ghost-choice-backend/internal/services/request"
	"github.com/Spower4/ghost-choice-backend/internal/services/response"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

// AdminHandler serves operational endpoints
type AdminHandler struct {
	cache    *cache.Cache
	notifier *notify.Notifier
	requests *request.Service
	resp     *response.Service
}

// NewAdminHandler creates an admin handler
func NewAdminHandler(c *cache.Cache, notifier *notify.Notifier, requests *request.Service, resp *response.Service) *AdminHandler {
	return &AdminHandler{
		cache:    c,
		notifier: notifier,
		requests: requests,
		resp:     resp,
	}
}

// ClearCache handles POST /admin/cache/clear. An optional "namespace" query
// parameter limits the flush; default clears search results only, leaving
// shared setups intact.
func (h *AdminHandler) ClearCache(c *fiber.Ctx) error {
	requestID := h.requests.GetRequestID(c)

	namespace := c.Query("namespace", "search")
	var prefix string
	switch namespace {
	case "search":
		prefix = models.CacheNamespaceSearch
	case "setup":
		prefix = models.CacheNamespaceSetup
	case "generic":
		prefix = models.CacheNamespaceGeneric
	default:
		return h.resp.BadRequest(c, requestID, "unknown namespace: "+namespace)
	}

	removed := h.cache.FlushNamespace(c.UserContext(), prefix)
	fiberlog.Infof("[%s] Admin: flushed %d keys from namespace %q", requestID, removed, namespace)
	h.notifier.Sendf("Cache flush: %d keys removed from %q", removed, namespace)

	return h.resp.Success(c, fiber.Map{
		"namespace": namespace,
		"removed":   removed,
	})
}
