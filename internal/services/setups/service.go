// Package setups persists shared setups under short random ids so a build
// result can be passed around as a link.
package setups

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/cache"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const idBytes = 9

// Service stores and resolves shared setups
type Service struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewService creates a setup sharing service
func NewService(c *cache.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = models.SharedSetupTTL
	}
	return &Service{cache: c, ttl: ttl}
}

// Share saves a setup and returns its share id. Sharing requires a live
// cache backend; unlike search caching this is not best-effort.
func (s *Service) Share(ctx context.Context, setup models.Setup, requestID string) (*models.ShareSetupResponse, error) {
	if !s.cache.Enabled() {
		return nil, models.NewInternalError("setup sharing requires a cache backend", nil)
	}
	if len(setup.Products) == 0 {
		return nil, models.NewValidationError("setup must contain at least one product", nil)
	}

	id, err := newShareID()
	if err != nil {
		return nil, models.NewInternalError("failed to generate share id", err)
	}

	setup.ID = id
	setup.CreatedAt = time.Now().UTC()
	if setup.TotalCost == 0 {
		for _, p := range setup.Products {
			setup.TotalCost += p.Price
		}
	}

	s.cache.SetJSON(ctx, cache.SetupKey(id), setup, s.ttl)

	// SetJSON swallows backend errors, so read back to confirm the setup
	// actually landed before handing out the id.
	var stored models.Setup
	if !s.cache.GetJSON(ctx, cache.SetupKey(id), &stored) {
		return nil, models.NewInternalError("failed to persist shared setup", nil)
	}

	fiberlog.Infof("[%s] Setups: shared setup %s with %d products", requestID, id, len(setup.Products))
	return &models.ShareSetupResponse{ID: id}, nil
}

// Get resolves a shared setup by id
func (s *Service) Get(ctx context.Context, id string, requestID string) (*models.Setup, error) {
	if id == "" {
		return nil, models.NewValidationError("setup id is required", nil)
	}

	var setup models.Setup
	if !s.cache.GetJSON(ctx, cache.SetupKey(id), &setup) {
		return nil, &models.AppError{
			Type:       models.ErrorTypeValidation,
			Message:    fmt.Sprintf("setup %q not found or expired", id),
			Code:       "SETUP_NOT_FOUND",
			StatusCode: 404,
		}
	}

	fiberlog.Debugf("[%s] Setups: resolved setup %s", requestID, id)
	return &setup, nil
}

// newShareID returns a short URL-safe random id
func newShareID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
