package cache

import (
	"context"
	"fmt"

	"github.com/Spower4/ghost-choice-backend/internal/models"

	"github.com/botirk38/semanticcache"
	"github.com/botirk38/semanticcache/options"
	fiberlog "github.com/gofiber/fiber/v2/log"
)

const defaultSemanticThreshold = 0.92

// SemanticCache is the optional similarity tier in front of the exact
// cache: near-identical queries ("office chair" vs "chair for my office")
// reuse a finished build without a provider round trip.
type SemanticCache struct {
	cache     *semanticcache.SemanticCache[string, models.BuildResponse]
	threshold float32
}

// NewSemanticCache creates the similarity tier from config. Returns nil
// (disabled) when the tier is not configured; an initialization failure is
// an error because a half-configured tier is a misconfiguration, not a miss.
func NewSemanticCache(cfg models.CacheConfig) (*SemanticCache, error) {
	if cfg.Semantic == nil || !cfg.Semantic.Enabled {
		return nil, nil
	}

	if cfg.Semantic.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("semantic cache enabled but openai_api_key not set")
	}

	threshold := cfg.Semantic.Threshold
	if threshold <= 0 || threshold > 1 {
		threshold = defaultSemanticThreshold
		fiberlog.Warnf("SemanticCache: invalid threshold %.2f, using default %.2f", cfg.Semantic.Threshold, defaultSemanticThreshold)
	}

	embedModel := cfg.Semantic.EmbeddingModel
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}

	var sc *semanticcache.SemanticCache[string, models.BuildResponse]
	var err error

	switch cfg.Backend {
	case models.CacheBackendMemory:
		capacity := cfg.Capacity
		if capacity <= 0 {
			capacity = 1000
		}
		sc, err = semanticcache.New(
			options.WithOpenAIProvider[string, models.BuildResponse](cfg.Semantic.OpenAIAPIKey, embedModel),
			options.WithLRUBackend[string, models.BuildResponse](capacity),
		)
	default:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("semantic cache requires redis_url for the redis backend")
		}
		sc, err = semanticcache.New(
			options.WithOpenAIProvider[string, models.BuildResponse](cfg.Semantic.OpenAIAPIKey, embedModel),
			options.WithRedisBackend[string, models.BuildResponse](cfg.RedisURL, 0),
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create semantic cache: %w", err)
	}

	fiberlog.Info("SemanticCache: initialized")
	return &SemanticCache{cache: sc, threshold: float32(threshold)}, nil
}

// Lookup searches the tier: exact key match first, then embedding
// similarity. Errors degrade to a miss.
func (sc *SemanticCache) Lookup(ctx context.Context, prompt, requestID string) (*models.BuildResponse, string, bool) {
	if sc == nil {
		return nil, "", false
	}

	if hit, found, err := sc.cache.Get(ctx, prompt); found && err == nil {
		fiberlog.Infof("[%s] SemanticCache: exact hit", requestID)
		return &hit, models.CacheTierExact, true
	} else if err != nil {
		fiberlog.Warnf("[%s] SemanticCache: exact lookup error: %v", requestID, err)
	}

	if match, err := sc.cache.Lookup(ctx, prompt, sc.threshold); err == nil && match != nil {
		fiberlog.Infof("[%s] SemanticCache: similarity hit (score %.2f)", requestID, match.Score)
		return &match.Value, models.CacheTierSemantic, true
	} else if err != nil {
		fiberlog.Warnf("[%s] SemanticCache: similarity lookup error: %v", requestID, err)
	}

	return nil, "", false
}

// StoreAsync saves a build result to the tier, fire-and-forget
func (sc *SemanticCache) StoreAsync(ctx context.Context, prompt string, resp models.BuildResponse, requestID string) {
	if sc == nil {
		return
	}
	fiberlog.Debugf("[%s] SemanticCache: storing build result (fire-and-forget)", requestID)
	sc.cache.SetAsync(ctx, prompt, prompt, resp)
}

// Close releases the tier's resources
func (sc *SemanticCache) Close() error {
	if sc == nil || sc.cache == nil {
		return nil
	}
	return sc.cache.Close()
}
