package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
)

// cacheFormatVersion is baked into every search key so a payload shape
// change invalidates old entries without an explicit flush.
const cacheFormatVersion = "v2"

// searchBucket caps search-result freshness at ~10 minutes without active
// invalidation: the bucket value changes, the key changes, old entries age
// out by TTL.
const searchBucket = 10 * time.Minute

// normalizedSearch is the canonical form hashed into a search cache key
type normalizedSearch struct {
	Query      string  `json:"query"`
	Style      string  `json:"style"`
	Budget     float64 `json:"budget"`
	Currency   string  `json:"currency"`
	Region     string  `json:"region"`
	AmazonOnly bool    `json:"amazonOnly"`
	Version    string  `json:"version"`
	TimeBucket int64   `json:"timeBucket"`
}

// GenerateCacheHash produces a key-order-independent hash of any
// JSON-serializable value by round-tripping it through an untyped decode;
// map keys marshal sorted, so {a,b} and {b,a} hash identically.
func GenerateCacheHash(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache payload: %w", err)
	}

	var untyped any
	if err := json.Unmarshal(raw, &untyped); err != nil {
		return "", fmt.Errorf("failed to normalize cache payload: %w", err)
	}

	canonical, err := json.Marshal(untyped)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize cache payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("%x", sum[:16]), nil
}

// SearchKey derives the namespaced cache key for a search request at the
// given instant. The time bucket floors now to a 10-minute window.
func SearchKey(query string, settings models.SearchSettings, now time.Time) (string, error) {
	normalized := normalizedSearch{
		Query:      strings.ToLower(strings.TrimSpace(query)),
		Style:      strings.ToLower(strings.TrimSpace(settings.Style)),
		Budget:     settings.Budget,
		Currency:   strings.ToUpper(strings.TrimSpace(settings.Currency)),
		Region:     strings.ToLower(strings.TrimSpace(settings.Region)),
		AmazonOnly: settings.AmazonOnly,
		Version:    cacheFormatVersion,
		TimeBucket: now.Unix() / int64(searchBucket.Seconds()),
	}

	hash, err := GenerateCacheHash(normalized)
	if err != nil {
		return "", err
	}
	return models.CacheNamespaceSearch + hash, nil
}

// SetupKey returns the namespaced key for a shared setup id
func SetupKey(id string) string {
	return models.CacheNamespaceSetup + id
}
