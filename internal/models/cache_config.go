package models

import "time"

// Cache backend types
const (
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

// Key namespace prefixes per logical purpose
const (
	CacheNamespaceSearch  = "search:"
	CacheNamespaceSetup   = "setup:"
	CacheNamespaceGeneric = "generic:"
)

// Default TTLs per data kind
const (
	SearchResultTTL = 1 * time.Hour
	SharedSetupTTL  = 7 * 24 * time.Hour
	GenericTTL      = 10 * time.Minute
)

// SemanticCacheConfig enables the optional embedding-similarity tier in
// front of the exact cache.
type SemanticCacheConfig struct {
	Enabled        bool    `yaml:"enabled"`
	OpenAIAPIKey   string  `yaml:"openai_api_key"`
	EmbeddingModel string  `yaml:"embedding_model"`
	Threshold      float64 `yaml:"threshold"`
}

// CacheConfig configures the cache accessor
type CacheConfig struct {
	Enabled  bool                 `yaml:"enabled"`
	Backend  string               `yaml:"backend"`
	RedisURL string               `yaml:"redis_url"`
	Capacity int                  `yaml:"capacity"`
	Semantic *SemanticCacheConfig `yaml:"semantic,omitempty"`
}
