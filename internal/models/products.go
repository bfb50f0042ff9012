package models

import "time"

// Product describes one recommended item. Products flow through the
// orchestrator unchanged after boundary validation.
type Product struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category,omitempty"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency"`
	Rating      float64 `json:"rating,omitempty"`
	ReviewCount int     `json:"reviewCount,omitempty"`
	Merchant    string  `json:"merchant,omitempty"`
	URL         string  `json:"url,omitempty"`
	ImageURL    string  `json:"imageUrl,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// BudgetDistribution is one slice of the budget chart
type BudgetDistribution struct {
	Category   string  `json:"category"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// Setup is an assembled shopping plan that can be shared by id
type Setup struct {
	ID          string               `json:"id"`
	Query       string               `json:"query"`
	Products    []Product            `json:"products"`
	BudgetChart []BudgetDistribution `json:"budgetChart,omitempty"`
	GhostTips   []string             `json:"ghostTips,omitempty"`
	Currency    string               `json:"currency,omitempty"`
	TotalCost   float64              `json:"totalCost,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
}

// SearchMetadata describes how a result set was produced
type SearchMetadata struct {
	Query           string    `json:"query"`
	Provider        string    `json:"provider"`
	TotalResults    int       `json:"totalResults"`
	FilteredResults int       `json:"filteredResults"`
	CacheHit        bool      `json:"cacheHit"`
	CacheTier       string    `json:"cacheTier,omitempty"`
	SearchedAt      time.Time `json:"searchedAt"`
	DurationMs      int64     `json:"durationMs"`
}

// Cache tier identifiers reported in SearchMetadata
const (
	CacheTierExact    = "exact"
	CacheTierSemantic = "semantic"
)
