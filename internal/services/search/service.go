// Package search calls the SerpAPI Google Shopping engine and maps its
// results into products. Zero results is a successful empty slice.
package search

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/apiclient"
	"github.com/Spower4/ghost-choice-backend/internal/services/circuitbreaker"
	"github.com/Spower4/ghost-choice-backend/internal/services/metrics"
	"github.com/Spower4/ghost-choice-backend/internal/services/retry"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

const (
	defaultBaseURL     = "https://serpapi.com"
	defaultResultCount = 10
	maxResultCount     = 40
)

// serpResponse is the subset of the SerpAPI payload we consume
type serpResponse struct {
	ShoppingResults []serpShoppingResult `json:"shopping_results"`
	Error           string               `json:"error,omitempty"`
}

type serpShoppingResult struct {
	Position       int     `json:"position"`
	ProductID      string  `json:"product_id"`
	Title          string  `json:"title"`
	Link           string  `json:"link"`
	ProductLink    string  `json:"product_link"`
	Source         string  `json:"source"`
	ExtractedPrice float64 `json:"extracted_price"`
	Rating         float64 `json:"rating"`
	Reviews        int     `json:"reviews"`
	Thumbnail      string  `json:"thumbnail"`
}

// Service queries the product-search provider
type Service struct {
	client  *apiclient.Client
	apiKey  string
	exec    *retry.Executor
	breaker *circuitbreaker.CircuitBreaker
}

// NewService creates a search service. baseURL is overridable for tests.
func NewService(providerCfg models.ProviderConfig, exec *retry.Executor, breaker *circuitbreaker.CircuitBreaker) *Service {
	baseURL := providerCfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Service{
		client:  apiclient.NewClient(models.ProviderSerpAPI, baseURL),
		apiKey:  providerCfg.APIKey,
		exec:    exec,
		breaker: breaker,
	}
}

// Search runs one provider query with retry and circuit breaking applied,
// then filters by the settings. Returns the filtered products and the raw
// result count before filtering.
func (s *Service) Search(ctx context.Context, query string, settings models.SearchSettings, requestID string) ([]models.Product, int, error) {
	if !s.breaker.CanExecute() {
		return nil, 0, models.NewUnavailableError(models.ProviderSerpAPI)
	}

	count := settings.ResultCount
	if count <= 0 {
		count = defaultResultCount
	}
	if count > maxResultCount {
		count = maxResultCount
	}

	params := map[string]string{
		"engine":  "google_shopping",
		"q":       query,
		"api_key": s.apiKey,
		"num":     strconv.Itoa(count * 2), // fetch extra so filtering still fills the page
	}
	if settings.Region != "" {
		params["gl"] = settings.Region
	}
	if settings.Currency != "" {
		params["currency"] = settings.Currency
	}

	start := time.Now()
	resp, err := retry.DoValue(ctx, s.exec, "serpapi search", requestID, func(ctx context.Context) (*serpResponse, error) {
		var out serpResponse
		if err := s.client.Get(ctx, "/search.json", &out, &apiclient.RequestOptions{QueryParams: params}); err != nil {
			return nil, err
		}
		if out.Error != "" {
			return nil, fmt.Errorf("serpapi error: %s", out.Error)
		}
		return &out, nil
	})
	if err != nil {
		s.breaker.RecordFailure()
		metrics.ProviderRequests.WithLabelValues(models.ProviderSerpAPI, "error").Inc()
		return nil, 0, err
	}

	s.breaker.RecordSuccess()
	metrics.ProviderRequests.WithLabelValues(models.ProviderSerpAPI, "success").Inc()

	products := make([]models.Product, 0, len(resp.ShoppingResults))
	for _, r := range resp.ShoppingResults {
		products = append(products, mapResult(r, settings.Currency))
	}

	filtered := FilterProducts(products, settings)
	if len(filtered) > count {
		filtered = filtered[:count]
	}

	fiberlog.Infof("[%s] Search: %q returned %d results (%d after filtering) in %v",
		requestID, query, len(products), len(filtered), time.Since(start))

	return filtered, len(products), nil
}

func mapResult(r serpShoppingResult, currency string) models.Product {
	id := r.ProductID
	if id == "" {
		id = fmt.Sprintf("serp-%d", r.Position)
	}

	url := r.Link
	if url == "" {
		url = r.ProductLink
	}

	return models.Product{
		ID:          id,
		Title:       r.Title,
		Price:       r.ExtractedPrice,
		Currency:    currency,
		Rating:      r.Rating,
		ReviewCount: r.Reviews,
		Merchant:    r.Source,
		URL:         url,
		ImageURL:    r.Thumbnail,
	}
}
