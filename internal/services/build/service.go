// Package build is the orchestrator: plan the purchase, fan searches out
// across categories, rank each candidate set, and assemble the response
// with the budget chart and tips.
package build

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/cache"
	"github.com/Spower4/ghost-choice-backend/internal/services/metrics"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"
)

const maxConcurrentSearches = 4

// Planner produces the build plan; planning never fails
type Planner interface {
	Plan(ctx context.Context, req models.PlanRequest, requestID string) *models.BuildPlan
}

// Searcher runs one provider query and returns filtered products plus the
// raw result count.
type Searcher interface {
	Search(ctx context.Context, query string, settings models.SearchSettings, requestID string) ([]models.Product, int, error)
}

// Ranker orders products by weighted score
type Ranker interface {
	Rank(query string, products []models.Product, weights *models.RankWeights, requestID string) ([]models.Product, models.RankWeights)
}

// Service orchestrates plan, search, and rank into a build response
type Service struct {
	planner  Planner
	searcher Searcher
	ranker   Ranker
	cache    *cache.Cache
	semantic *cache.SemanticCache
	now      func() time.Time
}

// NewService creates the build orchestrator. semantic may be nil.
func NewService(planner Planner, searcher Searcher, ranker Ranker, c *cache.Cache, semantic *cache.SemanticCache) *Service {
	return &Service{
		planner:  planner,
		searcher: searcher,
		ranker:   ranker,
		cache:    c,
		semantic: semantic,
		now:      time.Now,
	}
}

// cachedSearch is the per-category payload stored under a search key
type cachedSearch struct {
	Products   []models.Product `json:"products"`
	RawResults int              `json:"rawResults"`
}

// categoryResult pairs a planned category with its ranked products
type categoryResult struct {
	category models.PlannedCategory
	products []models.Product
	raw      int
	cacheHit bool
}

// Build runs the full pipeline for a request
func (s *Service) Build(ctx context.Context, req models.BuildRequest, requestID string) (*models.BuildResponse, error) {
	return s.build(ctx, req, requestID, false)
}

// Reroll repeats a build bypassing every cache tier so the caller gets a
// fresh result set.
func (s *Service) Reroll(ctx context.Context, req models.BuildRequest, requestID string) (*models.BuildResponse, error) {
	return s.build(ctx, req, requestID, true)
}

func (s *Service) build(ctx context.Context, req models.BuildRequest, requestID string, bypassCache bool) (*models.BuildResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, models.NewValidationError("query is required", nil)
	}
	if req.Settings.Budget <= 0 {
		return nil, models.NewValidationError("budget must be greater than zero", nil)
	}

	start := s.now()
	defer func() {
		metrics.BuildDuration.Observe(time.Since(start).Seconds())
	}()

	if !bypassCache {
		if hit, tier, ok := s.semantic.Lookup(ctx, semanticPrompt(req), requestID); ok {
			hit.SearchMetadata.CacheHit = true
			hit.SearchMetadata.CacheTier = tier
			return hit, nil
		}
	}

	plan := s.planner.Plan(ctx, models.PlanRequest{
		Query:    req.Query,
		Budget:   req.Settings.Budget,
		Currency: req.Settings.Currency,
		Style:    req.Settings.Style,
	}, requestID)

	results, err := s.searchCategories(ctx, plan, req.Settings, requestID, bypassCache)
	if err != nil {
		return nil, err
	}

	resp := s.assemble(req, plan, results, start)
	fiberlog.Infof("[%s] Build: %q produced %d products across %d categories in %v",
		requestID, req.Query, len(resp.Products), len(plan.Categories), time.Since(start))

	if !bypassCache {
		s.semantic.StoreAsync(ctx, semanticPrompt(req), *resp, requestID)
	}
	return resp, nil
}

// searchCategories fans the per-category searches out and ranks each
// result set. A single category failure fails the build.
func (s *Service) searchCategories(ctx context.Context, plan *models.BuildPlan, settings models.SearchSettings, requestID string, bypassCache bool) ([]categoryResult, error) {
	results := make([]categoryResult, len(plan.Categories))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSearches)

	for i, category := range plan.Categories {
		g.Go(func() error {
			catSettings := settings
			catSettings.Budget = category.Amount

			res, err := s.searchOne(gctx, category, catSettings, requestID, bypassCache)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) searchOne(ctx context.Context, category models.PlannedCategory, settings models.SearchSettings, requestID string, bypassCache bool) (categoryResult, error) {
	key, keyErr := cache.SearchKey(category.Query, settings, s.now())
	if keyErr != nil {
		fiberlog.Warnf("[%s] Build: cache key for %q failed, searching uncached: %v", requestID, category.Query, keyErr)
	}

	if !bypassCache && keyErr == nil {
		var hit cachedSearch
		if s.cache.GetJSON(ctx, key, &hit) {
			fiberlog.Debugf("[%s] Build: cache hit for category %q", requestID, category.Name)
			return categoryResult{category: category, products: hit.Products, raw: hit.RawResults, cacheHit: true}, nil
		}
	}

	products, raw, err := s.searcher.Search(ctx, category.Query, settings, requestID)
	if err != nil {
		return categoryResult{}, err
	}

	ranked, _ := s.ranker.Rank(category.Query, products, settings.Weights, requestID)
	for i := range ranked {
		ranked[i].Category = category.Name
	}

	if keyErr == nil {
		s.cache.SetJSON(ctx, key, cachedSearch{Products: ranked, RawResults: raw}, models.SearchResultTTL)
	}
	return categoryResult{category: category, products: ranked, raw: raw}, nil
}

// assemble flattens category results into the response. A setup takes the
// top product per category; a single-item plan returns the whole ranked
// page for its one category.
func (s *Service) assemble(req models.BuildRequest, plan *models.BuildPlan, results []categoryResult, start time.Time) *models.BuildResponse {
	var products []models.Product
	var chart []models.BudgetDistribution
	totalRaw, totalFiltered, cacheHits := 0, 0, 0

	for _, res := range results {
		totalRaw += res.raw
		totalFiltered += len(res.products)
		if res.cacheHit {
			cacheHits++
		}

		if plan.IsSetup {
			if len(res.products) > 0 {
				products = append(products, res.products[0])
			}
			chart = append(chart, models.BudgetDistribution{
				Category:   res.category.Name,
				Amount:     res.category.Amount,
				Percentage: res.category.Percentage,
			})
		} else {
			products = append(products, res.products...)
		}
	}

	if products == nil {
		products = []models.Product{}
	}

	meta := models.SearchMetadata{
		Query:           req.Query,
		Provider:        models.ProviderSerpAPI,
		TotalResults:    totalRaw,
		FilteredResults: totalFiltered,
		SearchedAt:      start.UTC(),
		DurationMs:      s.now().Sub(start).Milliseconds(),
	}
	if len(results) > 0 && cacheHits == len(results) {
		meta.CacheHit = true
		meta.CacheTier = models.CacheTierExact
	}

	return &models.BuildResponse{
		Products:       products,
		BudgetChart:    chart,
		GhostTips:      ghostTips(req, plan, products),
		SearchMetadata: meta,
		IsSetup:        plan.IsSetup,
	}
}

// Swap finds replacement candidates for one product, excluding the product
// itself and any explicitly excluded ids. Swaps always bypass the cache so
// the caller sees fresh alternatives.
func (s *Service) Swap(ctx context.Context, req models.SwapRequest, requestID string) (*models.SwapResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, models.NewValidationError("query is required", nil)
	}

	start := s.now()
	products, raw, err := s.searcher.Search(ctx, req.Query, req.Settings, requestID)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]struct{}, len(req.Exclude)+1)
	excluded[req.Product.ID] = struct{}{}
	for _, id := range req.Exclude {
		excluded[id] = struct{}{}
	}

	candidates := make([]models.Product, 0, len(products))
	for _, p := range products {
		if _, skip := excluded[p.ID]; !skip {
			candidates = append(candidates, p)
		}
	}

	ranked, _ := s.ranker.Rank(req.Query, candidates, req.Settings.Weights, requestID)
	for i := range ranked {
		ranked[i].Category = req.Product.Category
	}

	return &models.SwapResponse{
		Products: ranked,
		SearchMetadata: models.SearchMetadata{
			Query:           req.Query,
			Provider:        models.ProviderSerpAPI,
			TotalResults:    raw,
			FilteredResults: len(ranked),
			SearchedAt:      start.UTC(),
			DurationMs:      s.now().Sub(start).Milliseconds(),
		},
	}, nil
}

// semanticPrompt flattens a build request into the text keyed by the
// similarity tier.
func semanticPrompt(req models.BuildRequest) string {
	return fmt.Sprintf("%s | style=%s budget=%.0f %s region=%s amazon=%t",
		strings.ToLower(strings.TrimSpace(req.Query)),
		strings.ToLower(req.Settings.Style),
		req.Settings.Budget,
		req.Settings.Currency,
		req.Settings.Region,
		req.Settings.AmazonOnly)
}

// ghostTips derives short advisory notes from the assembled result
func ghostTips(req models.BuildRequest, plan *models.BuildPlan, products []models.Product) []string {
	tips := []string{}

	var total float64
	for _, p := range products {
		total += p.Price
	}

	switch {
	case len(products) == 0:
		tips = append(tips, "No products matched your filters. Try raising the budget or relaxing the merchant filter.")
	case total > req.Settings.Budget:
		tips = append(tips, fmt.Sprintf("This selection runs %.0f over budget. Swapping the priciest item usually closes the gap.", total-req.Settings.Budget))
	case req.Settings.Budget-total > req.Settings.Budget*0.2:
		tips = append(tips, fmt.Sprintf("You're %.0f under budget. There's room to upgrade a key item.", req.Settings.Budget-total))
	}

	if plan.IsSetup && len(products) < len(plan.Categories) {
		tips = append(tips, fmt.Sprintf("Found products for %d of %d categories. Rerolling may fill the rest.", len(products), len(plan.Categories)))
	}

	if req.Settings.AmazonOnly {
		tips = append(tips, "Amazon-only filtering is on; turning it off widens the selection.")
	}

	return tips
}
