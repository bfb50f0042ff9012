package build

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlanner returns a fixed plan
type fakePlanner struct {
	plan *models.BuildPlan
}

func (f *fakePlanner) Plan(_ context.Context, req models.PlanRequest, _ string) *models.BuildPlan {
	if f.plan != nil {
		clone := *f.plan
		return &clone
	}
	return &models.BuildPlan{
		IsSetup:  false,
		Strategy: "single",
		Categories: []models.PlannedCategory{
			{Name: "Item", Query: req.Query, Amount: req.Budget, Percentage: 100},
		},
	}
}

// fakeSearcher serves canned products per query and counts calls
type fakeSearcher struct {
	mu       sync.Mutex
	results  map[string][]models.Product
	err      error
	calls    int
	perQuery map[string]int
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{
		results:  make(map[string][]models.Product),
		perQuery: make(map[string]int),
	}
}

func (f *fakeSearcher) Search(_ context.Context, query string, _ models.SearchSettings, _ string) ([]models.Product, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.perQuery[query]++
	if f.err != nil {
		return nil, 0, f.err
	}
	products := f.results[query]
	return products, len(products), nil
}

// passRanker returns products unchanged
type passRanker struct{}

func (passRanker) Rank(_ string, products []models.Product, weights *models.RankWeights, _ string) ([]models.Product, models.RankWeights) {
	resolved := models.DefaultRankWeights()
	if weights != nil && !weights.IsZero() {
		resolved = *weights
	}
	return products, resolved
}

func memCache(t *testing.T) *cache.Cache {
	t.Helper()
	c := cache.New(models.CacheConfig{Enabled: true, Backend: models.CacheBackendMemory, Capacity: 100}, nil)
	require.True(t, c.Enabled())
	return c
}

func newTestService(planner Planner, searcher Searcher) *Service {
	svc := NewService(planner, searcher, passRanker{}, cache.New(models.CacheConfig{}, nil), nil)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func TestBuildRejectsEmptyQuery(t *testing.T) {
	svc := newTestService(&fakePlanner{}, newFakeSearcher())

	_, err := svc.Build(context.Background(), models.BuildRequest{
		Query:    "   ",
		Settings: models.SearchSettings{Budget: 100},
	}, "req_test")

	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.ErrorTypeValidation, appErr.Type)
}

func TestBuildRejectsZeroBudget(t *testing.T) {
	svc := newTestService(&fakePlanner{}, newFakeSearcher())

	_, err := svc.Build(context.Background(), models.BuildRequest{Query: "desk"}, "req_test")
	require.Error(t, err)
}

func TestBuildEmptySearchIsSuccess(t *testing.T) {
	searcher := newFakeSearcher()
	svc := newTestService(&fakePlanner{}, searcher)

	resp, err := svc.Build(context.Background(), models.BuildRequest{
		Query:    "obscure widget",
		Settings: models.SearchSettings{Budget: 100},
	}, "req_test")

	require.NoError(t, err)
	require.NotNil(t, resp.Products)
	assert.Empty(t, resp.Products)
	assert.NotEmpty(t, resp.GhostTips)
}

func TestBuildSingleItemReturnsRankedPage(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["desk"] = []models.Product{
		{ID: "p1", Title: "desk one", Price: 90},
		{ID: "p2", Title: "desk two", Price: 95},
	}
	svc := newTestService(&fakePlanner{}, searcher)

	resp, err := svc.Build(context.Background(), models.BuildRequest{
		Query:    "desk",
		Settings: models.SearchSettings{Budget: 100},
	}, "req_test")

	require.NoError(t, err)
	assert.False(t, resp.IsSetup)
	assert.Len(t, resp.Products, 2)
	assert.Empty(t, resp.BudgetChart)
	assert.Equal(t, 2, resp.SearchMetadata.TotalResults)
}

func setupPlan() *models.BuildPlan {
	return &models.BuildPlan{
		IsSetup:  true,
		Strategy: "office",
		Categories: []models.PlannedCategory{
			{Name: "Desk", Query: "office desk", Amount: 350, Percentage: 70},
			{Name: "Chair", Query: "office chair", Amount: 150, Percentage: 30},
		},
	}
}

func TestBuildSetupTakesTopProductPerCategory(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["office desk"] = []models.Product{
		{ID: "d1", Title: "desk winner", Price: 300},
		{ID: "d2", Title: "desk runner-up", Price: 320},
	}
	searcher.results["office chair"] = []models.Product{
		{ID: "c1", Title: "chair winner", Price: 140},
	}
	svc := newTestService(&fakePlanner{plan: setupPlan()}, searcher)

	resp, err := svc.Build(context.Background(), models.BuildRequest{
		Query:    "office setup",
		Settings: models.SearchSettings{Budget: 500},
	}, "req_test")

	require.NoError(t, err)
	assert.True(t, resp.IsSetup)
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "d1", resp.Products[0].ID)
	assert.Equal(t, "Desk", resp.Products[0].Category)
	assert.Equal(t, "c1", resp.Products[1].ID)

	require.Len(t, resp.BudgetChart, 2)
	assert.Equal(t, "Desk", resp.BudgetChart[0].Category)
	assert.InDelta(t, 70, resp.BudgetChart[0].Percentage, 0.01)
}

func TestBuildSearchFailureFailsBuild(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.err = &models.HTTPStatusError{Provider: "serpapi", StatusCode: 502}
	svc := newTestService(&fakePlanner{}, searcher)

	_, err := svc.Build(context.Background(), models.BuildRequest{
		Query:    "desk",
		Settings: models.SearchSettings{Budget: 100},
	}, "req_test")

	require.Error(t, err)
}

func TestBuildSecondCallHitsCache(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["desk"] = []models.Product{{ID: "p1", Title: "desk", Price: 90}}
	svc := NewService(&fakePlanner{}, searcher, passRanker{}, memCache(t), nil)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	req := models.BuildRequest{Query: "desk", Settings: models.SearchSettings{Budget: 100}}

	first, err := svc.Build(context.Background(), req, "req_a")
	require.NoError(t, err)
	assert.False(t, first.SearchMetadata.CacheHit)
	assert.Equal(t, 1, searcher.calls)

	second, err := svc.Build(context.Background(), req, "req_b")
	require.NoError(t, err)
	assert.Equal(t, 1, searcher.calls, "second build should be served from cache")
	assert.True(t, second.SearchMetadata.CacheHit)
	assert.Equal(t, models.CacheTierExact, second.SearchMetadata.CacheTier)
	assert.Equal(t, first.Products, second.Products)
}

func TestRerollBypassesCache(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["desk"] = []models.Product{{ID: "p1", Title: "desk", Price: 90}}
	svc := NewService(&fakePlanner{}, searcher, passRanker{}, memCache(t), nil)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	req := models.BuildRequest{Query: "desk", Settings: models.SearchSettings{Budget: 100}}

	_, err := svc.Build(context.Background(), req, "req_a")
	require.NoError(t, err)

	_, err = svc.Reroll(context.Background(), req, "req_b")
	require.NoError(t, err)
	assert.Equal(t, 2, searcher.calls, "reroll must reach the provider")
}

func TestBuildCacheDisabledStillWorks(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["desk"] = []models.Product{{ID: "p1", Title: "desk", Price: 90}}
	svc := newTestService(&fakePlanner{}, searcher)

	_, err := svc.Build(context.Background(), models.BuildRequest{
		Query:    "desk",
		Settings: models.SearchSettings{Budget: 100},
	}, "req_a")
	require.NoError(t, err)

	_, err = svc.Build(context.Background(), models.BuildRequest{
		Query:    "desk",
		Settings: models.SearchSettings{Budget: 100},
	}, "req_b")
	require.NoError(t, err)
	assert.Equal(t, 2, searcher.calls)
}

func TestSwapExcludesCurrentAndListedProducts(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.results["office chair"] = []models.Product{
		{ID: "keep1", Title: "chair a", Price: 100},
		{ID: "current", Title: "chair b", Price: 110},
		{ID: "banned", Title: "chair c", Price: 120},
		{ID: "keep2", Title: "chair d", Price: 130},
	}
	svc := newTestService(&fakePlanner{}, searcher)

	resp, err := svc.Swap(context.Background(), models.SwapRequest{
		Query:    "office chair",
		Product:  models.Product{ID: "current", Category: "Chair"},
		Settings: models.SearchSettings{Budget: 150},
		Exclude:  []string{"banned"},
	}, "req_test")

	require.NoError(t, err)
	require.Len(t, resp.Products, 2)
	for _, p := range resp.Products {
		assert.NotEqual(t, "current", p.ID)
		assert.NotEqual(t, "banned", p.ID)
		assert.Equal(t, "Chair", p.Category)
	}
}

func TestSwapRequiresQuery(t *testing.T) {
	svc := newTestService(&fakePlanner{}, newFakeSearcher())

	_, err := svc.Swap(context.Background(), models.SwapRequest{}, "req_test")
	require.Error(t, err)
}

func TestGhostTipsOverBudget(t *testing.T) {
	tips := ghostTips(
		models.BuildRequest{Settings: models.SearchSettings{Budget: 100}},
		&models.BuildPlan{},
		[]models.Product{{Price: 150}},
	)
	require.NotEmpty(t, tips)
	assert.Contains(t, tips[0], "over budget")
}
