package plan

import (
	"context"
	"testing"
	"time"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns a canned plan or error
type fakeProvider struct {
	plan  *models.BuildPlan
	err   error
	calls int
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Plan(_ context.Context, _ models.PlanRequest) (*models.BuildPlan, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	clone := *f.plan
	return &clone, nil
}

func fastExecutor() *retry.Executor {
	cfg := models.RetryConfig{
		MaxRetries:        1,
		BackoffMultiplier: 2.0,
		InitialDelay:      time.Millisecond,
		MaxDelay:          10 * time.Millisecond,
		RateLimitDelay:    time.Millisecond,
	}
	return retry.New(cfg, retry.WithSleep(func(context.Context, time.Duration) error { return nil }))
}

func TestPlanNoProviderUsesHeuristic(t *testing.T) {
	svc := NewService(nil, fastExecutor(), nil)

	plan := svc.Plan(context.Background(), models.PlanRequest{Query: "gaming setup", Budget: 1000}, "req_test")
	require.NotNil(t, plan)
	assert.True(t, plan.IsSetup)
}

func TestPlanProviderResultIsNormalized(t *testing.T) {
	provider := &fakeProvider{plan: &models.BuildPlan{
		IsSetup: true,
		Categories: []models.PlannedCategory{
			{Name: "Desk", Query: "desk", Amount: 10},
			{Name: "Chair", Query: "chair", Amount: 30},
		},
	}}
	svc := NewService(provider, fastExecutor(), nil)

	plan := svc.Plan(context.Background(), models.PlanRequest{Query: "office setup", Budget: 1000}, "req_test")
	require.NotNil(t, plan)
	assert.Equal(t, 1, provider.calls)

	var total float64
	for _, c := range plan.Categories {
		total += c.Amount
	}
	assert.InDelta(t, 1000, total, 0.01)
}

func TestPlanProviderFailureFallsBackToHeuristic(t *testing.T) {
	provider := &fakeProvider{err: &models.HTTPStatusError{Provider: "fake", StatusCode: 503}}
	svc := NewService(provider, fastExecutor(), nil)

	plan := svc.Plan(context.Background(), models.PlanRequest{Query: "bedroom setup", Budget: 2000}, "req_test")
	require.NotNil(t, plan)
	// MaxRetries=1 means the provider is tried twice before the fallback
	assert.Equal(t, 2, provider.calls)
	assert.True(t, plan.IsSetup)
	assert.Equal(t, "bedroom", plan.Strategy)
}

func TestPlanDegenerateProviderPlanCollapsesToHeuristic(t *testing.T) {
	provider := &fakeProvider{plan: &models.BuildPlan{IsSetup: true}}
	svc := NewService(provider, fastExecutor(), nil)

	plan := svc.Plan(context.Background(), models.PlanRequest{Query: "studio setup", Budget: 1500}, "req_test")
	require.NotNil(t, plan)
	require.NotEmpty(t, plan.Categories)
	assert.Equal(t, "studio", plan.Strategy)
}
