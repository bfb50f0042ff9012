// Package plan decides the purchase strategy for a query: one item, or a
// multi-item setup with the budget split across categories. An AI provider
// proposes the plan; the deterministic heuristic is the fallback.
package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/circuitbreaker"
	"github.com/Spower4/ghost-choice-backend/internal/services/metrics"
	"github.com/Spower4/ghost-choice-backend/internal/services/retry"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

// Provider produces a raw plan for a request
type Provider interface {
	Name() string
	Plan(ctx context.Context, req models.PlanRequest) (*models.BuildPlan, error)
}

// Service wraps a Provider with retry, circuit breaking, and the heuristic
// fallback. A nil provider means heuristic-only planning.
type Service struct {
	provider Provider
	exec     *retry.Executor
	breaker  *circuitbreaker.CircuitBreaker
}

// NewService creates a planning service
func NewService(provider Provider, exec *retry.Executor, breaker *circuitbreaker.CircuitBreaker) *Service {
	return &Service{
		provider: provider,
		exec:     exec,
		breaker:  breaker,
	}
}

// Plan produces the build plan for a request. Provider failures after
// retries fall back to the heuristic; planning itself never fails.
func (s *Service) Plan(ctx context.Context, req models.PlanRequest, requestID string) *models.BuildPlan {
	if s.provider == nil {
		fiberlog.Debugf("[%s] Plan: no AI provider configured, using heuristic", requestID)
		return HeuristicPlan(req)
	}

	if !s.breaker.CanExecute() {
		fiberlog.Warnf("[%s] Plan: %s circuit open, using heuristic", requestID, s.provider.Name())
		return HeuristicPlan(req)
	}

	result, err := retry.DoValue(ctx, s.exec, s.provider.Name()+" plan", requestID, func(ctx context.Context) (*models.BuildPlan, error) {
		return s.provider.Plan(ctx, req)
	})
	if err != nil {
		s.breaker.RecordFailure()
		metrics.ProviderRequests.WithLabelValues(s.provider.Name(), "error").Inc()
		fiberlog.Warnf("[%s] Plan: %s failed after retries, using heuristic: %v", requestID, s.provider.Name(), err)
		return HeuristicPlan(req)
	}

	s.breaker.RecordSuccess()
	metrics.ProviderRequests.WithLabelValues(s.provider.Name(), "success").Inc()

	normalizePlan(result, req)
	fiberlog.Infof("[%s] Plan: %s proposed %d categories (setup=%t)",
		requestID, s.provider.Name(), len(result.Categories), result.IsSetup)
	return result
}

// normalizePlan repairs AI output so downstream stages can trust it: every
// category gets a query, amounts are rescaled to sum to the budget, and a
// degenerate plan collapses to the heuristic.
func normalizePlan(p *models.BuildPlan, req models.PlanRequest) {
	if len(p.Categories) == 0 {
		*p = *HeuristicPlan(req)
		return
	}

	var sum float64
	for i := range p.Categories {
		if p.Categories[i].Query == "" {
			p.Categories[i].Query = strings.TrimSpace(p.Categories[i].Name + " " + req.Style)
		}
		if p.Categories[i].Amount < 0 {
			p.Categories[i].Amount = 0
		}
		sum += p.Categories[i].Amount
	}

	if sum <= 0 || req.Budget <= 0 {
		even := 1.0 / float64(len(p.Categories))
		for i := range p.Categories {
			p.Categories[i].Amount = req.Budget * even
			p.Categories[i].Percentage = even * 100
		}
		return
	}

	scale := req.Budget / sum
	for i := range p.Categories {
		p.Categories[i].Amount *= scale
		p.Categories[i].Percentage = p.Categories[i].Amount / req.Budget * 100
	}
}

// planPrompt is the instruction shared by the AI providers
func planPrompt(req models.PlanRequest) string {
	style := req.Style
	if style == "" {
		style = "any"
	}
	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	return fmt.Sprintf(`You are a shopping planner. Decide whether the request below is for a single product or a multi-item setup, and split the budget across categories.

Request: %q
Budget: %.2f %s
Style: %s

Respond with strict JSON only, no prose, matching:
{"isSetup": bool, "strategy": string, "categories": [{"name": string, "query": string, "amount": number}]}

Rules: amounts must sum to the budget; use 1 category for a single product; use 3-6 categories for a setup; each query should be a concrete product search phrase.`,
		req.Query, req.Budget, currency, style)
}
