package plan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/clientcache"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiProvider plans with the Gemini API using strict JSON output
type GeminiProvider struct {
	cfg         models.ProviderConfig
	clientCache *clientcache.Cache[*genai.Client]
}

// NewGeminiProvider creates a Gemini planning provider
func NewGeminiProvider(cfg models.ProviderConfig) *GeminiProvider {
	return &GeminiProvider{
		cfg:         cfg,
		clientCache: clientcache.NewCache[*genai.Client](),
	}
}

// Name implements Provider
func (p *GeminiProvider) Name() string {
	return models.ProviderGemini
}

// Plan implements Provider
func (p *GeminiProvider) Plan(ctx context.Context, req models.PlanRequest) (*models.BuildPlan, error) {
	client, err := p.client(ctx)
	if err != nil {
		return nil, err
	}

	model := p.cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	resp, err := client.Models.GenerateContent(ctx, model,
		genai.Text(planPrompt(req)),
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini plan request failed: %w", err)
	}

	var plan models.BuildPlan
	if err := json.Unmarshal([]byte(resp.Text()), &plan); err != nil {
		return nil, fmt.Errorf("gemini returned unparseable plan: %w", err)
	}
	return &plan, nil
}

func (p *GeminiProvider) client(ctx context.Context) (*genai.Client, error) {
	return p.clientCache.GetOrCreate("gemini", func() (*genai.Client, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  p.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, nil
	})
}
