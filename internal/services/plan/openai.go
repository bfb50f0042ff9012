package plan

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Spower4/ghost-choice-backend/internal/models"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIProvider plans with the OpenAI chat completions API
type OpenAIProvider struct {
	cfg    models.ProviderConfig
	client openai.Client
}

// NewOpenAIProvider creates an OpenAI planning provider
func NewOpenAIProvider(cfg models.ProviderConfig) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		cfg:    cfg,
		client: openai.NewClient(opts...),
	}
}

// Name implements Provider
func (p *OpenAIProvider) Name() string {
	return models.ProviderOpenAI
}

// Plan implements Provider
func (p *OpenAIProvider) Plan(ctx context.Context, req models.PlanRequest) (*models.BuildPlan, error) {
	model := p.cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	completion, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(planPrompt(req)),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai plan request failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	var plan models.BuildPlan
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &plan); err != nil {
		return nil, fmt.Errorf("openai returned unparseable plan: %w", err)
	}
	return &plan, nil
}
