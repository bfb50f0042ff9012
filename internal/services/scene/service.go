// Package scene renders an AI-generated room scene for an assembled setup
// using Gemini image generation.
package scene

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Spower4/ghost-choice-backend/internal/models"
	"github.com/Spower4/ghost-choice-backend/internal/services/circuitbreaker"
	"github.com/Spower4/ghost-choice-backend/internal/services/clientcache"
	"github.com/Spower4/ghost-choice-backend/internal/services/metrics"
	"github.com/Spower4/ghost-choice-backend/internal/services/retry"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"google.golang.org/genai"
)

const defaultImageModel = "gemini-2.0-flash-exp-image-generation"

// Service generates setup scene images
type Service struct {
	cfg         models.ProviderConfig
	exec        *retry.Executor
	breaker     *circuitbreaker.CircuitBreaker
	clientCache *clientcache.Cache[*genai.Client]
}

// NewService creates a scene service
func NewService(cfg models.ProviderConfig, exec *retry.Executor, breaker *circuitbreaker.CircuitBreaker) *Service {
	return &Service{
		cfg:         cfg,
		exec:        exec,
		breaker:     breaker,
		clientCache: clientcache.NewCache[*genai.Client](),
	}
}

// Generate renders a scene image for the given products
func (s *Service) Generate(ctx context.Context, req models.SceneRequest, requestID string) (*models.SceneResponse, error) {
	if !s.cfg.Configured() {
		return nil, models.NewValidationError("scene generation requires a configured Gemini provider", nil)
	}
	if !s.breaker.CanExecute() {
		return nil, models.NewUnavailableError(models.ProviderGemini)
	}

	model := s.cfg.ImageModel
	if model == "" {
		model = defaultImageModel
	}

	resp, err := retry.DoValue(ctx, s.exec, "gemini scene", requestID, func(ctx context.Context) (*models.SceneResponse, error) {
		client, err := s.client(ctx)
		if err != nil {
			return nil, err
		}

		result, err := client.Models.GenerateContent(ctx, model,
			genai.Text(scenePrompt(req)),
			&genai.GenerateContentConfig{
				ResponseModalities: []string{"TEXT", "IMAGE"},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("gemini scene request failed: %w", err)
		}

		image := firstImage(result)
		if image == nil {
			return nil, fmt.Errorf("gemini returned no image data")
		}

		return &models.SceneResponse{
			ImageBase64: base64.StdEncoding.EncodeToString(image.Data),
			MimeType:    image.MIMEType,
			Model:       model,
		}, nil
	})
	if err != nil {
		s.breaker.RecordFailure()
		metrics.ProviderRequests.WithLabelValues(models.ProviderGemini, "error").Inc()
		return nil, err
	}

	s.breaker.RecordSuccess()
	metrics.ProviderRequests.WithLabelValues(models.ProviderGemini, "success").Inc()
	fiberlog.Infof("[%s] Scene: generated %s image with %s", requestID, resp.MimeType, model)
	return resp, nil
}

func (s *Service) client(ctx context.Context) (*genai.Client, error) {
	return s.clientCache.GetOrCreate("gemini-scene", func() (*genai.Client, error) {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  s.cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return client, nil
	})
}

func firstImage(resp *genai.GenerateContentResponse) *genai.Blob {
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}

func scenePrompt(req models.SceneRequest) string {
	var items []string
	for _, p := range req.Products {
		items = append(items, p.Title)
	}

	room := req.RoomType
	if room == "" {
		room = "room"
	}
	style := req.Style
	if style == "" {
		style = "modern"
	}

	return fmt.Sprintf("Render a photorealistic %s %s containing these products arranged naturally: %s. No text or watermarks.",
		style, room, strings.Join(items, ", "))
}
