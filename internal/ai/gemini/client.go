package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/travel-buddy/internal/logger"
)

const (
	defaultModel       = "gemini-2.5-flash"
	defaultTemperature = 0.7
	providerName       = "gemini"
	responseMIMEType   = "application/json"
)

// ErrEmptyResponse is returned when Gemini answers without any text.
var ErrEmptyResponse = errors.New("gemini api returned empty response")

type modelService interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models      modelService
	modelName   string
	temperature float32
	logger      *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey, model string, temperature float32, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, model, temperature, log), nil
}

func newGenerator(models modelService, model string, temperature float32, log *zap.Logger) *Generator {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if temperature <= 0 {
		temperature = defaultTemperature
	}

	return &Generator{
		models:      models,
		modelName:   model,
		temperature: temperature,
		logger:      logger.WithCommonFields(log, providerName, model),
	}
}

// GenerateContent sends the prompt to Gemini and returns the joined textual response.
// The call is made once; retrying is left to the caller.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	temperature := g.temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: responseMIMEType,
	}

	started := time.Now()
	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), config)
	if err != nil {
		g.logger.Debug("gemini request failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return "", fmt.Errorf("generate content: %w", err)
	}

	output := joinCandidates(resp)
	if output == "" {
		return "", ErrEmptyResponse
	}

	g.logger.Debug("gemini request finished",
		zap.Duration("elapsed", time.Since(started)),
		zap.Int("response_length", len(output)),
	)

	return output, nil
}

func joinCandidates(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}
