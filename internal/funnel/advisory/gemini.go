package advisory

import (
	"context"
	"fmt"

	apperrors "compound-site/internal/common/errors"

	"google.golang.org/genai"
)

var ErrMissingCredential = apperrors.Sentinel(apperrors.ErrCodeAdvisoryUnavailable, "No model API key configured and demo mode is off")

// Generator produces the raw JSON verdict text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini generateContent API with a JSON response schema.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, cfg *Config) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingCredential
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiGenerator{client: client, model: cfg.Model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("GenAI generate failed: %w", err)
	}
	return resp.Text(), nil
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"eligible":       {Type: genai.TypeBoolean},
			"score":          {Type: genai.TypeInteger, Description: "Fit score from 0 to 100"},
			"reasoning":      {Type: genai.TypeString},
			"recommendation": {Type: genai.TypeString, Description: "Specific advice for their application"},
		},
		Required: []string{"eligible", "score", "reasoning", "recommendation"},
	}
}
