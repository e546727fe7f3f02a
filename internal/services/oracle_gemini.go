package services

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiModels is the subset of *genai.Models used by GeminiOracle
type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOracle extracts listings with Google's Gemini models
type GeminiOracle struct {
	models      geminiModels
	model       string
	temperature float32
}

// NewGeminiOracle creates a Gemini oracle for the given API key
func NewGeminiOracle(ctx context.Context, apiKey, model string, temperature float32) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiOracle{
		models:      client.Models,
		model:       model,
		temperature: temperature,
	}, nil
}

// ExtractFromText sends a text-only prompt
func (g *GeminiOracle) ExtractFromText(ctx context.Context, prompt string) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	return g.generate(ctx, parts)
}

// ExtractFromImage sends the prompt with the image as an inline part
func (g *GeminiOracle) ExtractFromImage(ctx context.Context, prompt string, image ImagePayload) (string, error) {
	if len(image.Data) == 0 {
		return "", fmt.Errorf("image payload is empty")
	}
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image.Data, image.MIMEType),
	}
	return g.generate(ctx, parts)
}

// Name returns the provider and model
func (g *GeminiOracle) Name() string {
	return "gemini:" + g.model
}

func (g *GeminiOracle) generate(ctx context.Context, parts []*genai.Part) (string, error) {
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temperature),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates from Gemini")
	}

	return resp.Text(), nil
}
