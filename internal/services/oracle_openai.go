package services

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const openAISystemPrompt = `You are an expert at extracting structured data about rental properties in Bali, Indonesia.
CRITICAL: You MUST respond with valid JSON only. Do not add explanations or markdown.`

// OpenAIOracle extracts listings with OpenAI chat models
type OpenAIOracle struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewOpenAIOracle creates an OpenAI oracle for the given API key
func NewOpenAIOracle(apiKey, model string, temperature float32, maxTokens int) *OpenAIOracle {
	return NewOpenAIOracleWithConfig(openai.DefaultConfig(apiKey), model, temperature, maxTokens)
}

// NewOpenAIOracleWithConfig creates an OpenAI oracle with a custom client configuration
func NewOpenAIOracleWithConfig(clientConfig openai.ClientConfig, model string, temperature float32, maxTokens int) *OpenAIOracle {
	if model == "" {
		model = "gpt-4o-mini"
	}
	if maxTokens <= 0 {
		maxTokens = 4000
	}

	return &OpenAIOracle{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// ExtractFromText sends a text-only prompt
func (o *OpenAIOracle) ExtractFromText(ctx context.Context, prompt string) (string, error) {
	return o.complete(ctx, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})
}

// ExtractFromImage sends the prompt with the image encoded as a data URL
func (o *OpenAIOracle) ExtractFromImage(ctx context.Context, prompt string, image ImagePayload) (string, error) {
	if len(image.Data) == 0 {
		return "", fmt.Errorf("image payload is empty")
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", image.MIMEType, base64.StdEncoding.EncodeToString(image.Data))

	return o.complete(ctx, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: prompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL,
					Detail: openai.ImageURLDetailAuto,
				},
			},
		},
	})
}

// Name returns the provider and model
func (o *OpenAIOracle) Name() string {
	return "openai:" + o.model
}

func (o *OpenAIOracle) complete(ctx context.Context, userMessage openai.ChatCompletionMessage) (string, error) {
	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       o.model,
			Temperature: o.temperature,
			MaxTokens:   o.maxTokens,
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: openAISystemPrompt,
				},
				userMessage,
			},
		},
	)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from OpenAI")
	}

	return resp.Choices[0].Message.Content, nil
}
