package services

import (
	"context"
	"fmt"

	"rental-listing-analyzer/internal/config"
)

// ImagePayload is an inline image sent to the oracle alongside the prompt
type ImagePayload struct {
	Data     []byte
	MIMEType string
}

// Oracle is an external text/vision completion service. Implementations make
// exactly one attempt per call and return the raw response text; any failure
// is returned to the caller unchanged.
type Oracle interface {
	ExtractFromText(ctx context.Context, prompt string) (string, error)
	ExtractFromImage(ctx context.Context, prompt string, image ImagePayload) (string, error)
	Name() string
}

// OracleFactory builds an oracle once the API credential is known
type OracleFactory func(ctx context.Context, apiKey string) (Oracle, error)

// NewOracleFactory returns the factory for the configured provider
func NewOracleFactory(cfg *config.Config) (OracleFactory, error) {
	switch cfg.OracleProvider {
	case config.ProviderGemini:
		return func(ctx context.Context, apiKey string) (Oracle, error) {
			return NewGeminiOracle(ctx, apiKey, cfg.GeminiModel, cfg.OracleTemperature)
		}, nil
	case config.ProviderOpenAI:
		return func(ctx context.Context, apiKey string) (Oracle, error) {
			return NewOpenAIOracle(apiKey, cfg.OpenAIModel, cfg.OracleTemperature, cfg.OracleMaxTokens), nil
		}, nil
	case config.ProviderMock:
		if !cfg.LocalDev {
			return nil, fmt.Errorf("oracle provider %q is only available when IS_OFFLINE=true", cfg.OracleProvider)
		}
		return func(ctx context.Context, apiKey string) (Oracle, error) {
			return NewMockOracle(), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.OracleProvider)
	}
}
