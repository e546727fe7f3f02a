package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"rental-listing-analyzer/internal/models"
)

// ListingAnalyzer runs the extraction pipeline for one listing:
// prompt, oracle call, parse and reconcile, then validation.
type ListingAnalyzer struct {
	secrets   SecretProvider
	newOracle OracleFactory
	logger    *zap.Logger
	now       func() time.Time
}

// AnalysisOutcome is the result of a successful analysis
type AnalysisOutcome struct {
	Listing     *models.CanonicalListing
	Validation  models.ValidationResult
	Reasoning   string
	Oracle      string
	ProcessedAt time.Time
	Duration    time.Duration
}

// NewListingAnalyzer creates an analyzer
func NewListingAnalyzer(secrets SecretProvider, newOracle OracleFactory, logger *zap.Logger) *ListingAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingAnalyzer{
		secrets:   secrets,
		newOracle: newOracle,
		logger:    logger,
		now:       time.Now,
	}
}

// Analyze extracts a canonical listing from text or an image. The credential
// is fetched before the oracle is built, and the oracle is called once.
// Validation issues are logged and returned, never raised.
func (a *ListingAnalyzer) Analyze(ctx context.Context, input *models.RawListingInput) (*AnalysisOutcome, error) {
	start := a.now()

	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("invalid listing input: %w", err)
	}

	apiKey, err := a.secrets.GetAPIKey(ctx)
	if err != nil {
		return nil, err
	}

	oracle, err := a.newOracle(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction oracle: %w", err)
	}

	logger := a.logger.With(
		zap.String("input_kind", string(input.Kind())),
		zap.String("oracle", oracle.Name()),
	)

	var (
		raw  string
		opts ParseOptions
	)
	switch input.Kind() {
	case models.InputKindImage:
		logger.Info("Analyzing listing image",
			zap.String("mime_type", input.SourceImage.MIMEType),
			zap.Int("bytes", len(input.SourceImage.Data)))
		raw, err = oracle.ExtractFromImage(ctx, BuildImagePrompt(), ImagePayload{
			Data:     input.SourceImage.Data,
			MIMEType: input.SourceImage.MIMEType,
		})
	default:
		logger.Info("Analyzing listing text", zap.Int("chars", len([]rune(input.SourceText))))
		opts.DetectedCurrency = DetectCurrency(input.SourceText)
		raw, err = oracle.ExtractFromText(ctx, BuildTextPrompt(NormalizePriceText(input.SourceText)))
	}
	if err != nil {
		return nil, fmt.Errorf("extraction oracle %s failed: %w", oracle.Name(), err)
	}

	result, err := ParseOracleResponse(raw, opts)
	if err != nil {
		logger.Error("Failed to parse oracle response", zap.Error(err), zap.String("response", raw))
		return nil, err
	}

	if result.Reasoning != "" {
		logger.Debug("Oracle reasoning", zap.String("reasoning", result.Reasoning))
	}

	validation := ValidateListing(result.Listing)
	if !validation.IsValid {
		logger.Warn("Extracted listing has validation issues", zap.Strings("issues", validation.Issues))
	}

	processedAt := a.now()
	logger.Info("Listing analysis complete",
		zap.String("currency", string(result.Listing.Currency)),
		zap.Bool("valid", validation.IsValid),
		zap.Int64("elapsed_ms", processedAt.Sub(start).Milliseconds()))

	return &AnalysisOutcome{
		Listing:     result.Listing,
		Validation:  validation,
		Reasoning:   result.Reasoning,
		Oracle:      oracle.Name(),
		ProcessedAt: processedAt,
		Duration:    processedAt.Sub(start),
	}, nil
}

// AnalyzeListing runs Analyze and returns only the listing
func (a *ListingAnalyzer) AnalyzeListing(ctx context.Context, input *models.RawListingInput) (*models.CanonicalListing, error) {
	outcome, err := a.Analyze(ctx, input)
	if err != nil {
		return nil, err
	}
	return outcome.Listing, nil
}
