//go:build integration

package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"rental-listing-analyzer/internal/models"
)

// These are integration tests that make real oracle API calls
// Run with: GEMINI_API_KEY=... go test -tags=integration ./internal/services -run Integration -v

func integrationAnalyzer(t *testing.T) *ListingAnalyzer {
	t.Helper()
	if os.Getenv("SKIP_INTEGRATION_TESTS") == "true" {
		t.Skip("Skipping integration test")
	}
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("Skipping integration test - GEMINI_API_KEY not set")
	}

	factory := func(ctx context.Context, key string) (Oracle, error) {
		return NewGeminiOracle(ctx, key, os.Getenv("GEMINI_MODEL"), 0.1)
	}
	return NewListingAnalyzer(StaticSecretProvider{Key: apiKey}, factory, zaptest.NewLogger(t))
}

func TestIntegration_YearlyOnlyListing(t *testing.T) {
	analyzer := integrationAnalyzer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outcome, err := analyzer.Analyze(ctx, &models.RawListingInput{
		SourceText: "Villa for rent in Padang Linjong, 2 bedrooms 2 bathrooms, land 3 Are. IDR 300,000,000 per year, min take 3 year.",
	})
	require.NoError(t, err)

	listing := outcome.Listing
	t.Logf("Extracted: title=%q area=%v currency=%s", listing.Title, listing.LocationArea, listing.Currency)

	assert.Equal(t, models.CurrencyIDR, listing.Currency)
	require.NotNil(t, listing.YearlyRent)
	assert.Equal(t, 300000000.0, *listing.YearlyRent)
	if listing.MinimumStay != nil {
		assert.Equal(t, 36, *listing.MinimumStay)
	}
	if listing.LocationArea != nil {
		assert.NotEqual(t, "Bali", *listing.LocationArea)
	}
}

func TestIntegration_USDListing(t *testing.T) {
	analyzer := integrationAnalyzer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outcome, err := analyzer.Analyze(ctx, &models.RawListingInput{
		SourceText: "Cozy 1BR guesthouse in Pererenan, $1,200/month, furnished, no pets.",
	})
	require.NoError(t, err)

	assert.Equal(t, models.CurrencyUSD, outcome.Listing.Currency)
	require.NotNil(t, outcome.Listing.MonthlyRent)
	assert.Equal(t, 1200.0, *outcome.Listing.MonthlyRent)
	t.Logf("Validation: %+v", outcome.Validation)
}
