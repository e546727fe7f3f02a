package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rental-listing-analyzer/internal/models"
)

// Batch run modes
const (
	BatchModeLocal  = "local"
	BatchModeRemote = "remote"
)

// yearlyMonthlyMismatchLimit is the largest allowed gap between yearlyRent/12
// and monthlyRent in a batch check
const yearlyMonthlyMismatchLimit = 1000.0

// ListingExtractor turns one raw input into a canonical listing
type ListingExtractor interface {
	AnalyzeListing(ctx context.Context, input *models.RawListingInput) (*models.CanonicalListing, error)
}

// SampleImageLoader fetches the image of an image sample
type SampleImageLoader interface {
	LoadImage(ctx context.Context, sample models.BatchSample) (*models.SourceImage, error)
}

// BatchOptions configures a batch run
type BatchOptions struct {
	Mode         string
	AllowedAreas []string
	Concurrency  int
}

// BatchRunner analyzes a set of samples and reports per-sample checks
type BatchRunner struct {
	extractor ListingExtractor
	images    SampleImageLoader
	opts      BatchOptions
	metrics   *BatchMetrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewBatchRunner creates a runner. images may be nil when no sample uses an image.
func NewBatchRunner(extractor ListingExtractor, images SampleImageLoader, opts BatchOptions, logger *zap.Logger) *BatchRunner {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if len(opts.AllowedAreas) == 0 {
		opts.AllowedAreas = models.DefaultAllowedAreas
	}
	if opts.Mode == "" {
		opts.Mode = BatchModeLocal
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchRunner{
		extractor: extractor,
		images:    images,
		opts:      opts,
		metrics:   NewBatchMetrics(),
		logger:    logger,
		now:       time.Now,
	}
}

// Metrics returns the collector fed by Run
func (r *BatchRunner) Metrics() *BatchMetrics {
	return r.metrics
}

// Run analyzes every sample. A failing sample is reported as ERROR and never
// stops the run; results keep the input order.
func (r *BatchRunner) Run(ctx context.Context, samples []models.BatchSample) (*models.BatchReport, error) {
	startedAt := r.now()
	runID := models.GenerateBatchRunID(startedAt)
	logger := r.logger.With(zap.String("run_id", runID), zap.String("mode", r.opts.Mode))
	logger.Info("Starting batch analysis",
		zap.Int("samples", len(samples)),
		zap.Int("concurrency", r.opts.Concurrency))

	results := make([]models.BatchResult, len(samples))

	var g errgroup.Group
	g.SetLimit(r.opts.Concurrency)
	for i, sample := range samples {
		g.Go(func() error {
			results[i] = r.runSample(ctx, i+1, sample, logger)
			return nil
		})
	}
	_ = g.Wait()

	report := &models.BatchReport{
		RunID:       runID,
		Mode:        r.opts.Mode,
		StartedAt:   startedAt,
		CompletedAt: r.now(),
		Summary:     r.metrics.Summary(),
		Results:     results,
	}
	r.metrics.LogSummary(logger)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("batch run interrupted: %w", err)
	}
	return report, nil
}

func (r *BatchRunner) runSample(ctx context.Context, index int, sample models.BatchSample, logger *zap.Logger) models.BatchResult {
	start := r.now()
	result := models.BatchResult{
		Index:    index,
		SampleID: sample.ID,
		Raw:      sampleRaw(sample),
	}
	if result.SampleID == "" {
		result.SampleID = models.GenerateSampleID(sample.SourceText, sample.ImageKey)
	}
	logger = logger.With(zap.Int("index", index), zap.String("sample_id", result.SampleID))

	listing, err := r.analyzeSample(ctx, sample)
	elapsed := r.now().Sub(start)
	result.ProcessingTimeMS = elapsed.Milliseconds()

	if err != nil {
		result.Status = models.BatchStatusError
		result.Issues = []string{"Error: " + err.Error()}
		logger.Error("Sample failed", zap.Error(err))
	} else {
		result.Listing = listing
		result.Issues = CheckBatchListing(listing, r.opts.AllowedAreas)
		result.Status = models.BatchStatusOK
		if len(result.Issues) > 0 {
			result.Status = models.BatchStatusIssues
			logger.Warn("Sample has issues", zap.Strings("issues", result.Issues))
		} else {
			logger.Info("Sample OK")
		}
	}

	r.metrics.Record(result.Status, elapsed)
	return result
}

func (r *BatchRunner) analyzeSample(ctx context.Context, sample models.BatchSample) (*models.CanonicalListing, error) {
	input, err := r.sampleInput(ctx, sample)
	if err != nil {
		return nil, err
	}
	return r.extractor.AnalyzeListing(ctx, input)
}

func (r *BatchRunner) sampleInput(ctx context.Context, sample models.BatchSample) (*models.RawListingInput, error) {
	if text := strings.TrimSpace(sample.SourceText); text != "" {
		if utf8.RuneCountInString(text) > models.MaxSourceTextLength {
			return nil, fmt.Errorf("sourceText exceeds %d characters", models.MaxSourceTextLength)
		}
		return &models.RawListingInput{SourceText: text}, nil
	}

	if sample.ImageKey == "" {
		return nil, fmt.Errorf("sample has neither sourceText nor imageKey")
	}
	if r.images == nil {
		return nil, fmt.Errorf("no image store configured for image sample %s", sample.ImageKey)
	}
	image, err := r.images.LoadImage(ctx, sample)
	if err != nil {
		return nil, err
	}
	return &models.RawListingInput{SourceImage: image}, nil
}

func sampleRaw(sample models.BatchSample) string {
	if strings.TrimSpace(sample.SourceText) != "" {
		return models.SourceSnippet(strings.TrimSpace(sample.SourceText))
	}
	return sample.ImageKey
}

// CheckBatchListing runs the validator plus the stricter batch checks: the
// area must be on the allowed list, yearly and monthly rent must agree within
// a fixed amount, and every tri-state field must be decided.
func CheckBatchListing(listing *models.CanonicalListing, allowedAreas []string) []string {
	issues := append([]string{}, ValidateListing(listing).Issues...)

	if listing.LocationArea == nil || !models.ContainsFold(allowedAreas, *listing.LocationArea) {
		issues = append(issues, "locationArea invalid")
	}

	if isFiniteNumber(listing.YearlyRent) && isFiniteNumber(listing.MonthlyRent) &&
		*listing.YearlyRent != 0 && *listing.MonthlyRent != 0 &&
		math.Abs(*listing.YearlyRent/12-*listing.MonthlyRent) > yearlyMonthlyMismatchLimit {
		issues = append(issues, "yearly/monthly mismatch")
	}

	triStates := []struct {
		name  string
		value models.TriState
	}{
		{"furnished", listing.Furnished},
		{"petFriendly", listing.PetFriendly},
		{"smokingAllowed", listing.SmokingAllowed},
	}
	for _, field := range triStates {
		if !field.value.Known() {
			issues = append(issues, field.name+" not boolean")
		}
	}

	return issues
}
