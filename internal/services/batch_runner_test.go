package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"rental-listing-analyzer/internal/models"
)

// scriptedExtractor returns a listing or error per source text
type scriptedExtractor struct {
	mu       sync.Mutex
	listings map[string]*models.CanonicalListing
	errs     map[string]error
	inFlight int32
	peak     int32
	delay    time.Duration
	images   int
}

func (s *scriptedExtractor) AnalyzeListing(ctx context.Context, input *models.RawListingInput) (*models.CanonicalListing, error) {
	current := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&s.peak)
		if current <= peak || atomic.CompareAndSwapInt32(&s.peak, peak, current) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if input.Kind() == models.InputKindImage {
		s.images++
		return okListing("Image Villa"), nil
	}
	if err := s.errs[input.SourceText]; err != nil {
		return nil, err
	}
	return s.listings[input.SourceText], nil
}

type fakeImageLoader struct {
	err error
}

func (f fakeImageLoader) LoadImage(ctx context.Context, sample models.BatchSample) (*models.SourceImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.SourceImage{Data: pngHeader, MIMEType: "image/png"}, nil
}

func okListing(title string) *models.CanonicalListing {
	listing := validListing()
	listing.Title = title
	listing.Furnished = models.True
	listing.PetFriendly = models.False
	listing.SmokingAllowed = models.False
	return listing
}

func TestCheckBatchListing(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(l *models.CanonicalListing)
		expected []string
	}{
		{name: "clean", mutate: func(l *models.CanonicalListing) {}, expected: []string{}},
		{
			name:     "area not allowed",
			mutate:   func(l *models.CanonicalListing) { l.LocationArea = strPtr("Jakarta") },
			expected: []string{"locationArea invalid"},
		},
		{
			name:     "area case insensitive",
			mutate:   func(l *models.CanonicalListing) { l.LocationArea = strPtr("canggu") },
			expected: []string{},
		},
		{
			name: "yearly monthly mismatch",
			mutate: func(l *models.CanonicalListing) {
				l.MonthlyRent = floatPtr(3000)
				l.YearlyRent = floatPtr(12000)
			},
			expected: []string{"yearly/monthly mismatch"},
		},
		{
			name: "undecided policies",
			mutate: func(l *models.CanonicalListing) {
				l.Furnished = models.Unknown
				l.SmokingAllowed = models.Unknown
			},
			expected: []string{"furnished not boolean", "smokingAllowed not boolean"},
		},
		{
			name:     "validator issues come first",
			mutate:   func(l *models.CanonicalListing) { l.Title = "" },
			expected: []string{"missing title"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			listing := okListing("Villa")
			tc.mutate(listing)
			assert.Equal(t, tc.expected, CheckBatchListing(listing, models.DefaultAllowedAreas))
		})
	}
}

func TestBatchRunner_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	badArea := okListing("Villa in Jakarta")
	badArea.LocationArea = strPtr("Jakarta")

	extractor := &scriptedExtractor{
		listings: map[string]*models.CanonicalListing{
			"good":     okListing("Villa in Canggu"),
			"bad area": badArea,
		},
		errs: map[string]error{"broken": errors.New("oracle timeout")},
	}
	samples := []models.BatchSample{
		{ID: "s1", SourceText: "good"},
		{ID: "s2", SourceText: "bad area"},
		{ID: "s3", SourceText: "broken"},
		{ID: "s4", ImageKey: "uploads/s4.png"},
		{ID: "s5"},
	}

	runner := NewBatchRunner(extractor, fakeImageLoader{}, BatchOptions{Concurrency: 3}, zap.NewNop())
	report, err := runner.Run(context.Background(), samples)
	require.NoError(t, err)

	require.Len(t, report.Results, 5)
	statuses := make([]string, len(report.Results))
	for i, result := range report.Results {
		assert.Equal(t, i+1, result.Index, "results keep input order")
		assert.Equal(t, samples[i].ID, result.SampleID)
		statuses[i] = result.Status
	}
	assert.Equal(t, []string{
		models.BatchStatusOK,
		models.BatchStatusIssues,
		models.BatchStatusError,
		models.BatchStatusOK,
		models.BatchStatusError,
	}, statuses)

	assert.Equal(t, []string{"Error: oracle timeout"}, report.Results[2].Issues)
	assert.Equal(t, "uploads/s4.png", report.Results[3].Raw)
	assert.Equal(t, 1, extractor.images)

	assert.Equal(t, models.BatchSummary{Total: 5, OK: 2, Issues: 1, Errors: 2, AvgProcessingMS: report.Summary.AvgProcessingMS}, report.Summary)
	assert.Equal(t, BatchModeLocal, report.Mode)
	assert.Regexp(t, `^batch_[0-9a-f]{8}$`, report.RunID)
}

func TestBatchRunner_ConcurrencyLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	extractor := &scriptedExtractor{
		listings: map[string]*models.CanonicalListing{},
		delay:    20 * time.Millisecond,
	}
	var samples []models.BatchSample
	for _, text := range []string{"a", "b", "c", "d", "e", "f"} {
		extractor.listings[text] = okListing(text)
		samples = append(samples, models.BatchSample{SourceText: text})
	}

	_, err := NewBatchRunner(extractor, nil, BatchOptions{Concurrency: 2}, nil).Run(context.Background(), samples)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&extractor.peak), int32(2))

	extractor.peak = 0
	_, err = NewBatchRunner(extractor, nil, BatchOptions{}, nil).Run(context.Background(), samples)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&extractor.peak), "default is sequential")
}

func TestBatchRunner_ImageErrors(t *testing.T) {
	extractor := &scriptedExtractor{}
	samples := []models.BatchSample{{ID: "img", ImageKey: "a.png"}}

	report, err := NewBatchRunner(extractor, nil, BatchOptions{}, nil).Run(context.Background(), samples)
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusError, report.Results[0].Status)

	report, err = NewBatchRunner(extractor, fakeImageLoader{err: errors.New("NoSuchKey")}, BatchOptions{}, nil).Run(context.Background(), samples)
	require.NoError(t, err)
	assert.Equal(t, []string{"Error: NoSuchKey"}, report.Results[0].Issues)
}

func TestBatchRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	extractor := &scriptedExtractor{listings: map[string]*models.CanonicalListing{"a": okListing("a")}}
	report, err := NewBatchRunner(extractor, nil, BatchOptions{}, nil).Run(ctx, []models.BatchSample{{SourceText: "a"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
}

func TestBatchMetrics(t *testing.T) {
	metrics := NewBatchMetrics()
	assert.Equal(t, models.BatchSummary{}, metrics.Summary())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := models.BatchStatusOK
			if i%5 == 0 {
				status = models.BatchStatusError
			}
			metrics.Record(status, 100*time.Millisecond)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, models.BatchSummary{Total: 10, OK: 8, Errors: 2, AvgProcessingMS: 100}, metrics.Summary())
	metrics.LogSummary(zap.NewNop())
}
