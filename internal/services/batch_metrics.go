package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"rental-listing-analyzer/internal/models"
)

// BatchMetrics tracks per-sample outcomes of a batch run
type BatchMetrics struct {
	mu            sync.Mutex
	counts        map[string]int
	total         int
	totalDuration time.Duration
	slowest       time.Duration
}

// NewBatchMetrics creates an empty metrics collector
func NewBatchMetrics() *BatchMetrics {
	return &BatchMetrics{counts: make(map[string]int)}
}

// Record adds one sample outcome
func (m *BatchMetrics) Record(status string, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counts[status]++
	m.total++
	m.totalDuration += elapsed
	if elapsed > m.slowest {
		m.slowest = elapsed
	}
}

// Summary returns the aggregate counts and average latency
func (m *BatchMetrics) Summary() models.BatchSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := models.BatchSummary{
		Total:  m.total,
		OK:     m.counts[models.BatchStatusOK],
		Issues: m.counts[models.BatchStatusIssues],
		Errors: m.counts[models.BatchStatusError],
	}
	if m.total > 0 {
		summary.AvgProcessingMS = float64(m.totalDuration.Milliseconds()) / float64(m.total)
	}
	return summary
}

// LogSummary writes the aggregate metrics to the logger
func (m *BatchMetrics) LogSummary(logger *zap.Logger) {
	summary := m.Summary()

	m.mu.Lock()
	slowest := m.slowest
	m.mu.Unlock()

	logger.Info("Batch metrics",
		zap.Int("total", summary.Total),
		zap.Int("ok", summary.OK),
		zap.Int("issues", summary.Issues),
		zap.Int("errors", summary.Errors),
		zap.Float64("avg_processing_ms", summary.AvgProcessingMS),
		zap.Duration("slowest", slowest))
}
