package models

import "time"

// Batch sample statuses
const (
	BatchStatusOK     = "OK"
	BatchStatusIssues = "ISSUES"
	BatchStatusError  = "ERROR"
)

// DefaultAllowedAreas are the Bali localities the batch checks accept as a locationArea
var DefaultAllowedAreas = []string{
	"Canggu", "Ubud", "Pererenan", "Seminyak", "Uluwatu", "Kedungu", "Kerobokan", "Bingin",
}

// BatchSample is one listing to analyze in a batch run
type BatchSample struct {
	ID         string `json:"id" yaml:"id" dynamodbav:"listingId"`
	SourceText string `json:"sourceText,omitempty" yaml:"sourceText" dynamodbav:"sourceText"`
	ImageKey   string `json:"imageKey,omitempty" yaml:"imageKey" dynamodbav:"imageKey"`
	MIMEType   string `json:"mimeType,omitempty" yaml:"mimeType" dynamodbav:"imageMimeType"`
}

// BatchSamplesFile is the YAML document holding batch samples
type BatchSamplesFile struct {
	Samples []BatchSample `yaml:"samples"`
}

// BatchResult is the outcome of analyzing one sample
type BatchResult struct {
	Index            int               `json:"index"`
	SampleID         string            `json:"sampleId"`
	Raw              string            `json:"raw"`
	Status           string            `json:"status"`
	Issues           []string          `json:"issues"`
	Listing          *CanonicalListing `json:"listing,omitempty"`
	ProcessingTimeMS int64             `json:"processingTimeMs"`
}

// BatchSummary aggregates a batch run
type BatchSummary struct {
	Total           int     `json:"total"`
	OK              int     `json:"ok"`
	Issues          int     `json:"issues"`
	Errors          int     `json:"errors"`
	AvgProcessingMS float64 `json:"avgProcessingMs"`
}

// BatchReport is the document written at the end of a batch run
type BatchReport struct {
	RunID       string        `json:"runId"`
	Mode        string        `json:"mode"` // local|remote
	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
	Summary     BatchSummary  `json:"summary"`
	Results     []BatchResult `json:"results"`
}
