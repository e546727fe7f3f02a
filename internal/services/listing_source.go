package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"rental-listing-analyzer/internal/models"
)

// listingRecord is a row of the listings table. Older rows carry the raw
// listing text in description instead of sourceText.
type listingRecord struct {
	ListingID   string `dynamodbav:"listingId"`
	SourceText  string `dynamodbav:"sourceText"`
	Description string `dynamodbav:"description"`
	ImageKey    string `dynamodbav:"imageKey"`
	MIMEType    string `dynamodbav:"imageMimeType"`
}

// ListingSourceStore reads raw listing sources from DynamoDB for batch runs
type ListingSourceStore struct {
	client    dynamodb.ScanAPIClient
	tableName string
}

// NewListingSourceStore creates a store over the given table
func NewListingSourceStore(client dynamodb.ScanAPIClient, tableName string) *ListingSourceStore {
	return &ListingSourceStore{
		client:    client,
		tableName: tableName,
	}
}

// ScanSamples returns every row that has text or an image to analyze, up to
// limit samples (0 means no limit)
func (s *ListingSourceStore) ScanSamples(ctx context.Context, limit int) ([]models.BatchSample, error) {
	if s.tableName == "" {
		return nil, fmt.Errorf("listings table name is not configured")
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(s.tableName),
		ProjectionExpression: aws.String("listingId, sourceText, description, imageKey, imageMimeType"),
	})

	var samples []models.BatchSample
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan listings table %s: %w", s.tableName, err)
		}

		var records []listingRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal listings: %w", err)
		}

		for _, record := range records {
			sample, ok := record.toSample()
			if !ok {
				continue
			}
			samples = append(samples, sample)
			if limit > 0 && len(samples) >= limit {
				return samples, nil
			}
		}
	}

	return samples, nil
}

func (r listingRecord) toSample() (models.BatchSample, bool) {
	text := strings.TrimSpace(r.SourceText)
	if text == "" {
		text = strings.TrimSpace(r.Description)
	}
	if text == "" && r.ImageKey == "" {
		return models.BatchSample{}, false
	}

	id := r.ListingID
	if id == "" {
		id = models.GenerateSampleID(text, r.ImageKey)
	}
	sample := models.BatchSample{ID: id, SourceText: text}
	if text == "" {
		sample.ImageKey = r.ImageKey
		sample.MIMEType = r.MIMEType
	}
	return sample, true
}
