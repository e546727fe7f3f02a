package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"rental-listing-analyzer/internal/models"
)

// s3ObjectAPI is the subset of *s3.Client used here
type s3ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Location is a parsed s3://bucket/key URI
type S3Location struct {
	Bucket string
	Key    string
}

// String renders the location as a URI
func (l S3Location) String() string {
	return fmt.Sprintf("s3://%s/%s", l.Bucket, l.Key)
}

// IsS3URI reports whether path names an S3 object
func IsS3URI(path string) bool {
	return strings.HasPrefix(path, "s3://")
}

// ParseS3URI splits an s3:// URI into bucket and key
func ParseS3URI(uri string) (S3Location, error) {
	if !IsS3URI(uri) {
		return S3Location{}, fmt.Errorf("not an s3 URI: %q", uri)
	}
	bucket, key, ok := strings.Cut(strings.TrimPrefix(uri, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return S3Location{}, fmt.Errorf("s3 URI must be s3://bucket/key: %q", uri)
	}
	return S3Location{Bucket: bucket, Key: key}, nil
}

// ObjectStore moves batch inputs and reports through S3
type ObjectStore struct {
	client        s3ObjectAPI
	defaultBucket string
}

// NewObjectStore creates a store. defaultBucket resolves bare image keys.
func NewObjectStore(client s3ObjectAPI, defaultBucket string) *ObjectStore {
	return &ObjectStore{
		client:        client,
		defaultBucket: defaultBucket,
	}
}

// Download reads a whole object
func (s *ObjectStore) Download(ctx context.Context, loc S3Location) ([]byte, string, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to download %s: %w", loc, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", loc, err)
	}
	return data, aws.ToString(result.ContentType), nil
}

// ResolveImage turns a sample image key into a location. Keys may be full
// s3:// URIs or bare keys in the default bucket.
func (s *ObjectStore) ResolveImage(imageKey string) (S3Location, error) {
	if IsS3URI(imageKey) {
		return ParseS3URI(imageKey)
	}
	if s.defaultBucket == "" {
		return S3Location{}, fmt.Errorf("image key %q has no bucket and REPORT_BUCKET is not set", imageKey)
	}
	return S3Location{Bucket: s.defaultBucket, Key: strings.TrimPrefix(imageKey, "/")}, nil
}

// UploadReport writes a batch report as indented JSON
func (s *ObjectStore) UploadReport(ctx context.Context, loc S3Location, report *models.BatchReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch report: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"run-id": report.RunID,
			"mode":   report.Mode,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload report to %s: %w", loc, err)
	}
	return nil
}

// LoadImage fetches the image behind a batch sample
func (s *ObjectStore) LoadImage(ctx context.Context, sample models.BatchSample) (*models.SourceImage, error) {
	loc, err := s.ResolveImage(sample.ImageKey)
	if err != nil {
		return nil, err
	}

	data, contentType, err := s.Download(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image %s is empty", loc)
	}

	declared := sample.MIMEType
	if declared == "" {
		declared = contentType
	}
	return &models.SourceImage{
		Data:     data,
		MIMEType: imageMIMEType(declared, data),
		Filename: path.Base(loc.Key),
	}, nil
}
