package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// SourceSnippetLength is how many characters of sourceText are echoed back
const SourceSnippetLength = 200

// ImageSourceSnippet is echoed back instead of text for image submissions
const ImageSourceSnippet = "Image processed"

// SourceSnippet returns the first SourceSnippetLength characters of text,
// followed by "..." when the text was longer
func SourceSnippet(text string) string {
	if utf8.RuneCountInString(text) <= SourceSnippetLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:SourceSnippetLength]) + "..."
}

// GenerateBatchRunID creates an ID for a batch analysis run
func GenerateBatchRunID(timestamp time.Time) string {
	input := fmt.Sprintf("batch|%d", timestamp.UnixNano())
	hash := sha256.Sum256([]byte(input))
	return "batch_" + hex.EncodeToString(hash[:])[:8]
}

// GenerateSampleID creates a stable ID for a sample that has none, based on its content
func GenerateSampleID(sourceText, imageKey string) string {
	normalized := strings.ToLower(strings.TrimSpace(sourceText)) + "|" + strings.TrimSpace(imageKey)
	hash := sha256.Sum256([]byte(normalized))
	return "smp_" + hex.EncodeToString(hash[:])[:8]
}

// FormatProcessedAt formats a timestamp the way aiProcessedAt is reported
// (ISO8601, UTC, millisecond precision)
func FormatProcessedAt(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ContainsFold reports whether any element of list equals value, ignoring case
func ContainsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}
