package models

import (
	"encoding/json"
	"fmt"
)

// Currency is the price currency of a listing
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyIDR Currency = "IDR"
)

// Valid reports whether c is one of the supported currencies
func (c Currency) Valid() bool {
	return c == CurrencyUSD || c == CurrencyIDR
}

// TriState is a boolean that may be unknown. The zero value is Unknown,
// which marshals to JSON null, so a policy that was never mentioned in the
// source material cannot silently become false.
type TriState int8

const (
	Unknown TriState = iota
	True
	False
)

// TriStateOf converts a plain bool into a known TriState
func TriStateOf(b bool) TriState {
	if b {
		return True
	}
	return False
}

// Known reports whether the value was stated in the source
func (t TriState) Known() bool {
	return t == True || t == False
}

// Bool returns the value and whether it is known
func (t TriState) Bool() (value bool, known bool) {
	switch t {
	case True:
		return true, true
	case False:
		return false, true
	default:
		return false, false
	}
}

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "null"
	}
}

// MarshalJSON encodes Unknown as null
func (t TriState) MarshalJSON() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalJSON accepts true, false and null
func (t *TriState) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true":
		*t = True
	case "false":
		*t = False
	case "null":
		*t = Unknown
	default:
		return fmt.Errorf("invalid tri-state value: %s", data)
	}
	return nil
}

// Proximity is a point of interest and the travel time to reach it
type Proximity struct {
	Time *float64 `json:"time"`
	Unit *string  `json:"unit"`
	POI  *string  `json:"poi"`
}

// CanonicalListing is the reconciled listing produced from an oracle response.
// Optional fields stay nil unless the source material stated them.
type CanonicalListing struct {
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	Bedrooms     *float64 `json:"bedrooms"`
	Bathrooms    *float64 `json:"bathrooms"`
	Address      *string  `json:"address"`
	LocationArea *string  `json:"locationArea"`

	// Pricing
	Currency              Currency `json:"currency"`
	MonthlyRent           *float64 `json:"monthlyRent"`
	YearlyRent            *float64 `json:"yearlyRent"`
	MonthlyRentEquivalent *float64 `json:"monthlyRentEquivalent"`
	Deposit               *float64 `json:"deposit"`
	Utilities             *float64 `json:"utilities"`
	PriceNote             *string  `json:"priceNote"`

	// Terms
	MinimumStay   *int    `json:"minimumStay"` // months
	AvailableFrom *string `json:"availableFrom"`

	// Policies
	Furnished      TriState `json:"furnished"`
	PetFriendly    TriState `json:"petFriendly"`
	SmokingAllowed TriState `json:"smokingAllowed"`

	// Property details (square meters)
	SquareFootage *float64 `json:"squareFootage"`
	LandSize      *float64 `json:"landSize"`
	BuildingSize  *float64 `json:"buildingSize"`

	Amenities []string    `json:"amenities"`
	Proximity []Proximity `json:"proximity"`

	// AIExtractedData is the oracle's output after type coercion and before
	// any defaults were applied
	AIExtractedData map[string]interface{} `json:"aiExtractedData"`
}

// ValidationResult is the non-fatal outcome of a consistency check
type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Issues  []string `json:"issues"`
}

// InputKind identifies which extraction path a request takes
type InputKind string

const (
	InputKindText  InputKind = "text"
	InputKindImage InputKind = "image"
)

// MaxSourceTextLength is the maximum accepted sourceText length in characters
const MaxSourceTextLength = 10000

// SourceImage is an uploaded listing screenshot or photo
type SourceImage struct {
	Data     []byte `json:"-"`
	MIMEType string `json:"mimeType"`
	Filename string `json:"filename,omitempty"`
}

// RawListingInput is the user submission for one analysis. Exactly one of
// SourceText or SourceImage is set.
type RawListingInput struct {
	SourceText  string       `json:"sourceText,omitempty"`
	SourceImage *SourceImage `json:"sourceImage,omitempty"`
}

// Kind returns the extraction path for the input
func (in *RawListingInput) Kind() InputKind {
	if in.SourceImage != nil {
		return InputKindImage
	}
	return InputKindText
}

// Validate checks that exactly one input form is present
func (in *RawListingInput) Validate() error {
	hasText := in.SourceText != ""
	hasImage := in.SourceImage != nil && len(in.SourceImage.Data) > 0

	if hasText == hasImage {
		return fmt.Errorf("exactly one of sourceText or sourceImage is required")
	}
	if hasImage && in.SourceImage.MIMEType == "" {
		return fmt.Errorf("sourceImage MIME type is required")
	}
	return nil
}

// AnalysisData is the success payload of the analyze endpoint
type AnalysisData struct {
	ExtractedListing *CanonicalListing `json:"extractedListing"`
	SourceText       string            `json:"sourceText"`
	AIProcessedAt    string            `json:"aiProcessedAt"`
}

// ErrorBody is the error payload of the analyze endpoint
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// APIResponse is the envelope for every analyze response body
type APIResponse struct {
	Success bool          `json:"success"`
	Data    *AnalysisData `json:"data,omitempty"`
	Error   *ErrorBody    `json:"error,omitempty"`
}

// DecodeAPIResponse parses a response body produced by the analyze endpoint
func DecodeAPIResponse(body string) (*APIResponse, error) {
	var resp APIResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	return &resp, nil
}
