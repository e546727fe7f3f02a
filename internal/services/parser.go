package services

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"

	"rental-listing-analyzer/internal/models"
)

var (
	openingFenceRegexp = regexp.MustCompile("^```[A-Za-z0-9_-]*\\s*")
	closingFenceRegexp = regexp.MustCompile("\\s*```$")
)

// Default values for the only fields that are never left empty
const (
	DefaultListingTitle = "Property Listing"
	defaultRoomCount    = 1
)

// numericFields are coerced from strings to numbers before reconciliation
var numericFields = []string{
	"monthlyRent",
	"yearlyRent",
	"monthlyRentEquivalent",
	"utilities",
	"deposit",
	"price_yearly_idr",
	"price_yearly_usd",
	"bedrooms",
	"bathrooms",
	"squareFootage",
	"landSize",
	"buildingSize",
	"pricing.monthly",
	"pricing.yearly",
	"rent.monthly",
	"rent.yearly",
}

// triStateFields are recorded as null in the audit snapshot when the oracle omitted them
var triStateFields = []string{"furnished", "petFriendly", "smokingAllowed"}

// ExtractionResult is a parsed oracle response
type ExtractionResult struct {
	Listing *models.CanonicalListing
	// Reasoning is the oracle's explanation of its conversions. It is kept
	// out of the listing and never returned to API callers.
	Reasoning string
}

// ParseOptions carries request context needed during reconciliation
type ParseOptions struct {
	// DetectedCurrency overrides the oracle's currency when set
	DetectedCurrency models.Currency
}

// CleanJSONResponse removes markdown code fences, with or without a language
// tag, that the oracle sometimes wraps around its JSON
func CleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = openingFenceRegexp.ReplaceAllString(cleaned, "")
		cleaned = closingFenceRegexp.ReplaceAllString(cleaned, "")
	}
	return strings.TrimSpace(cleaned)
}

// ParseOracleResponse turns raw oracle text into a canonical listing. Failure
// to parse JSON is the only error; every field-level problem degrades to null.
func ParseOracleResponse(raw string, opts ParseOptions) (*ExtractionResult, error) {
	cleaned := CleanJSONResponse(raw)

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil || data == nil {
		parseErr := NewAnalysisError(http.StatusInternalServerError, CodeAIResponseParseError, "Failed to parse AI response as valid JSON")
		if err != nil {
			parseErr = parseErr.WithCause(err)
		}
		return nil, parseErr
	}

	reasoning, _ := data["reasoning"].(string)
	delete(data, "reasoning")

	coerceNumericFields(data)
	backfillBathrooms(data)

	snapshot := snapshotOracleData(data)

	currency := resolveCurrency(data, opts)
	reconcileFields(data, reconcileContext{currency: currency})

	return &ExtractionResult{
		Listing:   buildCanonicalListing(data, currency, snapshot),
		Reasoning: reasoning,
	}, nil
}

// coerceNumericFields converts numeric strings such as "25,000,000" into
// numbers; a string that is not a number becomes null
func coerceNumericFields(data map[string]interface{}) {
	for _, path := range numericFields {
		value, ok := lookupPath(data, path)
		if !ok {
			continue
		}
		s, isString := value.(string)
		if !isString {
			continue
		}
		if number, ok := parseNumericString(s); ok {
			setPath(data, path, number)
		} else {
			setPath(data, path, nil)
		}
	}
}

// backfillBathrooms sets a missing bathroom count to max(1, bedrooms). The
// listing schema requires a bathroom count and one is a safe floor.
func backfillBathrooms(data map[string]interface{}) {
	if value, ok := data["bathrooms"]; ok && value != nil {
		return
	}
	bedrooms, _ := data["bedrooms"].(float64)
	if bedrooms < defaultRoomCount {
		bedrooms = defaultRoomCount
	}
	data["bathrooms"] = bedrooms
}

func resolveCurrency(data map[string]interface{}, opts ParseOptions) models.Currency {
	if opts.DetectedCurrency.Valid() {
		return opts.DetectedCurrency
	}
	if s, ok := data["currency"].(string); ok {
		currency := models.Currency(strings.ToUpper(strings.TrimSpace(s)))
		if currency.Valid() {
			return currency
		}
	}
	return models.CurrencyIDR
}

func snapshotOracleData(data map[string]interface{}) map[string]interface{} {
	snapshot := deepCopyMap(data)
	for _, field := range triStateFields {
		if _, ok := snapshot[field]; !ok {
			snapshot[field] = nil
		}
	}
	return snapshot
}

func buildCanonicalListing(data map[string]interface{}, currency models.Currency, snapshot map[string]interface{}) *models.CanonicalListing {
	listing := &models.CanonicalListing{
		Title:        DefaultListingTitle,
		Description:  stringField(data, "description"),
		Bedrooms:     numberField(data, "bedrooms"),
		Bathrooms:    numberField(data, "bathrooms"),
		Address:      stringField(data, "address"),
		LocationArea: stringField(data, "locationArea"),

		Currency:              currency,
		MonthlyRent:           numberField(data, "monthlyRent"),
		YearlyRent:            numberField(data, "yearlyRent"),
		MonthlyRentEquivalent: numberField(data, "monthlyRentEquivalent"),
		Deposit:               numberField(data, "deposit"),
		Utilities:             numberField(data, "utilities"),
		PriceNote:             stringField(data, "priceNote"),

		MinimumStay:   monthsField(data, "minimumStay"),
		AvailableFrom: stringField(data, "availableFrom"),

		Furnished:      triStateField(data, "furnished"),
		PetFriendly:    triStateField(data, "petFriendly"),
		SmokingAllowed: triStateField(data, "smokingAllowed"),

		SquareFootage: numberField(data, "squareFootage"),
		LandSize:      numberField(data, "landSize"),
		BuildingSize:  numberField(data, "buildingSize"),

		Amenities: stringListField(data, "amenities"),
		Proximity: proximityField(data, "proximity"),

		AIExtractedData: snapshot,
	}

	if title := stringField(data, "title"); title != nil {
		listing.Title = *title
	}
	if listing.Bedrooms == nil {
		listing.Bedrooms = floatPtr(defaultRoomCount)
	}
	if listing.Bathrooms == nil {
		listing.Bathrooms = floatPtr(defaultRoomCount)
	}

	return listing
}
