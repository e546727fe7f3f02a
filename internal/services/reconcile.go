package services

import (
	"math"
	"strconv"
	"strings"

	"rental-listing-analyzer/internal/models"
)

type reconcileContext struct {
	currency models.Currency
}

// fieldRule copies an alternative oracle field into a canonical field. Rules
// only fill targets that are still unset, so whichever schema the oracle
// actually used keeps precedence.
type fieldRule struct {
	source    string // dotted path into the oracle object
	target    string
	transform func(interface{}) interface{}
	guard     func(reconcileContext) bool
}

// reconciliationRules are applied in order. New schema variants are added
// by appending rules.
var reconciliationRules = []fieldRule{
	{source: "amenityTags", target: "amenities", transform: toStringList},
	{source: "pricing.monthly", target: "monthlyRent", transform: toNumber},
	{source: "pricing.yearly", target: "yearlyRent", transform: toNumber},
	{source: "rent.monthly", target: "monthlyRent", transform: toNumber},
	{source: "rent.yearly", target: "yearlyRent", transform: toNumber},
	{source: "price_yearly_idr", target: "yearlyRent", transform: toNumber, guard: currencyIs(models.CurrencyIDR)},
	{source: "price_yearly_usd", target: "yearlyRent", transform: toNumber, guard: currencyIs(models.CurrencyUSD)},
	{source: "minimumStay_months", target: "minimumStay", transform: toMonths},
	{source: "locationName", target: "locationArea", transform: toNonEmptyString},
	{source: "summary", target: "description", transform: toNonEmptyString},
	{source: "buildingSize", target: "squareFootage", transform: toNumber},
}

func currencyIs(currency models.Currency) func(reconcileContext) bool {
	return func(rc reconcileContext) bool {
		return rc.currency == currency
	}
}

func reconcileFields(data map[string]interface{}, rc reconcileContext) {
	for _, rule := range reconciliationRules {
		if isSet(data, rule.target) {
			continue
		}
		if rule.guard != nil && !rule.guard(rc) {
			continue
		}
		value, ok := lookupPath(data, rule.source)
		if !ok || value == nil {
			continue
		}
		if rule.transform != nil {
			value = rule.transform(value)
		}
		if value != nil {
			setPath(data, rule.target, value)
		}
	}
}

func isSet(data map[string]interface{}, path string) bool {
	value, ok := lookupPath(data, path)
	return ok && value != nil
}

func lookupPath(data map[string]interface{}, path string) (interface{}, bool) {
	keys := strings.Split(path, ".")
	current := data
	for i, key := range keys {
		value, ok := current[key]
		if !ok {
			return nil, false
		}
		if i == len(keys)-1 {
			return value, true
		}
		next, ok := value.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current = next
	}
	return nil, false
}

// setPath sets an existing or top-level path; missing intermediate objects are created
func setPath(data map[string]interface{}, path string, value interface{}) {
	keys := strings.Split(path, ".")
	current := data
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}

func deepCopyMap(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return deepCopyMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return val
	}
}

// Transforms return nil when the value cannot be used.

func toNumber(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil
		}
		return val
	case string:
		if number, ok := parseNumericString(val); ok {
			return number
		}
	}
	return nil
}

func toMonths(v interface{}) interface{} {
	if months, ok := parseMonths(v); ok {
		return float64(months)
	}
	return nil
}

func toNonEmptyString(v interface{}) interface{} {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return nil
}

func toStringList(v interface{}) interface{} {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}
	return items
}

// Typed field readers used to assemble the canonical listing.

func floatPtr(v float64) *float64 {
	return &v
}

func numberField(data map[string]interface{}, key string) *float64 {
	if number, ok := toNumber(data[key]).(float64); ok {
		return floatPtr(number)
	}
	return nil
}

func stringField(data map[string]interface{}, key string) *string {
	if s, ok := toNonEmptyString(data[key]).(string); ok {
		return &s
	}
	return nil
}

func monthsField(data map[string]interface{}, key string) *int {
	if months, ok := parseMonths(data[key]); ok {
		return &months
	}
	return nil
}

func triStateField(data map[string]interface{}, key string) models.TriState {
	switch val := data[key].(type) {
	case bool:
		return models.TriStateOf(val)
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "yes":
			return models.True
		case "false", "no":
			return models.False
		}
	}
	return models.Unknown
}

func stringListField(data map[string]interface{}, key string) []string {
	result := []string{}
	items, ok := data[key].([]interface{})
	if !ok {
		return result
	}
	for _, item := range items {
		if s, ok := toNonEmptyString(item).(string); ok {
			result = append(result, s)
		}
	}
	return result
}

func proximityField(data map[string]interface{}, key string) []models.Proximity {
	result := []models.Proximity{}
	items, ok := data[key].([]interface{})
	if !ok {
		return result
	}
	for _, item := range items {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		p := models.Proximity{
			Time: numberField(entry, "time"),
			Unit: stringField(entry, "unit"),
			POI:  stringField(entry, "poi"),
		}
		if p.Time == nil && p.Unit == nil && p.POI == nil {
			continue
		}
		result = append(result, p)
	}
	return result
}

// formatNumber renders a float without a trailing ".0" for log fields
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
