package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"rental-listing-analyzer/internal/models"
)

var (
	// digitGroupRegexp matches a grouping separator between a digit and a
	// trailing group of exactly three digits, e.g. the "," in "120,000"
	digitGroupRegexp = regexp.MustCompile(`(\d)[,.](\d{3})\b`)
	// usdTokenRegexp matches USD not embedded in a longer word. Digits may
	// touch it, as in "USD1,500" or "1500USD".
	usdTokenRegexp = regexp.MustCompile(`(?i)(^|[^a-z])usd([^a-z]|$)`)
	// numericRegexp matches a plain decimal number after separators are stripped
	numericRegexp = regexp.MustCompile(`^-?\d+(?:\.\d+)?$`)
	// durationRegexp matches "36 months", "3 years", "1 yr", "12"
	durationRegexp = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*(months?|mos?|years?|yrs?)?$`)
)

// NormalizePriceText removes thousands separators from digit groups so that
// "IDR 120,000,000" becomes "IDR 120000000". Currency markers and all other
// characters are left untouched. Applying it twice is a no-op.
func NormalizePriceText(text string) string {
	// Regexp matches do not overlap, so "1,000,000" needs a second pass to
	// remove the separator after the digit consumed by the first match.
	for {
		normalized := digitGroupRegexp.ReplaceAllString(text, "$1$2")
		if normalized == text {
			return normalized
		}
		text = normalized
	}
}

// DetectCurrency applies the currency rule: a "$" or a USD token means USD,
// anything else is IDR
func DetectCurrency(text string) models.Currency {
	if strings.Contains(text, "$") || usdTokenRegexp.MatchString(text) {
		return models.CurrencyUSD
	}
	return models.CurrencyIDR
}

// parseNumericString converts an oracle-supplied numeric string such as
// "25,000,000" or " 2 200 " to a number. ok is false when it is not a number.
func parseNumericString(s string) (float64, bool) {
	cleaned := NormalizePriceText(strings.TrimSpace(s))
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.Join(strings.Fields(cleaned), "")
	if !numericRegexp.MatchString(cleaned) {
		return 0, false
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// maxMinimumStayMonths bounds a parsed minimum stay; anything longer is
// treated as unparseable
const maxMinimumStayMonths = 1200

// parseMonths converts a minimum stay such as 12, "36 months" or "3 years"
// into a number of months
func parseMonths(value interface{}) (int, bool) {
	switch v := value.(type) {
	case float64:
		return roundMonths(v)
	case string:
		match := durationRegexp.FindStringSubmatch(strings.TrimSpace(v))
		if match == nil {
			return 0, false
		}
		amount, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			return 0, false
		}
		unit := strings.ToLower(match[2])
		if strings.HasPrefix(unit, "y") {
			amount *= 12
		}
		return roundMonths(amount)
	default:
		return 0, false
	}
}

func roundMonths(months float64) (int, bool) {
	if math.IsNaN(months) || months < 0 || months > maxMinimumStayMonths {
		return 0, false
	}
	return int(math.Round(months)), true
}
