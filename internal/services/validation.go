package services

import (
	"fmt"
	"math"
	"strings"

	"rental-listing-analyzer/internal/models"
)

// Allowed gap, in percent, between the stated monthly rent and the monthly
// equivalent of the yearly rent
const (
	DefaultRentTolerancePercent  = 5.0
	DiscountRentTolerancePercent = 20.0
)

// ValidateListing runs every consistency check over a listing and collects
// the issues. It never fails the request; callers log the result.
func ValidateListing(listing *models.CanonicalListing) models.ValidationResult {
	issues := []string{}

	if listing == nil {
		return models.ValidationResult{IsValid: false, Issues: []string{"listing is nil"}}
	}

	if strings.TrimSpace(listing.Title) == "" {
		issues = append(issues, "missing title")
	}

	if !isFiniteNumber(listing.Bedrooms) {
		issues = append(issues, "bedrooms is not a number")
	}
	if !isFiniteNumber(listing.Bathrooms) {
		issues = append(issues, "bathrooms is not a number")
	}
	if !isFiniteNumber(listing.MonthlyRent) {
		issues = append(issues, "monthlyRent is not a number")
	}

	if issue := checkRentConsistency(listing); issue != "" {
		issues = append(issues, issue)
	}

	if listing.LocationArea == nil && listing.MonthlyRent == nil {
		issues = append(issues, "missing both locationArea and monthlyRent")
	}

	return models.ValidationResult{
		IsValid: len(issues) == 0,
		Issues:  issues,
	}
}

// RentDifferencePercent is |equivalent - monthly| / monthly * 100
func RentDifferencePercent(monthly, equivalent float64) float64 {
	return math.Abs(equivalent-monthly) / monthly * 100
}

// RentTolerancePercent returns the allowed gap for a listing. A price note
// mentioning a discount legitimately widens the gap between the monthly
// price and the yearly price.
func RentTolerancePercent(priceNote *string) float64 {
	if priceNote != nil && strings.Contains(strings.ToLower(*priceNote), "discount") {
		return DiscountRentTolerancePercent
	}
	return DefaultRentTolerancePercent
}

func checkRentConsistency(listing *models.CanonicalListing) string {
	if listing.YearlyRent == nil || listing.MonthlyRent == nil || listing.MonthlyRentEquivalent == nil {
		return ""
	}
	monthly := *listing.MonthlyRent
	if monthly == 0 {
		return ""
	}

	percentDiff := RentDifferencePercent(monthly, *listing.MonthlyRentEquivalent)
	tolerance := RentTolerancePercent(listing.PriceNote)
	if percentDiff > tolerance {
		return fmt.Sprintf("monthlyRent %s differs from yearly equivalent %s by %.1f%% (allowed %.0f%%)",
			formatNumber(monthly), formatNumber(*listing.MonthlyRentEquivalent), percentDiff, tolerance)
	}
	return ""
}

func isFiniteNumber(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}
