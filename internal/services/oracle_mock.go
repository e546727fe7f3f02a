package services

import "context"

// mockListingJSON is the canned villa returned in local offline mode
const mockListingJSON = `{
  "title": "Mocked: 3BR Villa with Pool in Canggu",
  "summary": "This is a mocked response for local development - a beautiful 3-bedroom villa with private pool in the heart of Canggu.",
  "locationName": "Canggu",
  "currency": "IDR",
  "rent": {"monthly": 35000000, "yearly": 400000000},
  "bedrooms": 3,
  "bathrooms": 2,
  "petFriendly": true,
  "availableFrom": "2025-09-01",
  "amenities": ["Fully furnished", "Modern kitchen", "Fast WiFi", "Private swimming pool"],
  "proximity": [
    {"time": 5, "unit": "minute", "poi": "Echo Beach"},
    {"time": 2, "unit": "minute", "poi": "La Brisa"}
  ],
  "reasoning": "mock"
}`

// MockOracle returns a fixed listing without calling any service. It is only
// wired up when running offline.
type MockOracle struct {
	Response string
}

// NewMockOracle creates a mock oracle returning the canned Canggu villa
func NewMockOracle() *MockOracle {
	return &MockOracle{Response: mockListingJSON}
}

// ExtractFromText returns the canned response
func (m *MockOracle) ExtractFromText(ctx context.Context, prompt string) (string, error) {
	return m.Response, nil
}

// ExtractFromImage returns the canned response
func (m *MockOracle) ExtractFromImage(ctx context.Context, prompt string, image ImagePayload) (string, error) {
	return m.Response, nil
}

// Name identifies the mock provider
func (m *MockOracle) Name() string {
	return "mock"
}
