package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"rental-listing-analyzer/internal/models"
	"rental-listing-analyzer/internal/services"
)

type stubOracle struct {
	response string
	err      error
	calls    int
}

func (s *stubOracle) ExtractFromText(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.response, s.err
}

func (s *stubOracle) ExtractFromImage(ctx context.Context, prompt string, image services.ImagePayload) (string, error) {
	s.calls++
	return s.response, s.err
}

func (s *stubOracle) Name() string { return "stub" }

func newTestHandler(oracle services.Oracle, secrets services.SecretProvider, localDev bool) (*AnalyzeHandler, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	factory := func(ctx context.Context, apiKey string) (services.Oracle, error) { return oracle, nil }
	analyzer := services.NewListingAnalyzer(secrets, factory, logger)
	return NewAnalyzeHandler(services.NewAuthPolicy(localDev), analyzer, logger), logs
}

func authedRequest(body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/listings/analyze-source",
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       body,
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: "req-1",
			Authorizer: map[string]interface{}{
				"claims": map[string]interface{}{"sub": "user-1"},
			},
		},
	}
}

func decodeBody(t *testing.T, resp events.APIGatewayProxyResponse) *models.APIResponse {
	t.Helper()
	body, err := models.DecodeAPIResponse(resp.Body)
	require.NoError(t, err)
	return body
}

func TestHandle_TextSuccess(t *testing.T) {
	oracle := &stubOracle{response: "```json\n" + `{
  "title": "Villa in Padang Linjong",
  "locationArea": "Padang Linjong",
  "bedrooms": 2,
  "currency": "IDR",
  "yearlyRent": 300000000,
  "monthlyRentEquivalent": 25000000,
  "minimumStay": "3 years",
  "reasoning": "yearly only"
}` + "\n```"}
	handler, logs := newTestHandler(oracle, services.StaticSecretProvider{Key: "k"}, false)

	source := "Villa Padang Linjong 2BR, IDR 300,000,000 per year, min take 3 year " + strings.Repeat("x", 300)
	resp, err := handler.Handle(context.Background(), authedRequest(`{"sourceText": "`+source+`"}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Headers["Access-Control-Allow-Origin"])

	body := decodeBody(t, resp)
	require.True(t, body.Success)
	listing := body.Data.ExtractedListing
	assert.Equal(t, "Villa in Padang Linjong", listing.Title)
	assert.Nil(t, listing.MonthlyRent)
	require.NotNil(t, listing.YearlyRent)
	assert.Equal(t, 300000000.0, *listing.YearlyRent)
	require.NotNil(t, listing.MinimumStay)
	assert.Equal(t, 36, *listing.MinimumStay)
	assert.Equal(t, models.Unknown, listing.Furnished)
	assert.Contains(t, listing.AIExtractedData, "furnished")
	assert.Nil(t, listing.AIExtractedData["furnished"])

	assert.Len(t, []rune(body.Data.SourceText), models.SourceSnippetLength+3)
	assert.True(t, strings.HasSuffix(body.Data.SourceText, "..."))
	assert.NotContains(t, resp.Body, "yearly only", "reasoning is never returned")

	assert.Equal(t, 1, oracle.calls)
	for _, entry := range logs.All() {
		if entry.Message == "Listing analyzed" {
			assert.Equal(t, "req-1", entry.ContextMap()["request_id"])
		}
	}
}

func TestHandle_YearlyPriceWithoutTerms(t *testing.T) {
	oracle := &stubOracle{response: `{
  "title": "Villa for rent in Seminyak",
  "locationArea": "Seminyak",
  "currency": "IDR",
  "yearlyRent": 250000000
}`}
	handler, _ := newTestHandler(oracle, services.StaticSecretProvider{Key: "k"}, false)

	resp, err := handler.Handle(context.Background(), authedRequest(`{"sourceText": "Villa for rent 250jt/yr in Seminyak"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	require.True(t, body.Success)
	listing := body.Data.ExtractedListing
	assert.Equal(t, models.CurrencyIDR, listing.Currency)
	require.NotNil(t, listing.LocationArea)
	assert.Contains(t, *listing.LocationArea, "Seminyak")
	assert.Nil(t, listing.MinimumStay)
	assert.Nil(t, listing.MonthlyRent)

	for _, key := range []string{"furnished", "petFriendly", "smokingAllowed"} {
		assert.Contains(t, listing.AIExtractedData, key)
		assert.Nil(t, listing.AIExtractedData[key], key)
	}
	assert.Equal(t, "Villa for rent 250jt/yr in Seminyak", body.Data.SourceText)
}

func TestHandle_Preflight(t *testing.T) {
	oracle := &stubOracle{}
	handler, _ := newTestHandler(oracle, services.StaticSecretProvider{Key: "k"}, false)

	resp, err := handler.Handle(context.Background(), events.APIGatewayProxyRequest{HTTPMethod: http.MethodOptions})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Body)
	assert.Equal(t, "POST,OPTIONS", resp.Headers["Access-Control-Allow-Methods"])
	assert.Equal(t, 0, oracle.calls)
}

func TestHandle_Errors(t *testing.T) {
	testCases := []struct {
		name       string
		req        events.APIGatewayProxyRequest
		oracle     *stubOracle
		secrets    services.SecretProvider
		localDev   bool
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no claims",
			req:        events.APIGatewayProxyRequest{HTTPMethod: http.MethodPost, Body: `{"sourceText": "villa"}`},
			wantStatus: http.StatusUnauthorized,
			wantCode:   services.CodeUnauthorized,
		},
		{
			name: "get with claims",
			req: func() events.APIGatewayProxyRequest {
				req := authedRequest("")
				req.HTTPMethod = http.MethodGet
				return req
			}(),
			wantStatus: http.StatusMethodNotAllowed,
			wantCode:   services.CodeMethodNotAllowed,
		},
		{
			name:       "missing source text",
			req:        authedRequest(`{}`),
			wantStatus: http.StatusBadRequest,
			wantCode:   services.CodeMissingSourceText,
		},
		{
			name:       "source text too long",
			req:        authedRequest(`{"sourceText": "` + strings.Repeat("a", models.MaxSourceTextLength+1) + `"}`),
			wantStatus: http.StatusBadRequest,
			wantCode:   services.CodeSourceTextTooLong,
		},
		{
			name:       "missing api key",
			req:        authedRequest(`{"sourceText": "villa"}`),
			secrets:    services.StaticSecretProvider{},
			wantStatus: http.StatusInternalServerError,
			wantCode:   services.CodeMissingAPIKey,
		},
		{
			name:       "oracle failure",
			req:        authedRequest(`{"sourceText": "villa"}`),
			oracle:     &stubOracle{err: errors.New("deadline exceeded")},
			wantStatus: http.StatusInternalServerError,
			wantCode:   services.CodeInternalError,
		},
		{
			name:       "oracle prose",
			req:        authedRequest(`{"sourceText": "villa"}`),
			oracle:     &stubOracle{response: "Here is your listing!"},
			wantStatus: http.StatusInternalServerError,
			wantCode:   services.CodeAIResponseParseError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			oracle := tc.oracle
			if oracle == nil {
				oracle = &stubOracle{response: `{"title": "Villa"}`}
			}
			secrets := tc.secrets
			if secrets == nil {
				secrets = services.StaticSecretProvider{Key: "k"}
			}
			handler, _ := newTestHandler(oracle, secrets, tc.localDev)

			resp, err := handler.Handle(context.Background(), tc.req)
			require.NoError(t, err, "failures are reported in the response")
			assert.Equal(t, tc.wantStatus, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Headers["Content-Type"])

			body := decodeBody(t, resp)
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tc.wantCode, body.Error.Code)
			assert.NotContains(t, resp.Body, "deadline exceeded")
			if tc.wantStatus != http.StatusInternalServerError {
				assert.Equal(t, 0, oracle.calls)
			}
		})
	}
}

func TestHandle_LocalDevTestToken(t *testing.T) {
	oracle := &stubOracle{response: `{"title": "Villa"}`}
	req := events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Headers:    map[string]string{"Authorization": "Bearer test-token", "Content-Type": "application/json"},
		Body:       `{"sourceText": "villa"}`,
	}

	handler, _ := newTestHandler(oracle, services.StaticSecretProvider{Key: "k"}, true)
	resp, err := handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	handler, _ = newTestHandler(oracle, services.StaticSecretProvider{Key: "k"}, false)
	resp, err = handler.Handle(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandle_ImageSuccess(t *testing.T) {
	oracle := &stubOracle{response: `{"title": "Townhouse in Seminyak", "currency": "IDR", "monthlyRent": 45000000}`}
	handler, _ := newTestHandler(oracle, services.StaticSecretProvider{Key: "k"}, false)

	event, err := services.BuildAnalyzeEvent(&models.RawListingInput{
		SourceImage: &models.SourceImage{Data: []byte("\xff\xd8\xff\xe0jpeg"), MIMEType: "image/jpeg"},
	}, "user-1")
	require.NoError(t, err)

	resp, err := handler.Handle(context.Background(), event)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, models.ImageSourceSnippet, body.Data.SourceText)
	assert.Equal(t, "Townhouse in Seminyak", body.Data.ExtractedListing.Title)
}
