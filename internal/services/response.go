package services

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"rental-listing-analyzer/internal/models"
)

// CORSHeaders are attached to every response of the analyze endpoint
func CORSHeaders() map[string]string {
	return map[string]string{
		"Content-Type":                 "application/json",
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type,Authorization",
		"Access-Control-Allow-Methods": "POST,OPTIONS",
	}
}

// SuccessResponse wraps an analysis outcome in the API envelope
func SuccessResponse(outcome *AnalysisOutcome, input *models.RawListingInput) events.APIGatewayProxyResponse {
	sourceText := models.ImageSourceSnippet
	if input.Kind() == models.InputKindText {
		sourceText = models.SourceSnippet(input.SourceText)
	}

	return jsonResponse(http.StatusOK, models.APIResponse{
		Success: true,
		Data: &models.AnalysisData{
			ExtractedListing: outcome.Listing,
			SourceText:       sourceText,
			AIProcessedAt:    models.FormatProcessedAt(outcome.ProcessedAt),
		},
	})
}

// ErrorResponse renders err using its status and code, or as INTERNAL_ERROR
func ErrorResponse(err error) events.APIGatewayProxyResponse {
	analysisErr := AsAnalysisError(err)
	return jsonResponse(analysisErr.StatusCode, models.APIResponse{
		Success: false,
		Error: &models.ErrorBody{
			Code:    analysisErr.Code,
			Message: analysisErr.Message,
			Details: analysisErr.Details,
		},
	})
}

// PreflightResponse answers a CORS preflight request
func PreflightResponse() events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers:    CORSHeaders(),
	}
}

func jsonResponse(statusCode int, body models.APIResponse) events.APIGatewayProxyResponse {
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    CORSHeaders(),
			Body:       `{"success":false,"error":{"code":"INTERNAL_ERROR","message":"An internal error occurred during AI analysis"}}`,
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    CORSHeaders(),
		Body:       string(bodyJSON),
	}
}
