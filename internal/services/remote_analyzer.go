package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/google/uuid"

	"rental-listing-analyzer/internal/models"
)

// BatchCallerSubject is the Cognito subject batch runs present to the deployed function
const BatchCallerSubject = "batch-analysis-user"

const analyzeSourcePath = "/listings/analyze-source"

// lambdaInvokeAPI is the subset of *lambda.Client used here
type lambdaInvokeAPI interface {
	Invoke(ctx context.Context, params *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

// RemoteAnalyzer runs listings through the deployed analyzer function with a
// synchronous invoke and a synthetic API Gateway event
type RemoteAnalyzer struct {
	client       lambdaInvokeAPI
	functionName string
}

// NewRemoteAnalyzer creates a remote analyzer for the named function
func NewRemoteAnalyzer(client lambdaInvokeAPI, functionName string) *RemoteAnalyzer {
	return &RemoteAnalyzer{
		client:       client,
		functionName: functionName,
	}
}

// AnalyzeListing invokes the function and unwraps the API envelope
func (r *RemoteAnalyzer) AnalyzeListing(ctx context.Context, input *models.RawListingInput) (*models.CanonicalListing, error) {
	event, err := BuildAnalyzeEvent(input, BatchCallerSubject)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoke payload: %w", err)
	}

	out, err := r.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(r.functionName),
		InvocationType: lambdatypes.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", r.functionName, err)
	}
	if out.FunctionError != nil {
		return nil, fmt.Errorf("function %s failed (%s): %s", r.functionName, aws.ToString(out.FunctionError), string(out.Payload))
	}

	var response events.APIGatewayProxyResponse
	if err := json.Unmarshal(out.Payload, &response); err != nil {
		return nil, fmt.Errorf("failed to decode function response: %w", err)
	}

	apiResponse, err := models.DecodeAPIResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body (status %d): %w", response.StatusCode, err)
	}
	if !apiResponse.Success || apiResponse.Data == nil {
		if apiResponse.Error != nil {
			return nil, NewAnalysisError(response.StatusCode, apiResponse.Error.Code, apiResponse.Error.Message)
		}
		return nil, fmt.Errorf("function %s returned status %d without data", r.functionName, response.StatusCode)
	}
	if apiResponse.Data.ExtractedListing == nil {
		return nil, fmt.Errorf("function %s returned no listing", r.functionName)
	}
	return apiResponse.Data.ExtractedListing, nil
}

// BuildAnalyzeEvent renders input as the API Gateway request the analyze
// endpoint receives, authorized as subject
func BuildAnalyzeEvent(input *models.RawListingInput, subject string) (events.APIGatewayProxyRequest, error) {
	if err := input.Validate(); err != nil {
		return events.APIGatewayProxyRequest{}, err
	}

	event := events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       analyzeSourcePath,
		Resource:   analyzeSourcePath,
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID:  uuid.NewString(),
			HTTPMethod: http.MethodPost,
			Authorizer: map[string]interface{}{
				"claims": map[string]interface{}{"sub": subject},
			},
		},
	}

	if input.Kind() == models.InputKindText {
		body, err := json.Marshal(map[string]string{"sourceText": input.SourceText})
		if err != nil {
			return events.APIGatewayProxyRequest{}, fmt.Errorf("failed to marshal sourceText: %w", err)
		}
		event.Headers = map[string]string{"Content-Type": "application/json"}
		event.Body = string(body)
		return event, nil
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	filename := input.SourceImage.Filename
	if filename == "" {
		filename = "listing"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, SourceImageField, filename))
	header.Set("Content-Type", input.SourceImage.MIMEType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return events.APIGatewayProxyRequest{}, fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(input.SourceImage.Data); err != nil {
		return events.APIGatewayProxyRequest{}, fmt.Errorf("failed to write image part: %w", err)
	}
	if err := writer.Close(); err != nil {
		return events.APIGatewayProxyRequest{}, fmt.Errorf("failed to close multipart body: %w", err)
	}

	event.Headers = map[string]string{"Content-Type": writer.FormDataContentType()}
	event.Body = base64.StdEncoding.EncodeToString(buf.Bytes())
	event.IsBase64Encoded = true
	return event, nil
}
