package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/aws/aws-lambda-go/events"

	"rental-listing-analyzer/internal/models"
)

// SourceImageField is the multipart form field carrying the listing image
const SourceImageField = "sourceImage"

// ParseAnalysisRequest extracts the listing input from an API Gateway request.
// Multipart requests take the image path; everything else is read as JSON.
func ParseAnalysisRequest(req events.APIGatewayProxyRequest) (*models.RawListingInput, error) {
	contentType := HeaderValue(req.Headers, "Content-Type")
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "multipart/") {
		return parseImageRequest(req, contentType)
	}
	return parseTextRequest(req)
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if !req.IsBase64Encoded {
		return []byte(req.Body), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 body: %w", err)
	}
	return decoded, nil
}

func parseImageRequest(req events.APIGatewayProxyRequest, contentType string) (*models.RawListingInput, error) {
	if req.Body == "" {
		return nil, errBadRequest(CodeEmptyBody, "Request body is empty")
	}

	body, err := requestBody(req)
	if err != nil {
		return nil, errBadRequest(CodeInvalidMultipart, "Request body is not valid multipart data").WithCause(err)
	}
	if len(body) == 0 {
		return nil, errBadRequest(CodeEmptyBody, "Request body is empty")
	}

	_, params, err := mime.ParseMediaType(contentType)
	if err != nil || params["boundary"] == "" {
		invalid := errBadRequest(CodeInvalidMultipart, "Content-Type must include a multipart boundary")
		if err != nil {
			invalid = invalid.WithCause(err)
		}
		return nil, invalid
	}

	reader := multipart.NewReader(bytes.NewReader(body), params["boundary"])
	for {
		part, err := reader.NextPart()
		// A clean end of input is reported as a bare io.EOF; truncated bodies
		// wrap it
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errBadRequest(CodeInvalidMultipart, "Failed to parse multipart body").WithCause(err)
		}

		if part.FormName() != SourceImageField {
			part.Close()
			continue
		}

		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, errBadRequest(CodeInvalidMultipart, "Failed to read sourceImage part").WithCause(err)
		}
		if len(data) == 0 {
			return nil, errBadRequest(CodeMissingImage, "sourceImage part is empty")
		}

		return &models.RawListingInput{
			SourceImage: &models.SourceImage{
				Data:     data,
				MIMEType: imageMIMEType(part.Header.Get("Content-Type"), data),
				Filename: part.FileName(),
			},
		}, nil
	}

	return nil, errBadRequest(CodeMissingImage, "sourceImage file is required")
}

// imageMIMEType prefers the declared part type and sniffs the bytes when the
// client sent none or a generic one
func imageMIMEType(declared string, data []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	sniffed := http.DetectContentType(data)
	if mediaType, _, err := mime.ParseMediaType(sniffed); err == nil {
		return mediaType
	}
	return sniffed
}

func parseTextRequest(req events.APIGatewayProxyRequest) (*models.RawListingInput, error) {
	body, err := requestBody(req)
	if err != nil {
		return nil, errBadRequest(CodeInvalidJSON, "Request body must be valid JSON").WithCause(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errBadRequest(CodeInvalidJSON, "Request body must be valid JSON").WithCause(err)
	}

	sourceText, ok := payload["sourceText"].(string)
	if !ok || sourceText == "" {
		return nil, errBadRequest(CodeMissingSourceText, "sourceText is required and must be a string")
	}

	sourceText = strings.TrimSpace(sourceText)
	if sourceText == "" {
		return nil, errBadRequest(CodeEmptySourceText, "sourceText cannot be empty")
	}

	if length := utf8.RuneCountInString(sourceText); length > models.MaxSourceTextLength {
		return nil, errBadRequest(CodeSourceTextTooLong, "sourceText cannot exceed 10,000 characters").
			WithDetails(map[string]int{"length": length, "maxLength": models.MaxSourceTextLength})
	}

	return &models.RawListingInput{SourceText: sourceText}, nil
}
