package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes surfaced to API callers
const (
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeEmptyBody            = "EMPTY_BODY"
	CodeInvalidMultipart     = "INVALID_MULTIPART"
	CodeMissingImage         = "MISSING_IMAGE"
	CodeInvalidJSON          = "INVALID_JSON"
	CodeMissingSourceText    = "MISSING_SOURCE_TEXT"
	CodeEmptySourceText      = "EMPTY_SOURCE_TEXT"
	CodeSourceTextTooLong    = "SOURCE_TEXT_TOO_LONG"
	CodeMissingAPIKey        = "MISSING_API_KEY"
	CodeAPIKeyRetrievalError = "API_KEY_RETRIEVAL_ERROR"
	CodeAIResponseParseError = "AI_RESPONSE_PARSE_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
)

// InternalErrorMessage is returned for any failure without its own code
const InternalErrorMessage = "An internal error occurred during AI analysis"

// AnalysisError is an error that carries the HTTP status and machine-readable
// code reported to the caller
type AnalysisError struct {
	StatusCode int
	Code       string
	Message    string
	Details    interface{}
	Err        error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewAnalysisError creates an AnalysisError
func NewAnalysisError(statusCode int, code, message string) *AnalysisError {
	return &AnalysisError{StatusCode: statusCode, Code: code, Message: message}
}

// WithDetails attaches caller-visible details
func (e *AnalysisError) WithDetails(details interface{}) *AnalysisError {
	e.Details = details
	return e
}

// WithCause records the underlying error; it is logged, never returned to the caller
func (e *AnalysisError) WithCause(err error) *AnalysisError {
	e.Err = err
	return e
}

// AsAnalysisError extracts the AnalysisError from err, mapping anything
// unrecognized to INTERNAL_ERROR
func AsAnalysisError(err error) *AnalysisError {
	var analysisErr *AnalysisError
	if errors.As(err, &analysisErr) {
		return analysisErr
	}
	return NewAnalysisError(http.StatusInternalServerError, CodeInternalError, InternalErrorMessage).WithCause(err)
}

// ErrMethodNotAllowed rejects any method other than POST on the analyze endpoint
func ErrMethodNotAllowed(method string) *AnalysisError {
	return NewAnalysisError(http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Only POST is supported").
		WithDetails(map[string]string{"method": method})
}

func errUnauthorized() *AnalysisError {
	return NewAnalysisError(http.StatusUnauthorized, CodeUnauthorized, "Missing or invalid authentication token")
}

func errBadRequest(code, message string) *AnalysisError {
	return NewAnalysisError(http.StatusBadRequest, code, message)
}
