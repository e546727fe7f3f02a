package services

import (
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// TestTokenMarker is the substring of a bearer token that bypasses claim
// checks in local development
const TestTokenMarker = "test-token"

// Caller is the authenticated identity behind a request
type Caller struct {
	Subject  string
	Bypassed bool
}

// AuthPolicy decides who is calling
type AuthPolicy interface {
	Authenticate(req events.APIGatewayProxyRequest) (*Caller, error)
}

// NewAuthPolicy returns the Cognito policy, wrapped with the test-token
// bypass only when localDev is set
func NewAuthPolicy(localDev bool) AuthPolicy {
	if localDev {
		return LocalDevAuthPolicy{Next: CognitoAuthPolicy{}}
	}
	return CognitoAuthPolicy{}
}

// CognitoAuthPolicy requires Cognito user pool claims with a subject,
// as attached by the API Gateway authorizer
type CognitoAuthPolicy struct{}

// Authenticate reads the authorizer claims
func (CognitoAuthPolicy) Authenticate(req events.APIGatewayProxyRequest) (*Caller, error) {
	sub := claimString(req.RequestContext.Authorizer, "sub")
	if sub == "" {
		return nil, errUnauthorized()
	}
	return &Caller{Subject: sub}, nil
}

// LocalDevAuthPolicy lets requests carrying a test token through without
// claims. Anything else is passed to Next.
type LocalDevAuthPolicy struct {
	Next AuthPolicy
}

// Authenticate applies the bypass
func (p LocalDevAuthPolicy) Authenticate(req events.APIGatewayProxyRequest) (*Caller, error) {
	if strings.Contains(HeaderValue(req.Headers, "Authorization"), TestTokenMarker) {
		return &Caller{Subject: "local-test-user", Bypassed: true}, nil
	}
	return p.Next.Authenticate(req)
}

func claimString(authorizer map[string]interface{}, name string) string {
	if authorizer == nil {
		return ""
	}
	switch claims := authorizer["claims"].(type) {
	case map[string]interface{}:
		s, _ := claims[name].(string)
		return s
	case map[string]string:
		return claims[name]
	default:
		return ""
	}
}

// HeaderValue looks a header up case-insensitively
func HeaderValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}
