package services

import (
	"context"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"go.uber.org/zap"
)

// SecretProvider supplies the oracle API credential
type SecretProvider interface {
	GetAPIKey(ctx context.Context) (string, error)
}

// ssmParameterAPI is the subset of *ssm.Client used here
type ssmParameterAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSecretProvider reads the API key from SSM Parameter Store
type SSMSecretProvider struct {
	client        ssmParameterAPI
	parameterName string
	logger        *zap.Logger
}

// NewSSMSecretProvider creates a provider for the given parameter
func NewSSMSecretProvider(client ssmParameterAPI, parameterName string, logger *zap.Logger) *SSMSecretProvider {
	return &SSMSecretProvider{
		client:        client,
		parameterName: parameterName,
		logger:        logger,
	}
}

// GetAPIKey fetches and decrypts the parameter
func (p *SSMSecretProvider) GetAPIKey(ctx context.Context) (string, error) {
	p.logger.Debug("Fetching API key from SSM", zap.String("parameter", p.parameterName))

	result, err := p.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(p.parameterName),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", NewAnalysisError(http.StatusInternalServerError, CodeAPIKeyRetrievalError, "Failed to retrieve API key").WithCause(err)
	}

	if result.Parameter == nil || aws.ToString(result.Parameter.Value) == "" {
		return "", NewAnalysisError(http.StatusInternalServerError, CodeMissingAPIKey, "API key not found in parameter store")
	}

	return aws.ToString(result.Parameter.Value), nil
}

// StaticSecretProvider returns a key taken from the environment. It is only
// wired up for local development.
type StaticSecretProvider struct {
	Key string
}

// GetAPIKey returns the configured key
func (p StaticSecretProvider) GetAPIKey(ctx context.Context) (string, error) {
	if p.Key == "" {
		return "", NewAnalysisError(http.StatusInternalServerError, CodeMissingAPIKey, "API key not configured")
	}
	return p.Key, nil
}

// LocalFirstSecretProvider prefers a local key and falls back to another provider
type LocalFirstSecretProvider struct {
	Local    StaticSecretProvider
	Fallback SecretProvider
}

// GetAPIKey returns the local key when set, otherwise asks the fallback
func (p LocalFirstSecretProvider) GetAPIKey(ctx context.Context) (string, error) {
	if p.Local.Key != "" {
		return p.Local.Key, nil
	}
	return p.Fallback.GetAPIKey(ctx)
}
