package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"rental-listing-analyzer/internal/config"
	"rental-listing-analyzer/internal/logging"
	"rental-listing-analyzer/internal/models"
	"rental-listing-analyzer/internal/services"
)

// listingAnalyzer is the part of services.ListingAnalyzer the handler needs
type listingAnalyzer interface {
	Analyze(ctx context.Context, input *models.RawListingInput) (*services.AnalysisOutcome, error)
}

// AnalyzeHandler serves POST /listings/analyze-source
type AnalyzeHandler struct {
	auth     services.AuthPolicy
	analyzer listingAnalyzer
	logger   *zap.Logger
}

// NewAnalyzeHandler creates the handler
func NewAnalyzeHandler(auth services.AuthPolicy, analyzer listingAnalyzer, logger *zap.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{auth: auth, analyzer: analyzer, logger: logger}
}

// Handle runs one request. Every outcome, including failures, is returned as
// an HTTP response; the Lambda error is always nil.
func (h *AnalyzeHandler) Handle(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if request.HTTPMethod == http.MethodOptions {
		return services.PreflightResponse(), nil
	}

	requestID := request.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := h.logger.With(zap.String("request_id", requestID))

	if request.HTTPMethod != http.MethodPost {
		logger.Info("Rejected request method", zap.String("method", request.HTTPMethod))
		return services.ErrorResponse(services.ErrMethodNotAllowed(request.HTTPMethod)), nil
	}

	caller, err := h.auth.Authenticate(request)
	if err != nil {
		logger.Warn("Rejected unauthenticated request")
		return services.ErrorResponse(err), nil
	}
	if caller.Bypassed {
		logger.Info("Test token accepted, skipping claim checks")
	}
	logger = logger.With(zap.String("user", caller.Subject))

	input, err := services.ParseAnalysisRequest(request)
	if err != nil {
		logger.Info("Rejected invalid request", zap.Error(err))
		return services.ErrorResponse(err), nil
	}

	outcome, err := h.analyzer.Analyze(ctx, input)
	if err != nil {
		logger.Error("Listing analysis failed", zap.Error(err))
		return services.ErrorResponse(err), nil
	}

	logger.Info("Listing analyzed",
		zap.String("input_kind", string(input.Kind())),
		zap.String("oracle", outcome.Oracle),
		zap.Int("validation_issues", len(outcome.Validation.Issues)),
		zap.Duration("duration", outcome.Duration))

	return services.SuccessResponse(outcome, input), nil
}

func buildHandler(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*AnalyzeHandler, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, err
	}

	var secrets services.SecretProvider = services.NewSSMSecretProvider(ssm.NewFromConfig(awsCfg), cfg.APIKeyParam, logger)
	if cfg.LocalDev {
		secrets = services.LocalFirstSecretProvider{
			Local:    services.StaticSecretProvider{Key: cfg.LocalAPIKey},
			Fallback: secrets,
		}
	}

	newOracle, err := services.NewOracleFactory(cfg)
	if err != nil {
		return nil, err
	}

	analyzer := services.NewListingAnalyzer(secrets, newOracle, logger)
	return NewAnalyzeHandler(services.NewAuthPolicy(cfg.LocalDev), analyzer, logger), nil
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LocalDev)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	handler, err := buildHandler(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize handler", zap.Error(err))
	}

	logger.Info("Starting analyze-listing-source",
		zap.String("stage", cfg.Stage),
		zap.String("oracle_provider", cfg.OracleProvider),
		zap.Bool("local_dev", cfg.LocalDev))

	lambda.Start(handler.Handle)
}
