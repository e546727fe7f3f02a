package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	lambdaclient "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"rental-listing-analyzer/internal/config"
	"rental-listing-analyzer/internal/logging"
	"rental-listing-analyzer/internal/models"
	"rental-listing-analyzer/internal/services"
)

type batchFlags struct {
	samplesPath  string
	fromTable    bool
	limit        int
	remote       bool
	functionName string
	output       string
	allowedAreas []string
	concurrency  int
	verbose      bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &batchFlags{}

	cmd := &cobra.Command{
		Use:   "batch_analyze",
		Short: "Run a batch of listing sources through the analyzer",
		Long: `Analyzes sample listings from a YAML file (local or s3://) or the listings
table, checks each extracted listing and writes a JSON report.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVarP(&flags.samplesPath, "samples", "s", "", "YAML samples file, local path or s3://bucket/key")
	cmd.Flags().BoolVar(&flags.fromTable, "from-table", false, "scan samples from LISTINGS_TABLE instead of a file")
	cmd.Flags().IntVar(&flags.limit, "limit", 0, "maximum number of samples (0 = all)")
	cmd.Flags().BoolVar(&flags.remote, "remote", false, "invoke the deployed analyzer function instead of running in-process")
	cmd.Flags().StringVar(&flags.functionName, "function", "", "analyzer function name (default ANALYZER_FUNCTION_NAME)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "analysisResults.json", "report destination, local path or s3://bucket/key")
	cmd.Flags().StringSliceVar(&flags.allowedAreas, "allowed-areas", nil, "accepted locationArea values (default Bali areas)")
	cmd.Flags().IntVarP(&flags.concurrency, "concurrency", "c", 1, "samples analyzed in parallel")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging")

	return cmd
}

func runBatch(ctx context.Context, flags *batchFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := cfg.LogLevel
	if flags.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, true)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Sync()

	if flags.samplesPath == "" && !flags.fromTable {
		return fmt.Errorf("one of --samples or --from-table is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	objects := services.NewObjectStore(s3.NewFromConfig(awsCfg), cfg.ReportBucket)

	samples, err := loadSamples(ctx, flags, cfg, objects, dynamodb.NewFromConfig(awsCfg))
	if err != nil {
		return err
	}
	if flags.limit > 0 && len(samples) > flags.limit {
		samples = samples[:flags.limit]
	}
	if len(samples) == 0 {
		return fmt.Errorf("no samples to analyze")
	}

	mode := services.BatchModeLocal
	var extractor services.ListingExtractor
	if flags.remote {
		mode = services.BatchModeRemote
		functionName := flags.functionName
		if functionName == "" {
			functionName = cfg.AnalyzerFunctionName
		}
		if functionName == "" {
			return fmt.Errorf("--function or ANALYZER_FUNCTION_NAME is required with --remote")
		}
		extractor = services.NewRemoteAnalyzer(lambdaclient.NewFromConfig(awsCfg), functionName)
	} else {
		extractor, err = newLocalAnalyzer(cfg, ssm.NewFromConfig(awsCfg), logger)
		if err != nil {
			return err
		}
	}

	allowedAreas := flags.allowedAreas
	if len(allowedAreas) == 0 {
		allowedAreas = cfg.AllowedAreas
	}

	runner := services.NewBatchRunner(extractor, objects, services.BatchOptions{
		Mode:         mode,
		AllowedAreas: allowedAreas,
		Concurrency:  flags.concurrency,
	}, logger)

	report, runErr := runner.Run(ctx, samples)
	if report != nil {
		if err := writeReport(ctx, objects, flags.output, report); err != nil {
			return err
		}
		logger.Info("Report written", zap.String("output", flags.output))
		fmt.Println(renderResultsTable(report))
		fmt.Println(renderSummary(report.Summary))
	}
	return runErr
}

func newLocalAnalyzer(cfg *config.Config, ssmClient *ssm.Client, logger *zap.Logger) (*services.ListingAnalyzer, error) {
	var secrets services.SecretProvider = services.NewSSMSecretProvider(ssmClient, cfg.APIKeyParam, logger)
	if cfg.LocalAPIKey != "" {
		secrets = services.LocalFirstSecretProvider{
			Local:    services.StaticSecretProvider{Key: cfg.LocalAPIKey},
			Fallback: secrets,
		}
	}

	newOracle, err := services.NewOracleFactory(cfg)
	if err != nil {
		return nil, err
	}
	return services.NewListingAnalyzer(secrets, newOracle, logger), nil
}

func loadSamples(ctx context.Context, flags *batchFlags, cfg *config.Config, objects *services.ObjectStore, dynamo *dynamodb.Client) ([]models.BatchSample, error) {
	if flags.fromTable {
		return services.NewListingSourceStore(dynamo, cfg.ListingsTable).ScanSamples(ctx, flags.limit)
	}

	var data []byte
	if services.IsS3URI(flags.samplesPath) {
		loc, err := services.ParseS3URI(flags.samplesPath)
		if err != nil {
			return nil, err
		}
		data, _, err = objects.Download(ctx, loc)
		if err != nil {
			return nil, err
		}
	} else {
		var err error
		data, err = os.ReadFile(flags.samplesPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read samples file: %w", err)
		}
	}
	return parseSamples(data)
}

func parseSamples(data []byte) ([]models.BatchSample, error) {
	var file models.BatchSamplesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse samples file: %w", err)
	}
	for i := range file.Samples {
		if file.Samples[i].ID == "" {
			file.Samples[i].ID = models.GenerateSampleID(file.Samples[i].SourceText, file.Samples[i].ImageKey)
		}
	}
	return file.Samples, nil
}

func writeReport(ctx context.Context, objects *services.ObjectStore, output string, report *models.BatchReport) error {
	if services.IsS3URI(output) {
		loc, err := services.ParseS3URI(output)
		if err != nil {
			return err
		}
		return objects.UploadReport(ctx, loc, report)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
