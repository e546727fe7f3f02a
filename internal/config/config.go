package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Oracle providers
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Stage     string
	AWSRegion string

	// LocalDev is true only when IS_OFFLINE is exactly "true". It enables the
	// test-token auth bypass, the GEMINI_API_KEY override and the mock oracle.
	LocalDev     bool
	LocalAPIKey  string
	APIKeyParam  string
	LogLevel     string
	AllowedAreas []string

	OracleProvider    string
	GeminiModel       string
	OpenAIModel       string
	OracleTemperature float32
	OracleMaxTokens   int

	ListingsTable        string
	ReportBucket         string
	AnalyzerFunctionName string
}

// Load reads the .env file (if present) and returns a populated Config struct.
// The .env file is optional; Lambda deployments use plain environment variables.
func Load() *Config {
	_ = godotenv.Load()

	stage := getEnv("STAGE", "dev")

	return &Config{
		Stage:     stage,
		AWSRegion: getEnv("AWS_REGION", "ap-southeast-1"),

		LocalDev:     os.Getenv("IS_OFFLINE") == "true",
		LocalAPIKey:  os.Getenv("GEMINI_API_KEY"),
		APIKeyParam:  getEnv("API_KEY_PARAMETER", fmt.Sprintf("/baliciaga/%s/geminiApiKey", stage)),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		AllowedAreas: getEnvList("ALLOWED_AREAS"),

		OracleProvider:    strings.ToLower(getEnv("ORACLE_PROVIDER", ProviderGemini)),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIModel:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OracleTemperature: getEnvFloat32("ORACLE_TEMPERATURE", 0.1),
		OracleMaxTokens:   getEnvInt("ORACLE_MAX_TOKENS", 4000),

		ListingsTable:        os.Getenv("LISTINGS_TABLE"),
		ReportBucket:         os.Getenv("REPORT_BUCKET"),
		AnalyzerFunctionName: os.Getenv("ANALYZER_FUNCTION_NAME"),
	}
}

// Validate checks settings that have no usable default
func (c *Config) Validate() error {
	switch c.OracleProvider {
	case ProviderGemini, ProviderOpenAI:
	case ProviderMock:
		if !c.LocalDev {
			return fmt.Errorf("ORACLE_PROVIDER=mock requires IS_OFFLINE=true")
		}
	default:
		return fmt.Errorf("unknown ORACLE_PROVIDER %q", c.OracleProvider)
	}
	if c.APIKeyParam == "" {
		return fmt.Errorf("API_KEY_PARAMETER must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat32(key string, fallback float32) float32 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 32)
		if err == nil {
			return float32(f)
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
