package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration. Tunables that shape the
// pipeline's output live in Pipeline and are loaded separately.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	LogLevel  string
	LogFormat string

	// RawDir holds the four input tables, OutDir receives every artifact.
	RawDir string
	OutDir string

	// ReportPDF, when set, is the path the validation report is rendered to.
	ReportPDF string

	StoreEnabled bool

	DBType     string
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	OtelEnabled  bool
	OtelEndpoint string
	OtelProtocol string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:      getenv("APP_SERVICE", "churnpipe"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFormat:    getenv("LOG_FORMAT", "json"),
		RawDir:       getenv("RAW_DATA_DIR", "data/raw"),
		OutDir:       getenv("PROCESSED_DATA_DIR", "data/processed"),
		ReportPDF:    strings.TrimSpace(getenv("VALIDATION_REPORT_PDF", "")),
		StoreEnabled: getenvBool("ARTIFACT_STORE_ENABLED", true),
		DBType:       getenv("DATABASE_TYPE", "sqlite"),
		DBHost:       getenv("DATABASE_HOST", "localhost"),
		DBPort:       getenv("DATABASE_PORT", "5432"),
		DBName:       getenv("DATABASE_NAME", "churnpipe"),
		DBUser:       getenv("DATABASE_USER", "postgres"),
		DBPassword:   getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:    getenv("DATABASE_SSLMODE", "disable"),
		OtelEnabled:  getenvBool("OTEL_ENABLED", false),
		OtelEndpoint: getenv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
		OtelProtocol: strings.ToLower(getenv("OTEL_EXPORTER_PROTOCOL", "grpc")),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
