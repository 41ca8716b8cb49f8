// Package config loads process configuration from the environment,
// following the teacher's getEnvOrDefault convention rather than a
// third-party config-loading library (none appears anywhere in the
// retrieved example corpus).
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds every environment-driven knob listed in spec.md §6.
type Config struct {
	Port string

	DatabaseURL     string
	DBMaxOpenConns  int
	DBMaxIdleConns  int

	LogLevel  string
	LogFormat string

	LLMProviderURL string
	LLMAPIKey      string
	LLMModelID     string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMTimeout     time.Duration

	GeocoderURL     string
	GeocoderDisable bool
	GeocoderRPS     float64

	IngestMaxInFlightPerSource int
	IngestDefaultIntervalS     int
	BreakerFailureThreshold    int
	BreakerHalfOpenAfter       time.Duration

	FusionTickInterval    time.Duration
	FusionWindow          time.Duration
	RetentionTickInterval time.Duration
	DossierStatsInterval  time.Duration

	EventRetentionDays int
	RetentionGraceDays int

	AdminAPIKey string
	JWTSecret   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	MetricsDisabled bool
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBoolOrDefault(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getEnvDurationOrDefault(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load reads Config from the environment, applying the same defaults the
// teacher's services apply in database.go/email.go.
func Load() *Config {
	return &Config{
		Port: getEnvOrDefault("PORT", "8080"),

		DatabaseURL:    getEnvOrDefault("DATABASE_URL", "postgres://localhost/sitrep?sslmode=disable"),
		DBMaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 40),
		DBMaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 10),

		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "json"),

		LLMProviderURL: getEnvOrDefault("LLM_PROVIDER_URL", ""),
		LLMAPIKey:      getEnvOrDefault("LLM_API_KEY", ""),
		LLMModelID:     getEnvOrDefault("LLM_MODEL_ID", "gpt-4o-mini"),
		LLMTemperature: getEnvFloatOrDefault("LLM_TEMPERATURE", 0.2),
		LLMMaxTokens:   getEnvIntOrDefault("LLM_MAX_TOKENS", 800),
		LLMTimeout:     getEnvDurationOrDefault("LLM_TIMEOUT", 20*time.Second),

		GeocoderURL:     getEnvOrDefault("GEOCODER_URL", ""),
		GeocoderDisable: getEnvBoolOrDefault("GEOCODER_DISABLE", true),
		GeocoderRPS:     getEnvFloatOrDefault("GEOCODER_RPS", 1.0),

		IngestMaxInFlightPerSource: getEnvIntOrDefault("INGEST_MAX_IN_FLIGHT", 4),
		IngestDefaultIntervalS:     getEnvIntOrDefault("INGEST_DEFAULT_INTERVAL_SECONDS", 300),
		BreakerFailureThreshold:    getEnvIntOrDefault("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerHalfOpenAfter:       getEnvDurationOrDefault("BREAKER_HALF_OPEN_AFTER", 10*time.Minute),

		FusionTickInterval:    getEnvDurationOrDefault("FUSION_TICK_INTERVAL", 2*time.Minute),
		FusionWindow:          getEnvDurationOrDefault("FUSION_WINDOW", 24*time.Hour),
		RetentionTickInterval: getEnvDurationOrDefault("RETENTION_TICK_INTERVAL", 24*time.Hour),
		DossierStatsInterval:  getEnvDurationOrDefault("DOSSIER_STATS_INTERVAL", 5*time.Minute),

		EventRetentionDays: getEnvIntOrDefault("EVENT_RETENTION_DAYS", 90),
		RetentionGraceDays: getEnvIntOrDefault("RETENTION_GRACE_DAYS", 7),

		AdminAPIKey: getEnvOrDefault("ADMIN_API_KEY", ""),
		JWTSecret:   getEnvOrDefault("JWT_SECRET", "dev-secret-change-me"),

		SMTPHost: getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort: getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUser: getEnvOrDefault("SMTP_USER", ""),
		SMTPPass: getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom: getEnvOrDefault("SMTP_FROM", "alerts@sitrep.local"),

		MetricsDisabled: getEnvBoolOrDefault("METRICS_DISABLED", false),
	}
}
