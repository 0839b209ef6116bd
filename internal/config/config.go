package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all runtime configuration, loaded from environment variables
// or an optional .env file.
type Config struct {
	Port         string
	DatabasePath string
	JWTSecret    string

	// Upload constraints for signed bulletins and onboarding documents
	UploadDir          string
	MaxUploadSizeBytes int64

	// How long an order may wait for its signed bulletin before expiring
	DocumentDeadline time.Duration

	// Commission rates per security type (fraction of gross, e.g. 0.03)
	CommissionAction       float64
	CommissionObligation   float64
	CommissionSukuk        float64
	CommissionParticipatif float64

	// Regulatory approval reference printed on order confirmations
	VisaCOSOB string
}

// Load reads configuration from the environment. A missing .env file is not
// an error; production deployments rely on real environment variables.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file, using environment")
	}

	return &Config{
		Port:                   getEnv("PORT", "8080"),
		DatabasePath:           getEnv("DATABASE_PATH", "bourse.db"),
		JWTSecret:              getEnv("JWT_SECRET", "bourse-secret-key"),
		UploadDir:              getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSizeBytes:     getEnvInt64("MAX_UPLOAD_SIZE_BYTES", 2*1024*1024),
		DocumentDeadline:       getEnvDuration("DOCUMENT_DEADLINE", 48*time.Hour),
		CommissionAction:       getEnvFloat("COMMISSION_ACTION", 0.03),
		CommissionObligation:   getEnvFloat("COMMISSION_OBLIGATION", 0.015),
		CommissionSukuk:        getEnvFloat("COMMISSION_SUKUK", 0.015),
		CommissionParticipatif: getEnvFloat("COMMISSION_PARTICIPATIF", 0.02),
		VisaCOSOB:              getEnv("VISA_COSOB", ""),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid float in environment, using default")
		return fallback
	}
	return f
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("invalid duration in environment, using default")
		return fallback
	}
	return d
}
