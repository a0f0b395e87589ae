package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config is the full environment-driven configuration of the service.
type Config struct {
	Port           string
	ModelPath      string
	MetricsPath    string
	StaticDir      string
	EnableDB       bool
	DatabaseURL    string
	RateLimitRPS   float64
	RateLimitBurst int
	GinMode        string
}

// Load reads configuration from the environment, with .env support and
// sane defaults for local runs.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		ModelPath:      getEnv("MODEL_PATH", "artifacts/model.json"),
		MetricsPath:    getEnv("METRICS_PATH", "artifacts/model_metrics.json"),
		StaticDir:      getEnv("STATIC_DIR", "web"),
		EnableDB:       strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 100),
		GinMode:        getEnv("GIN_MODE", "release"),
	}

	if cfg.EnableDB && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return nil, fmt.Errorf("rate limit settings must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
