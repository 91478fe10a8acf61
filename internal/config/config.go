// Package config loads service settings from the environment, reading a
// local .env file first when one exists.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	GinMode          string
	Env              string
	LogLevel         string
	ModelPath        string
	PreprocessorPath string
	DatabaseURL      string
	EnableDB         bool
	CORSOrigins      []string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		GinMode:          getEnv("GIN_MODE", "release"),
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		ModelPath:        getEnv("MODEL_PATH", "artifacts/model.json"),
		PreprocessorPath: getEnv("PREPROCESSOR_PATH", "artifacts/preprocessor.json"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		EnableDB:         strings.EqualFold(getEnv("ENABLE_DB", "false"), "true"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements. It is called again after CLI
// flags override loaded values.
func (c *Config) Validate() error {
	if c.EnableDB && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when ENABLE_DB=true")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}
	if c.ModelPath == "" || c.PreprocessorPath == "" {
		return fmt.Errorf("MODEL_PATH and PREPROCESSOR_PATH must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
