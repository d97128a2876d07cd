// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server needs at startup. All values come from
// FINTRACK_* environment variables.
type Config struct {
	Port           string
	GeminiAPIKey   string
	GeminiModel    string
	LLMTimeout     time.Duration
	UseMemoryStore bool
	GCPProject     string
	LogLevel       string
}

// Load reads configuration from the environment. A missing .env file is not
// an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("FINTRACK")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8111")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash")
	v.SetDefault("LLM_TIMEOUT", "90s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("USE_MEMORY_STORE", false)

	timeout, err := time.ParseDuration(v.GetString("LLM_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("parse FINTRACK_LLM_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Port:           v.GetString("PORT"),
		GeminiAPIKey:   v.GetString("GEMINI_API_KEY"),
		GeminiModel:    v.GetString("GEMINI_MODEL"),
		LLMTimeout:     timeout,
		UseMemoryStore: v.GetBool("USE_MEMORY_STORE"),
		GCPProject:     v.GetString("GCP_PROJECT"),
		LogLevel:       v.GetString("LOG_LEVEL"),
	}

	if !cfg.UseMemoryStore && cfg.GCPProject == "" {
		return nil, fmt.Errorf("FINTRACK_GCP_PROJECT is required unless FINTRACK_USE_MEMORY_STORE is set")
	}
	return cfg, nil
}
