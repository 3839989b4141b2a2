// Package config loads runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds every tunable the agent reads at startup.
type Config struct {
	GeminiAPIKey    string
	UseAISummarizer bool

	TopN         int
	MaxPerSource int
	WindowDays   int
	EnrichLimit  int

	MaxAIRequests  int
	RequestTimeout time.Duration

	FeedsConfigPath string
	Debug           bool
}

// Load reads configuration from environment variables, applying defaults for
// anything unset.
func Load() *Config {
	return &Config{
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		UseAISummarizer: getBool("USE_AI_SUMMARIZER", false),
		TopN:            getInt("TOP_N_ARTICLES", 5),
		MaxPerSource:    getInt("MAX_PER_SOURCE", 2),
		WindowDays:      getInt("WINDOW_DAYS", 7),
		EnrichLimit:     getInt("ENRICH_LIMIT", 100),
		MaxAIRequests:   getInt("MAX_AI_REQUESTS", 50),
		RequestTimeout:  time.Duration(getInt("REQUEST_TIMEOUT_SECONDS", 15)) * time.Second,
		FeedsConfigPath: os.Getenv("FEEDS_CONFIG_PATH"),
		Debug:           getBool("DEBUG", false),
	}
}

// Validate checks settings that would make a run fail later.
func (c *Config) Validate() error {
	if c.UseAISummarizer && c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required when USE_AI_SUMMARIZER is enabled")
	}
	if c.TopN <= 0 {
		return fmt.Errorf("TOP_N_ARTICLES must be positive, got %d", c.TopN)
	}
	if c.WindowDays <= 0 {
		return fmt.Errorf("WINDOW_DAYS must be positive, got %d", c.WindowDays)
	}
	return nil
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
