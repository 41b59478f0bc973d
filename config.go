package blindspot

import (
	"fmt"
	"os"
	"strconv"
)

// Config carries the runtime settings the CLI builds from the
// environment and passes down explicitly.
type Config struct {
	OpenAIAPIKey        string
	EmbeddingModel      string
	SummaryModel        string
	DatabasePath        string
	Eps                 float64
	MinSamples          int
	SimilarityThreshold float64
	BatchSize           int
}

// LoadConfig reads configuration from the environment. Only
// OPENAI_API_KEY is required; everything else has a default.
func LoadConfig() (Config, error) {
	cfg := Config{
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel:      envOr("BLINDSPOT_EMBEDDING_MODEL", "text-embedding-3-small"),
		SummaryModel:        envOr("BLINDSPOT_SUMMARY_MODEL", "gpt-4o-mini"),
		DatabasePath:        envOr("BLINDSPOT_DB", "blindspot.db"),
		Eps:                 DefaultEps,
		MinSamples:          DefaultMinSamples,
		SimilarityThreshold: DefaultSimilarityThreshold,
		BatchSize:           DefaultBatchSize,
	}
	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("OPENAI_API_KEY is not set")
	}

	var err error
	if cfg.Eps, err = envFloat("BLINDSPOT_EPS", cfg.Eps); err != nil {
		return Config{}, err
	}
	if cfg.MinSamples, err = envInt("BLINDSPOT_MIN_SAMPLES", cfg.MinSamples); err != nil {
		return Config{}, err
	}
	if cfg.SimilarityThreshold, err = envFloat("BLINDSPOT_SIMILARITY_THRESHOLD", cfg.SimilarityThreshold); err != nil {
		return Config{}, err
	}
	if cfg.BatchSize, err = envInt("BLINDSPOT_BATCH_SIZE", cfg.BatchSize); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}
