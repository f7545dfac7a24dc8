package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/theimaginaryfoundation/mood-journal/analysis"
	"github.com/theimaginaryfoundation/mood-journal/analysis/provider"
	"github.com/theimaginaryfoundation/mood-journal/journal/postgres"
)

type Config struct {
	Addr        string
	DatabaseURL string
	Migrate     bool

	Model               string
	EmbeddingModel      string
	EmbeddingDimensions int
	MaxOutputTokens     int
	APIKey              string

	LogLevel string
}

func (c Config) Validate() error {
	if c.Addr == "" {
		return errors.New("missing -addr")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.EmbeddingModel == "" {
		return errors.New("missing -embedding-model")
	}
	if c.EmbeddingDimensions <= 0 {
		return errors.New("embedding-dimensions must be > 0")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("max-output-tokens must be > 0")
	}
	if c.Migrate && c.DatabaseURL == "" {
		return errors.New("-migrate requires -database-url")
	}
	if c.DatabaseURL != "" && c.EmbeddingDimensions != postgres.VectorDimensions {
		return fmt.Errorf("embedding-dimensions must be %d with a database (vector column width)", postgres.VectorDimensions)
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Addr:                ":8080",
		Model:               provider.DefaultModel,
		EmbeddingModel:      provider.DefaultEmbeddingModel,
		EmbeddingDimensions: provider.DefaultEmbeddingDimensions,
		MaxOutputTokens:     analysis.DefaultMaxOutputTokens,
	}
}

// applyEnv fills settings left empty on the command line from the environment.
func applyEnv(cfg Config, getenv func(string) string) Config {
	if cfg.APIKey == "" {
		cfg.APIKey = getenv("OPENAI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = getenv("DATABASE_URL")
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = getenv("LOG_LEVEL")
	}
	return cfg
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
