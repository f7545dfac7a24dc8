package main

import (
	"errors"

	"github.com/theimaginaryfoundation/mood-journal/analysis"
	"github.com/theimaginaryfoundation/mood-journal/analysis/provider"
)

type Config struct {
	InPath          string
	OutPath         string
	Model           string
	MaxOutputTokens int
	Pretty          bool
	Overwrite       bool
	APIKey          string
}

func (c Config) Validate() error {
	if c.InPath == "" {
		return errors.New("missing -in")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.MaxOutputTokens <= 0 {
		return errors.New("max-output-tokens must be > 0")
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		InPath:          "-",
		Model:           provider.DefaultModel,
		MaxOutputTokens: analysis.DefaultMaxOutputTokens,
	}
}
