package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/theimaginaryfoundation/mood-journal/journal"
	"github.com/theimaginaryfoundation/mood-journal/journal/memstore"
)

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("journal-server", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-addr", "127.0.0.1:9000",
		"-database-url", "postgres://localhost/journal",
		"-migrate",
		"-model", "gpt-4o",
		"-embedding-dimensions", "256",
		"-max-output-tokens", "800",
		"-api-key", "k",
		"-log-level", "debug",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.DatabaseURL != "postgres://localhost/journal" || !cfg.Migrate {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.Model != "gpt-4o" || cfg.EmbeddingDimensions != 256 || cfg.MaxOutputTokens != 800 {
		t.Fatalf("cfg=%+v", cfg)
	}
	if cfg.APIKey != "k" || cfg.LogLevel != "debug" {
		t.Fatalf("APIKey=%q LogLevel=%q", cfg.APIKey, cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestApplyEnv_FlagsWin(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		"OPENAI_API_KEY": "env-key",
		"DATABASE_URL":   "postgres://env/db",
		"LOG_LEVEL":      "warn",
	}
	getenv := func(k string) string { return env[k] }

	cfg := applyEnv(defaultConfig(), getenv)
	if cfg.APIKey != "env-key" || cfg.DatabaseURL != "postgres://env/db" || cfg.LogLevel != "warn" {
		t.Fatalf("cfg=%+v", cfg)
	}

	flagged := defaultConfig()
	flagged.APIKey = "flag-key"
	flagged.DatabaseURL = "postgres://flag/db"
	cfg = applyEnv(flagged, getenv)
	if cfg.APIKey != "flag-key" || cfg.DatabaseURL != "postgres://flag/db" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg := defaultConfig()
	cfg.Migrate = true
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for -migrate without database")
	}
	cfg = defaultConfig()
	cfg.EmbeddingDimensions = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for zero dimensions")
	}

	// Other widths only work with the in-memory store.
	cfg = defaultConfig()
	cfg.EmbeddingDimensions = 512
	if err := cfg.Validate(); err != nil {
		t.Fatalf("memory store with 512 dims: %v", err)
	}
	cfg.DatabaseURL = "postgres://localhost/journal"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for 512 dims against the vector column")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}

	var buf bytes.Buffer
	logger := newLogger("warn", &buf)
	logger.Info("hidden")
	logger.Warn("shown", slog.String("k", "v"))
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), `"msg":"shown"`) {
		t.Fatalf("log output=%q", buf.String())
	}
}

func TestServiceOptions_WithoutAPIKeyDisablesModels(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	svc := journal.NewService(memstore.New(), serviceOptions(defaultConfig(), logger)...)
	if _, err := svc.Ask(context.Background(), "u1", "how am I?"); !errors.Is(err, journal.ErrQuestionsDisabled) {
		t.Fatalf("err=%v", err)
	}

	e, err := svc.CreateEntry(context.Background(), "u1", "draft")
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	content := "new text"
	got, err := svc.UpdateEntry(context.Background(), "u1", e.ID, journal.EntryUpdate{Content: &content})
	if err != nil || got.Content != "new text" || got.Analysis.Mood != "Neutral" {
		t.Fatalf("got=%+v err=%v", got, err)
	}

	withKey := defaultConfig()
	withKey.APIKey = "k"
	if n := len(serviceOptions(withKey, logger)); n != 4 {
		t.Fatalf("options=%d, want logger + analyzer + answerer + embedder", n)
	}
}
