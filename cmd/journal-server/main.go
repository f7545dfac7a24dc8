// Command journal-server serves the journal HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/theimaginaryfoundation/mood-journal/analysis"
	"github.com/theimaginaryfoundation/mood-journal/analysis/provider"
	"github.com/theimaginaryfoundation/mood-journal/httpapi"
	"github.com/theimaginaryfoundation/mood-journal/journal"
	"github.com/theimaginaryfoundation/mood-journal/journal/memstore"
	"github.com/theimaginaryfoundation/mood-journal/journal/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	cfg = applyEnv(cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}

	logger := newLogger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg Config, logger *slog.Logger) error {
	var store journal.Store
	if cfg.DatabaseURL != "" {
		if cfg.Migrate {
			n, err := postgres.Migrate(ctx, cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("migrations_applied", slog.Int("count", n))
		}
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL, postgres.PoolConfig{})
		if err != nil {
			return fmt.Errorf("connect db: %w", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	} else {
		logger.Warn("using_memory_store", slog.String("reason", "no database url configured"))
		store = memstore.New()
	}

	svc := journal.NewService(store, serviceOptions(cfg, logger)...)
	e := httpapi.NewServer(svc, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_starting", slog.String("addr", cfg.Addr))
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("server_stopping")
	return e.Shutdown(shutdownCtx)
}

// serviceOptions wires the model-backed features. Without an API key entries keep their
// placeholder analysis and questions are rejected.
func serviceOptions(cfg Config, logger *slog.Logger) []journal.Option {
	opts := []journal.Option{journal.WithLogger(logger)}
	if cfg.APIKey == "" {
		logger.Warn("analysis_disabled", slog.String("reason", "no OpenAI API key configured"))
		return opts
	}

	client := provider.NewClient(cfg.APIKey)
	extractor := &analysis.Extractor{
		Client:          &provider.OpenAICompleter{Client: client, Model: cfg.Model},
		MaxOutputTokens: cfg.MaxOutputTokens,
	}
	policy := provider.DefaultRetryPolicy()
	answerer := &provider.OpenAICompleter{Client: client, Model: cfg.Model, Retry: &policy}
	embedder := &provider.OpenAIEmbedder{
		Client:     client,
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.EmbeddingDimensions,
		Logger:     logger,
	}
	return append(opts,
		journal.WithAnalyzer(extractor),
		journal.WithAnswerer(answerer),
		journal.WithEmbedder(embedder),
	)
}

func newLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "PostgreSQL URL (overrides DATABASE_URL; empty = in-memory store)")
	fs.BoolVar(&cfg.Migrate, "migrate", false, "Apply database migrations before serving")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model for analysis and answers")
	fs.StringVar(&cfg.EmbeddingModel, "embedding-model", cfg.EmbeddingModel, "OpenAI embedding model")
	fs.IntVar(&cfg.EmbeddingDimensions, "embedding-dimensions", cfg.EmbeddingDimensions, "Embedding dimensions (must match the vector column)")
	fs.IntVar(&cfg.MaxOutputTokens, "max-output-tokens", cfg.MaxOutputTokens, "Output token cap for each completion call")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL; default info)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	return cfg, nil
}
