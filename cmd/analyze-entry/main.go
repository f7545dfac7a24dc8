// Command analyze-entry extracts a mood analysis from one journal entry and prints it as JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/theimaginaryfoundation/mood-journal/analysis"
	"github.com/theimaginaryfoundation/mood-journal/analysis/provider"
	"github.com/theimaginaryfoundation/mood-journal/fileutils"
)

const (
	exitOK         = 0
	exitExtraction = 1
	exitUsage      = 2
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitUsage)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(exitUsage)
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "missing OPENAI_API_KEY (or pass -api-key)")
		os.Exit(exitUsage)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	completer := &provider.OpenAICompleter{
		Client: provider.NewClient(apiKey),
		Model:  cfg.Model,
	}
	os.Exit(run(ctx, cfg, completer, os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, cfg Config, client analysis.Completer, stdin io.Reader, stdout, stderr io.Writer) int {
	text, err := fileutils.ReadText(cfg.InPath, stdin)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}

	ex := &analysis.Extractor{Client: client, MaxOutputTokens: cfg.MaxOutputTokens}
	result, err := ex.Extract(ctx, text)
	if err != nil {
		var te *analysis.TransportError
		var sve *analysis.SchemaValidationError
		switch {
		case errors.As(err, &te):
			fmt.Fprintf(stderr, "transport error during %s call: %v\n", te.Stage, te.Err)
		case errors.As(err, &sve):
			fmt.Fprintf(stderr, "model output did not match the schema after one repair attempt\n  primary: %v\n  repair: %v\n", sve.Primary, sve.Repair)
		default:
			fmt.Fprintln(stderr, err.Error())
		}
		return exitExtraction
	}

	for _, w := range analysis.CheckRanges(result) {
		fmt.Fprintln(stderr, "warning: "+w.String())
	}

	if cfg.OutPath != "" {
		if err := fileutils.WriteJSONFileAtomic(cfg.OutPath, result, cfg.Pretty, cfg.Overwrite); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return exitUsage
		}
		fmt.Fprintf(stderr, "wrote %s (%s, %s)\n", cfg.OutPath, result.Mood, fileutils.Truncate(result.Summary, 60))
		return exitOK
	}

	b, err := fileutils.MarshalJSON(result, cfg.Pretty)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return exitExtraction
	}
	fmt.Fprintln(stdout, string(b))
	return exitOK
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InPath, "in", cfg.InPath, "Path to a journal entry text file, or - for stdin")
	fs.StringVar(&cfg.OutPath, "out", "", "Optional path for the analysis JSON (default: stdout)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "OpenAI model to use")
	fs.IntVar(&cfg.MaxOutputTokens, "max-output-tokens", cfg.MaxOutputTokens, "Output token cap for each completion call")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print the analysis JSON")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite -out if it exists")
	fs.StringVar(&cfg.APIKey, "api-key", "", "OpenAI API key (overrides OPENAI_API_KEY env var)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	if cfg.InPath != fileutils.StdinPath {
		cfg.InPath = filepath.Clean(cfg.InPath)
	}
	if cfg.OutPath != "" {
		cfg.OutPath = filepath.Clean(cfg.OutPath)
	}
	return cfg, nil
}
