package analysis

import (
	"context"
	"errors"
)

// DefaultMaxOutputTokens caps each completion of an extraction.
const DefaultMaxOutputTokens = 1000

// Completer sends a prompt to a completion endpoint and returns the generated text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Extractor turns journal text into a validated Analysis with one primary completion and at
// most one repair completion. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	Client          Completer
	MaxOutputTokens int
}

// NewExtractor returns an Extractor using the default output cap.
func NewExtractor(client Completer) *Extractor {
	return &Extractor{Client: client, MaxOutputTokens: DefaultMaxOutputTokens}
}

// Extract runs the extraction for one entry.
//
//	primary -> parse ok -> done
//	        -> parse failed -> repair -> parse ok -> done
//	                                  -> parse failed -> *SchemaValidationError
//
// A failed call at either stage returns *TransportError immediately.
func (e *Extractor) Extract(ctx context.Context, entryText string) (Analysis, error) {
	if e == nil || e.Client == nil {
		return Analysis{}, &TransportError{Stage: StagePrimary, Err: errors.New("extractor: client is nil")}
	}

	raw, err := e.complete(ctx, StagePrimary, BuildPrompt(entryText))
	if err != nil {
		return Analysis{}, err
	}
	out, primaryErr := ParseAnalysis(raw)
	if primaryErr == nil {
		return out, nil
	}

	repaired, err := e.complete(ctx, StageRepair, BuildRepairPrompt(raw, primaryErr))
	if err != nil {
		return Analysis{}, err
	}
	out, repairErr := ParseAnalysis(repaired)
	if repairErr == nil {
		return out, nil
	}
	return Analysis{}, &SchemaValidationError{Primary: primaryErr, Repair: repairErr}
}

func (e *Extractor) complete(ctx context.Context, stage Stage, prompt string) (string, error) {
	maxTokens := e.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	text, err := e.Client.Complete(ctx, CompletionRequest{
		Prompt:          prompt,
		Temperature:     0,
		MaxOutputTokens: maxTokens,
	})
	if err != nil {
		return "", &TransportError{Stage: stage, Err: err}
	}
	return text, nil
}
