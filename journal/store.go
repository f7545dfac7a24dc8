package journal

import (
	"context"

	"github.com/theimaginaryfoundation/mood-journal/analysis"
)

// Store persists entries, their analyses and their embeddings. Every read and write is
// scoped to one user; an entry owned by another user is reported as ErrNotFound.
type Store interface {
	// CreateEntry inserts the entry together with its analysis.
	CreateEntry(ctx context.Context, e Entry) error
	GetEntry(ctx context.Context, userID, id string) (Entry, error)
	// ListEntries returns matching entries in ascending creation order.
	ListEntries(ctx context.Context, userID string, f ListFilter) ([]Entry, error)
	// UpdateEntry writes content, status and updated time.
	UpdateEntry(ctx context.Context, e Entry) error
	// SaveAnalysis replaces the analysis of a.EntryID.
	SaveAnalysis(ctx context.Context, a EntryAnalysis) error
	// DeleteEntry removes the entry, its analysis and its embedding.
	DeleteEntry(ctx context.Context, userID, id string) error

	UpsertVector(ctx context.Context, v EntryVector) error
	// DeleteVector drops an entry's embedding. Deleting a missing vector is not an error.
	DeleteVector(ctx context.Context, userID, entryID string) error
	// SearchSimilar returns at most k of the user's entries, most similar first.
	SearchSimilar(ctx context.Context, userID string, embedding []float32, k int) ([]ScoredEntry, error)
}

// Analyzer produces an analysis for entry text. *analysis.Extractor implements it.
type Analyzer interface {
	Extract(ctx context.Context, entryText string) (analysis.Analysis, error)
}

// Embedder encodes texts as vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

var _ Analyzer = (*analysis.Extractor)(nil)
