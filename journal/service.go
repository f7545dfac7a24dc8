package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/theimaginaryfoundation/mood-journal/analysis"
)

// Service is the journal's application layer: it owns the entry lifecycle and decides what
// happens when analysis of an entry fails.
type Service struct {
	store    Store
	analyzer Analyzer
	embedder Embedder
	answerer analysis.Completer
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithAnalyzer enables analysis of updated entries. Without it entries keep the placeholder.
func WithAnalyzer(a Analyzer) Option {
	return func(s *Service) { s.analyzer = a }
}

// WithEmbedder enables the vector index used by Ask.
func WithEmbedder(e Embedder) Option {
	return func(s *Service) { s.embedder = e }
}

// WithAnswerer sets the completer used by Ask.
func WithAnswerer(c analysis.Completer) Option {
	return func(s *Service) { s.answerer = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}

// CreateEntry stores a new draft with the placeholder analysis. No model call is made.
func (s *Service) CreateEntry(ctx context.Context, userID, content string) (Entry, error) {
	if err := requireUser(userID); err != nil {
		return Entry{}, err
	}
	now := s.timestamp()
	id := uuid.NewString()
	e := Entry{
		ID:        id,
		UserID:    userID,
		Content:   content,
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
		Analysis: EntryAnalysis{
			ID:        uuid.NewString(),
			EntryID:   id,
			UserID:    userID,
			Analysis:  analysis.DefaultAnalysis(),
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
	if err := s.store.CreateEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("create entry: %w", err)
	}
	s.logger.Info("entry_created", slog.String("entry_id", id), slog.String("user_id", userID))
	s.refreshVector(ctx, e)
	return e, nil
}

func (s *Service) GetEntry(ctx context.Context, userID, id string) (Entry, error) {
	if err := requireUser(userID); err != nil {
		return Entry{}, err
	}
	return s.store.GetEntry(ctx, userID, id)
}

func (s *Service) ListEntries(ctx context.Context, userID string, f ListFilter) ([]Entry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.store.ListEntries(ctx, userID, f)
}

// UpdateEntry saves the update and, when content was supplied and an analyzer is set,
// re-analyzes the entry and replaces its analysis.
//
// If extraction fails the update stays saved, the previous analysis is kept and the
// returned error wraps both ErrAnalysisFailed and the extraction error. The returned entry
// is valid in that case.
func (s *Service) UpdateEntry(ctx context.Context, userID, id string, upd EntryUpdate) (Entry, error) {
	if err := requireUser(userID); err != nil {
		return Entry{}, err
	}
	e, err := s.store.GetEntry(ctx, userID, id)
	if err != nil {
		return Entry{}, err
	}
	if upd.Status != nil {
		st, err := ParseStatus(string(*upd.Status))
		if err != nil {
			return Entry{}, err
		}
		e.Status = st
	}
	if upd.Content != nil {
		e.Content = *upd.Content
	}
	e.UpdatedAt = s.timestamp()
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("update entry: %w", err)
	}

	if upd.Content == nil {
		return e, nil
	}
	s.refreshVector(ctx, e)
	if s.analyzer == nil {
		return e, nil
	}

	start := time.Now()
	a, err := s.analyzer.Extract(ctx, e.Content)
	if err != nil {
		s.logger.Error("entry_analysis_failed",
			slog.String("entry_id", e.ID),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return e, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	for _, w := range analysis.CheckRanges(a) {
		s.logger.Warn("analysis_range_warning",
			slog.String("entry_id", e.ID),
			slog.String("field", w.Field),
			slog.String("detail", w.Message),
		)
	}

	ea := e.Analysis
	if ea.ID == "" {
		ea.ID = uuid.NewString()
		ea.CreatedAt = e.UpdatedAt
	}
	ea.EntryID = e.ID
	ea.UserID = e.UserID
	ea.Analysis = a
	ea.UpdatedAt = e.UpdatedAt
	if err := s.store.SaveAnalysis(ctx, ea); err != nil {
		return e, fmt.Errorf("save analysis: %w", err)
	}
	e.Analysis = ea
	s.logger.Info("entry_analyzed",
		slog.String("entry_id", e.ID),
		slog.String("mood", a.Mood),
		slog.Float64("sentiment_score", a.SentimentScore),
		slog.Duration("elapsed", time.Since(start)),
	)
	return e, nil
}

// EditContent replaces an entry's content without re-analysis.
func (s *Service) EditContent(ctx context.Context, userID, id, content string) (Entry, error) {
	if err := requireUser(userID); err != nil {
		return Entry{}, err
	}
	if strings.TrimSpace(content) == "" {
		return Entry{}, fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	e, err := s.store.GetEntry(ctx, userID, id)
	if err != nil {
		return Entry{}, err
	}
	e.Content = content
	e.UpdatedAt = s.timestamp()
	if err := s.store.UpdateEntry(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("edit entry: %w", err)
	}
	s.refreshVector(ctx, e)
	return e, nil
}

func (s *Service) DeleteEntry(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.store.DeleteEntry(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("entry_deleted", slog.String("entry_id", id), slog.String("user_id", userID))
	return nil
}

// refreshVector re-embeds an entry, or drops its embedding when the content is blank.
// Failures are logged; the entry is already saved.
func (s *Service) refreshVector(ctx context.Context, e Entry) {
	if strings.TrimSpace(e.Content) == "" {
		if err := s.store.DeleteVector(ctx, e.UserID, e.ID); err != nil {
			s.logger.Warn("entry_index_failed",
				slog.String("entry_id", e.ID),
				slog.String("error", err.Error()),
			)
		}
		return
	}
	if s.embedder == nil {
		return
	}
	vecs, err := s.embedder.Embed(ctx, []string{e.Content})
	if err == nil && len(vecs) != 1 {
		err = fmt.Errorf("got %d embeddings, want 1", len(vecs))
	}
	if err == nil {
		err = s.store.UpsertVector(ctx, EntryVector{
			EntryID:   e.ID,
			UserID:    e.UserID,
			Content:   e.Content,
			CreatedAt: e.CreatedAt,
			Embedding: vecs[0],
		})
	}
	if err != nil {
		s.logger.Warn("entry_index_failed",
			slog.String("entry_id", e.ID),
			slog.String("error", err.Error()),
		)
	}
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return nil
}
