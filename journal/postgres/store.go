// Package postgres stores journal entries, analyses and embeddings in PostgreSQL with the
// pgvector extension.
package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"github.com/theimaginaryfoundation/mood-journal/journal"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	db DB
	sb sq.StatementBuilderType
}

var _ journal.Store = (*Store)(nil)

func New(db DB) *Store {
	return &Store{db: db, sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

var entryColumns = []string{
	"e.id::text", "e.user_id", "e.content", "e.status", "e.created_at", "e.updated_at",
	"a.id::text", "a.mood", "a.subject", "a.negative", "a.summary", "a.color", "a.sentiment_score",
	"a.created_at", "a.updated_at",
}

func (s *Store) selectEntries() sq.SelectBuilder {
	return s.sb.Select(entryColumns...).
		From("journal_entries e").
		Join("entry_analysis a ON a.entry_id = e.id")
}

func scanEntry(row pgx.Row) (journal.Entry, error) {
	var e journal.Entry
	a := &e.Analysis
	err := row.Scan(
		&e.ID, &e.UserID, &e.Content, &e.Status, &e.CreatedAt, &e.UpdatedAt,
		&a.ID, &a.Mood, &a.Subject, &a.Negative, &a.Summary, &a.Color, &a.SentimentScore,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return journal.Entry{}, err
	}
	a.EntryID = e.ID
	a.UserID = e.UserID
	return e, nil
}

const insertEntrySQL = `
	INSERT INTO journal_entries (id, user_id, content, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6)
`

const upsertAnalysisSQL = `
	INSERT INTO entry_analysis
		(id, entry_id, user_id, mood, subject, negative, summary, color, sentiment_score, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (entry_id) DO UPDATE SET
		mood = EXCLUDED.mood,
		subject = EXCLUDED.subject,
		negative = EXCLUDED.negative,
		summary = EXCLUDED.summary,
		color = EXCLUDED.color,
		sentiment_score = EXCLUDED.sentiment_score,
		updated_at = EXCLUDED.updated_at
`

func analysisArgs(a journal.EntryAnalysis) []any {
	return []any{
		a.ID, a.EntryID, a.UserID,
		a.Mood, a.Subject, a.Negative, a.Summary, a.Color, a.SentimentScore,
		a.CreatedAt, a.UpdatedAt,
	}
}

func (s *Store) CreateEntry(ctx context.Context, e journal.Entry) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, insertEntrySQL,
		e.ID, e.UserID, e.Content, string(e.Status), e.CreatedAt, e.UpdatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	if _, err = tx.Exec(ctx, upsertAnalysisSQL, analysisArgs(e.Analysis)...); err != nil {
		return fmt.Errorf("failed to insert analysis: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, userID, id string) (journal.Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return journal.Entry{}, journal.ErrNotFound
	}
	query, args, err := s.selectEntries().
		Where(sq.Eq{"e.id": id, "e.user_id": userID}).
		ToSql()
	if err != nil {
		return journal.Entry{}, fmt.Errorf("failed to build query: %w", err)
	}
	e, err := scanEntry(s.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return journal.Entry{}, journal.ErrNotFound
	}
	if err != nil {
		return journal.Entry{}, fmt.Errorf("failed to get entry: %w", err)
	}
	return e, nil
}

func (s *Store) ListEntries(ctx context.Context, userID string, f journal.ListFilter) ([]journal.Entry, error) {
	q := s.selectEntries().Where(sq.Eq{"e.user_id": userID})
	if f.Status != "" {
		q = q.Where(sq.Eq{"e.status": string(f.Status)})
	}
	if !f.From.IsZero() {
		q = q.Where(sq.GtOrEq{"e.created_at": f.From})
	}
	if !f.To.IsZero() {
		q = q.Where(sq.LtOrEq{"e.created_at": f.To})
	}
	query, args, err := q.OrderBy("e.created_at ASC", "e.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	out := []journal.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

func (s *Store) UpdateEntry(ctx context.Context, e journal.Entry) error {
	if _, err := uuid.Parse(e.ID); err != nil {
		return journal.ErrNotFound
	}
	query, args, err := s.sb.Update("journal_entries").
		Set("content", e.Content).
		Set("status", string(e.Status)).
		Set("updated_at", e.UpdatedAt).
		Where(sq.Eq{"id": e.ID, "user_id": e.UserID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return journal.ErrNotFound
	}
	return nil
}

func (s *Store) SaveAnalysis(ctx context.Context, a journal.EntryAnalysis) error {
	if _, err := s.db.Exec(ctx, upsertAnalysisSQL, analysisArgs(a)...); err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, userID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return journal.ErrNotFound
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM journal_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return journal.ErrNotFound
	}
	return nil
}

const upsertVectorSQL = `
	INSERT INTO vector_entries (entry_id, user_id, content, created_at, embedding)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (entry_id) DO UPDATE SET
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding
`

func (s *Store) UpsertVector(ctx context.Context, v journal.EntryVector) error {
	_, err := s.db.Exec(ctx, upsertVectorSQL,
		v.EntryID, v.UserID, v.Content, v.CreatedAt, pgvector.NewVector(v.Embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert vector: %w", err)
	}
	return nil
}

func (s *Store) DeleteVector(ctx context.Context, userID, entryID string) error {
	if _, err := uuid.Parse(entryID); err != nil {
		return nil
	}
	if _, err := s.db.Exec(ctx, `DELETE FROM vector_entries WHERE entry_id = $1 AND user_id = $2`, entryID, userID); err != nil {
		return fmt.Errorf("failed to delete vector: %w", err)
	}
	return nil
}

// Cosine distance (<=>) is in [0, 2]; the score is 1 - distance.
const searchSimilarSQL = `
	SELECT entry_id::text, user_id, content, created_at, embedding, 1 - (embedding <=> $2) AS score
	FROM vector_entries
	WHERE user_id = $1
	ORDER BY embedding <=> $2
	LIMIT $3
`

func (s *Store) SearchSimilar(ctx context.Context, userID string, embedding []float32, k int) ([]journal.ScoredEntry, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, searchSimilarSQL, userID, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vectors: %w", err)
	}
	defer rows.Close()

	var out []journal.ScoredEntry
	for rows.Next() {
		var (
			hit journal.ScoredEntry
			vec pgvector.Vector
		)
		if err := rows.Scan(&hit.EntryID, &hit.UserID, &hit.Content, &hit.CreatedAt, &vec, &hit.Score); err != nil {
			return nil, fmt.Errorf("failed to scan vector: %w", err)
		}
		hit.Embedding = vec.Slice()
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
