// Package memstore keeps journal data in process memory. It backs the server when no
// database is configured and serves as the store in tests.
package memstore

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/theimaginaryfoundation/mood-journal/journal"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string]journal.Entry
	vectors map[string]journal.EntryVector
}

var _ journal.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		entries: make(map[string]journal.Entry),
		vectors: make(map[string]journal.EntryVector),
	}
}

func (s *Store) CreateEntry(_ context.Context, e journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.ID] = e
	return nil
}

func (s *Store) GetEntry(_ context.Context, userID, id string) (journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok || e.UserID != userID {
		return journal.Entry{}, journal.ErrNotFound
	}
	return e, nil
}

func (s *Store) ListEntries(_ context.Context, userID string, f journal.ListFilter) ([]journal.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []journal.Entry{}
	for _, e := range s.entries {
		if e.UserID != userID {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && e.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && e.CreatedAt.After(f.To) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateEntry(_ context.Context, e journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[e.ID]
	if !ok || cur.UserID != e.UserID {
		return journal.ErrNotFound
	}
	cur.Content = e.Content
	cur.Status = e.Status
	cur.UpdatedAt = e.UpdatedAt
	s.entries[e.ID] = cur
	return nil
}

func (s *Store) SaveAnalysis(_ context.Context, a journal.EntryAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.entries[a.EntryID]
	if !ok || cur.UserID != a.UserID {
		return journal.ErrNotFound
	}
	cur.Analysis = a
	s.entries[a.EntryID] = cur
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.UserID != userID {
		return journal.ErrNotFound
	}
	delete(s.entries, id)
	delete(s.vectors, id)
	return nil
}

func (s *Store) UpsertVector(_ context.Context, v journal.EntryVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[v.EntryID]; !ok || e.UserID != v.UserID {
		return journal.ErrNotFound
	}
	v.Embedding = append([]float32(nil), v.Embedding...)
	s.vectors[v.EntryID] = v
	return nil
}

func (s *Store) DeleteVector(_ context.Context, userID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.vectors[entryID]; ok && v.UserID == userID {
		delete(s.vectors, entryID)
	}
	return nil
}

// SearchSimilar ranks the user's vectors by cosine similarity.
func (s *Store) SearchSimilar(_ context.Context, userID string, embedding []float32, k int) ([]journal.ScoredEntry, error) {
	if k <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]journal.ScoredEntry, 0, len(s.vectors))
	for _, v := range s.vectors {
		if v.UserID != userID {
			continue
		}
		hits = append(hits, journal.ScoredEntry{EntryVector: v, Score: cosine(embedding, v.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].EntryID < hits[j].EntryID
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// cosine returns 0 for mismatched lengths or zero vectors.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
