// Package memory is an in-process vector index using brute-force cosine
// similarity. It backs tests and deployments without a Qdrant instance.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"docq/internal/domain"
)

type Storage struct {
	mu        sync.RWMutex
	dimension int
	records   map[string]domain.VectorRecord
}

func NewStorage() *Storage {
	return &Storage{records: make(map[string]domain.VectorRecord)}
}

func (s *Storage) Ensure(_ context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = dimension
	}
	if s.dimension != dimension {
		return errors.New("dimension mismatch with existing collection")
	}
	return nil
}

func (s *Storage) Upsert(_ context.Context, records []domain.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if s.dimension != 0 && len(r.Vector) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		s.records[r.ID] = r
	}
	return nil
}

func (s *Storage) Search(_ context.Context, vector []float64, limit int, scoreThreshold float64, filter domain.IndexFilter) ([]domain.SearchHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 5
	}

	allowed := map[string]struct{}{}
	for _, id := range filter.DocumentIDs {
		allowed[id] = struct{}{}
	}

	var hits []domain.SearchHit
	for id, r := range s.records {
		if filter.DocumentID != "" && r.Payload.DocumentID != filter.DocumentID {
			continue
		}
		if filter.DocumentID == "" && len(allowed) > 0 {
			if _, ok := allowed[r.Payload.DocumentID]; !ok {
				continue
			}
		}
		score := cosine(vector, r.Vector)
		if score < scoreThreshold {
			continue
		}
		hits = append(hits, domain.SearchHit{ChunkID: id, Score: score, Payload: r.Payload})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (s *Storage) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.records {
		if r.Payload.DocumentID == documentID {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *Storage) DocumentIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]struct{}{}
	var ids []string
	for _, r := range s.records {
		if _, ok := seen[r.Payload.DocumentID]; ok {
			continue
		}
		seen[r.Payload.DocumentID] = struct{}{}
		ids = append(ids, r.Payload.DocumentID)
	}
	return ids, nil
}

func (s *Storage) Ping(context.Context) error { return nil }

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
