// Package memstore provides an in-memory PassageStore with the same
// ordering contract as the pgvector repository. It backs tests and local
// runs without Postgres.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"knowledge-orchestrator/internal/domain"

	"github.com/google/uuid"
)

type generation struct {
	embedderVersion string
	passages        []domain.IndexedPassage
}

// Store keeps passage generations in memory. Promote atomically swaps the
// live generation pointer and drops every other generation.
type Store struct {
	mu          sync.RWMutex
	generations map[uuid.UUID]*generation
	live        uuid.UUID
	hasLive     bool
}

// New creates an empty store.
func New() *Store {
	return &Store{generations: make(map[uuid.UUID]*generation)}
}

func (s *Store) CreateGeneration(_ context.Context, embedderVersion string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.generations[id] = &generation{embedderVersion: embedderVersion}
	return id, nil
}

func (s *Store) AddPassages(_ context.Context, generationID uuid.UUID, passages []domain.IndexedPassage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gen, ok := s.generations[generationID]
	if !ok {
		return fmt.Errorf("generation %s not found", generationID)
	}
	gen.passages = append(gen.passages, passages...)
	return nil
}

func (s *Store) Promote(_ context.Context, generationID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.generations[generationID]; !ok {
		return fmt.Errorf("generation %s not found", generationID)
	}
	s.live = generationID
	s.hasLive = true
	for id := range s.generations {
		if id != generationID {
			delete(s.generations, id)
		}
	}
	return nil
}

func (s *Store) Query(_ context.Context, embedding []float32, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasLive {
		return []domain.RetrievalResult{}, nil
	}
	gen := s.generations[s.live]

	type scored struct {
		passage  domain.IndexedPassage
		distance float64
	}
	candidates := make([]scored, 0, len(gen.passages))
	for _, p := range gen.passages {
		candidates = append(candidates, scored{
			passage:  p,
			distance: cosineDistance(embedding, p.Embedding),
		})
	}

	// Nearest first; ties resolve by insertion ordinal ascending.
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].passage.Ordinal < candidates[j].passage.Ordinal
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	results := make([]domain.RetrievalResult, 0, k)
	for _, c := range candidates[:k] {
		results = append(results, c.passage.AsResult())
	}
	return results, nil
}

func cosineDistance(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

var _ domain.PassageStore = (*Store)(nil)
