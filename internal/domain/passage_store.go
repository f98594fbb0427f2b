package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidTopK is returned by PassageStore.Query when k is not positive.
var ErrInvalidTopK = errors.New("top-k must be a positive integer")

// PassageStore is the persistent vector collection backing the embedding
// index. The index is rebuilt wholesale: a build writes a fresh generation,
// then Promote swaps the live head atomically so readers never observe a
// half-built or empty index. Stale generations are dropped after the swap.
type PassageStore interface {
	// CreateGeneration registers a new, not-yet-live index generation.
	CreateGeneration(ctx context.Context, embedderVersion string) (uuid.UUID, error)

	// AddPassages bulk-inserts passages into a generation.
	AddPassages(ctx context.Context, generationID uuid.UUID, passages []IndexedPassage) error

	// Promote makes the generation the live one and drops stale
	// generations. The head swap is atomic from the reader's perspective.
	Promote(ctx context.Context, generationID uuid.UUID) error

	// Query returns the k nearest passages to the embedding from the live
	// generation, nearest first, ties broken by insertion id ascending.
	// An empty or absent live generation yields an empty list, not an
	// error. k must be positive.
	Query(ctx context.Context, embedding []float32, k int) ([]RetrievalResult, error)
}
