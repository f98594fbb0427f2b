package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"knowledge-orchestrator/internal/domain"
)

// FetchCandidates encodes the query and performs a single top-K lookup
// against the live index generation. The retrieval width k is fixed and
// independent of the final answer width.
func FetchCandidates(
	ctx context.Context,
	encoder domain.VectorEncoder,
	store domain.PassageStore,
	query string,
	k int,
	retrievalID string,
	logger *slog.Logger,
) ([]domain.RetrievalResult, error) {
	start := time.Now()

	embeddings, err := encoder.Encode(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}

	results, err := store.Query(ctx, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("failed to query passages: %w", err)
	}

	logger.Info("candidates_fetched",
		slog.String("retrieval_id", retrievalID),
		slog.Int("k", k),
		slog.Int("hit_count", len(results)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return results, nil
}
