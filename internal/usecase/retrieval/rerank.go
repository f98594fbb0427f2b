package retrieval

import (
	"context"
	"log/slog"
	"time"

	"knowledge-orchestrator/internal/domain"
)

// RerankConfig holds reranking stage parameters.
type RerankConfig struct {
	Timeout time.Duration
}

// Rerank orders candidates by relevance using the list-wise rank oracle.
// Reranking is a relevance optimization, never a correctness requirement:
// an oracle error, a short reply, or anything that is not a valid
// permutation of [1..N] degrades to the identity order (the original
// retrieval order) rather than failing the request.
func Rerank(
	ctx context.Context,
	oracle domain.RankOracle,
	query string,
	candidates []domain.RetrievalResult,
	cfg RerankConfig,
	retrievalID string,
	logger *slog.Logger,
) []domain.RetrievalResult {
	if len(candidates) <= 1 {
		return candidates
	}

	contents := make([]string, len(candidates))
	for i, c := range candidates {
		contents[i] = c.PageContent
	}

	rerankStart := time.Now()
	rerankCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		rerankCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	order, err := oracle.Rank(rerankCtx, query, contents)
	if err != nil {
		logger.Warn("reranking_failed_using_original_order",
			slog.String("retrieval_id", retrievalID),
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(rerankStart).Milliseconds()))
		return candidates
	}

	if !order.IsPermutationOf(len(candidates)) {
		logger.Warn("rank_order_invalid_using_original_order",
			slog.String("retrieval_id", retrievalID),
			slog.Int("candidate_count", len(candidates)),
			slog.Int("recovered_positions", len(order)))
		return candidates
	}

	logger.Info("reranking_completed",
		slog.String("retrieval_id", retrievalID),
		slog.Int("candidate_count", len(candidates)),
		slog.Int64("duration_ms", time.Since(rerankStart).Milliseconds()))

	return order.Apply(candidates)
}
