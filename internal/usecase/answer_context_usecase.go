package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"knowledge-orchestrator/internal/domain"
	"knowledge-orchestrator/internal/usecase/retrieval"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

// Outcome is the terminal state of the fallback cascade, communicated to
// the caller as data. An empty result is not an error.
type Outcome string

const (
	OutcomeHaveCandidates Outcome = "have_candidates"
	OutcomeEmptyResult    Outcome = "empty_result"
)

// AnswerContextInput defines the input parameters for AnswerContext.
type AnswerContextInput struct {
	Question string
	History  []domain.ChatTurn
}

// AnswerContextOutput carries the ranked passages for the external
// generation step. Contexts is non-empty exactly when Outcome is
// OutcomeHaveCandidates.
type AnswerContextOutput struct {
	Contexts    []domain.RetrievalResult
	Outcome     Outcome
	RetrievalID string
}

// RetrievalParams holds query-time tuning knobs.
type RetrievalParams struct {
	// RetrievalK is the per-query retrieval width.
	RetrievalK int
	// FinalK is the final answer width, clamped to at most RetrievalK.
	FinalK int
	// Rerank configures the rank-oracle stage.
	Rerank retrieval.RerankConfig
}

// AnswerContextUsecase retrieves, fuses and ranks knowledge-base passages
// relevant to a question.
type AnswerContextUsecase interface {
	Execute(ctx context.Context, input AnswerContextInput) (*AnswerContextOutput, error)
}

type answerContextUsecase struct {
	rewriter   domain.QueryRewriter
	encoder    domain.VectorEncoder
	store      domain.PassageStore
	rankOracle domain.RankOracle
	params     RetrievalParams
	cache      *expirable.LRU[string, []domain.RetrievalResult]
	logger     *slog.Logger
}

// AnswerContextOption configures optional usecase components.
type AnswerContextOption func(*answerContextUsecase)

// WithContextCache enables an LRU cache of ranked contexts keyed by the
// question. Only history-free questions are cached: history changes which
// rewrite (and therefore which passages) the question resolves to.
func WithContextCache(size int, ttl time.Duration) AnswerContextOption {
	return func(u *answerContextUsecase) {
		if size > 0 {
			u.cache = expirable.NewLRU[string, []domain.RetrievalResult](size, nil, ttl)
		}
	}
}

// NewAnswerContextUsecase creates a new AnswerContextUsecase.
func NewAnswerContextUsecase(
	rewriter domain.QueryRewriter,
	encoder domain.VectorEncoder,
	store domain.PassageStore,
	rankOracle domain.RankOracle,
	params RetrievalParams,
	logger *slog.Logger,
	opts ...AnswerContextOption,
) AnswerContextUsecase {
	if params.RetrievalK <= 0 {
		params.RetrievalK = 20
	}
	if params.FinalK <= 0 || params.FinalK > params.RetrievalK {
		params.FinalK = params.RetrievalK
	}
	u := &answerContextUsecase{
		rewriter:   rewriter,
		encoder:    encoder,
		store:      store,
		rankOracle: rankOracle,
		params:     params,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Execute runs the fallback cascade:
//
//	ATTEMPT_DUAL_QUERY -> ATTEMPT_ORIGINAL_ONLY -> EMPTY_RESULT
//
// with HAVE_CANDIDATES reachable from either attempt state. A rewrite
// failure is fatal to the request; store and rank failures degrade.
func (u *answerContextUsecase) Execute(ctx context.Context, input AnswerContextInput) (*AnswerContextOutput, error) {
	if input.Question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	retrievalID := uuid.New().String()

	if u.cache != nil && len(input.History) == 0 {
		if contexts, ok := u.cache.Get(input.Question); ok {
			u.logger.Info("context_cache_hit",
				slog.String("retrieval_id", retrievalID),
				slog.Int("context_count", len(contexts)))
			return &AnswerContextOutput{
				Contexts:    contexts,
				Outcome:     OutcomeHaveCandidates,
				RetrievalID: retrievalID,
			}, nil
		}
	}

	// The rewritten query occasionally drifts from user intent, so the
	// literal question always participates as the primary pool and remains
	// the deterministic safety net for the second attempt.
	rewritten, err := u.rewriter.Rewrite(ctx, input.Question, input.History)
	if err != nil {
		return nil, fmt.Errorf("failed to rewrite query: %w", err)
	}
	if rewritten == "" {
		return nil, fmt.Errorf("rewriter returned an empty query")
	}

	u.logger.Info("query_rewritten",
		slog.String("retrieval_id", retrievalID),
		slog.String("original", input.Question),
		slog.String("rewritten", rewritten))

	state := retrieval.StateAttemptDualQuery
	var candidates []domain.RetrievalResult

	for {
		switch state {
		case retrieval.StateAttemptDualQuery:
			primary, secondary := u.fetchDual(ctx, input.Question, rewritten, retrievalID)
			candidates = retrieval.MergeResults(primary, secondary)
			if len(candidates) > 0 {
				state = retrieval.StateHaveCandidates
			} else {
				u.logger.Warn("dual_query_empty_falling_back",
					slog.String("retrieval_id", retrievalID))
				state = retrieval.StateAttemptOriginalOnly
			}

		case retrieval.StateAttemptOriginalOnly:
			candidates = u.fetch(ctx, input.Question, retrievalID)
			if len(candidates) > 0 {
				state = retrieval.StateHaveCandidates
			} else {
				state = retrieval.StateEmptyResult
			}

		case retrieval.StateHaveCandidates:
			ranked := retrieval.Rerank(ctx, u.rankOracle, input.Question, candidates,
				u.params.Rerank, retrievalID, u.logger)
			if len(ranked) > u.params.FinalK {
				ranked = ranked[:u.params.FinalK]
			}
			if u.cache != nil && len(input.History) == 0 {
				u.cache.Add(input.Question, ranked)
			}
			u.logger.Info("context_retrieved",
				slog.String("retrieval_id", retrievalID),
				slog.Int("candidate_count", len(candidates)),
				slog.Int("final_count", len(ranked)))
			return &AnswerContextOutput{
				Contexts:    ranked,
				Outcome:     OutcomeHaveCandidates,
				RetrievalID: retrievalID,
			}, nil

		case retrieval.StateEmptyResult:
			u.logger.Info("no_relevant_context",
				slog.String("retrieval_id", retrievalID))
			return &AnswerContextOutput{
				Contexts:    []domain.RetrievalResult{},
				Outcome:     OutcomeEmptyResult,
				RetrievalID: retrievalID,
			}, nil
		}
	}
}

// fetchDual issues the two lookups concurrently and joins before merging.
// Each pool degrades to empty on failure; empty retrieval is handled by the
// cascade, not treated as an error.
func (u *answerContextUsecase) fetchDual(ctx context.Context, question, rewritten, retrievalID string) ([]domain.RetrievalResult, []domain.RetrievalResult) {
	var primary, secondary []domain.RetrievalResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		primary = u.fetch(gctx, question, retrievalID)
		return nil
	})
	g.Go(func() error {
		secondary = u.fetch(gctx, rewritten, retrievalID)
		return nil
	})
	_ = g.Wait()

	return primary, secondary
}

func (u *answerContextUsecase) fetch(ctx context.Context, query, retrievalID string) []domain.RetrievalResult {
	results, err := retrieval.FetchCandidates(ctx, u.encoder, u.store, query,
		u.params.RetrievalK, retrievalID, u.logger)
	if err != nil {
		u.logger.Warn("fetch_failed_degrading_to_empty",
			slog.String("retrieval_id", retrievalID),
			slog.String("error", err.Error()))
		return nil
	}
	return results
}
