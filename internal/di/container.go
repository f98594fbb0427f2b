package di

import (
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"knowledge-orchestrator/internal/adapter/embedder"
	"knowledge-orchestrator/internal/adapter/oracle"
	"knowledge-orchestrator/internal/adapter/repository"
	"knowledge-orchestrator/internal/domain"
	"knowledge-orchestrator/internal/infra/config"
	"knowledge-orchestrator/internal/infra/httpclient"
	"knowledge-orchestrator/internal/usecase"
	"knowledge-orchestrator/internal/usecase/retrieval"
	"knowledge-orchestrator/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Store
	PassageStore domain.PassageStore

	// Usecases
	AnswerUsecase usecase.AnswerContextUsecase
	IngestUsecase usecase.IngestDocumentsUsecase

	// Adapters exposed for CLI wiring
	Encoder domain.VectorEncoder
}

// NewApplicationComponents wires all dependencies from config and database pool.
func NewApplicationComponents(cfg *config.Config, pool *pgxpool.Pool, log *slog.Logger) *ApplicationComponents {
	// Store
	passageStore := repository.NewPassageRepository(pool, cfg.Retrieval.Collection)

	// Shared HTTP clients with connection pooling
	oracleHTTP := httpclient.NewPooledClient(time.Duration(cfg.Oracle.Timeout) * time.Second)
	embedderHTTP := httpclient.NewPooledClient(time.Duration(cfg.Embedder.Timeout) * time.Second)

	// Oracle clients
	chat := oracle.NewChatClient(
		cfg.Oracle.URL,
		cfg.Oracle.APIKey,
		cfg.Oracle.RequestsPerSecond,
		time.Duration(cfg.Oracle.Timeout)*time.Second,
		log,
		oracleHTTP,
	)
	chunkOracle := oracle.NewChunkOracle(chat, cfg.Oracle.ChunkModel, oracle.DefaultRetryPolicy(), log)
	rewriter := oracle.NewQueryRewriter(chat, cfg.Oracle.RewriteModel, log)
	rankOracle := oracle.NewRankOracle(chat, cfg.Oracle.RankModel, log)

	// Embedder
	encoder := embedder.NewHTTPEmbedder(
		cfg.Embedder.URL,
		cfg.Embedder.Model,
		time.Duration(cfg.Embedder.Timeout)*time.Second,
		log,
		embedderHTTP,
	)

	// Ingest usecase
	workerPool := worker.NewPool(cfg.Ingest.Workers, log)
	ingestUsecase := usecase.NewIngestDocumentsUsecase(
		chunkOracle, encoder, passageStore, workerPool, cfg.Ingest.AverageChunkSize, log,
	)

	// Answer usecase
	params := usecase.RetrievalParams{
		RetrievalK: cfg.Retrieval.RetrievalK,
		FinalK:     cfg.Retrieval.FinalK,
		Rerank: retrieval.RerankConfig{
			Timeout: time.Duration(cfg.Retrieval.RerankTimeout) * time.Second,
		},
	}
	var opts []usecase.AnswerContextOption
	if cfg.Cache.Size > 0 {
		opts = append(opts, usecase.WithContextCache(cfg.Cache.Size, time.Duration(cfg.Cache.TTL)*time.Minute))
		log.Info("context_cache_enabled",
			slog.Int("size", cfg.Cache.Size),
			slog.Int("ttl_minutes", cfg.Cache.TTL))
	}
	answerUsecase := usecase.NewAnswerContextUsecase(
		rewriter, encoder, passageStore, rankOracle, params, log, opts...,
	)

	return &ApplicationComponents{
		PassageStore:  passageStore,
		AnswerUsecase: answerUsecase,
		IngestUsecase: ingestUsecase,
		Encoder:       encoder,
	}
}
