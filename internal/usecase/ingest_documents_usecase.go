package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"knowledge-orchestrator/internal/domain"
	"knowledge-orchestrator/internal/worker"

	"github.com/google/uuid"
)

// DocumentFailure records one document that could not be ingested.
type DocumentFailure struct {
	Source string
	Reason string
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Documents    int
	Chunks       int
	Indexed      int
	Failures     []DocumentFailure
	GenerationID uuid.UUID
}

// IngestDocumentsUsecase rebuilds the embedding index from a document
// batch: oracle chunking across a fixed worker pool, batch embedding, then
// a generation build promoted with an atomic head swap.
type IngestDocumentsUsecase interface {
	Ingest(ctx context.Context, docs []domain.Document) (*IngestReport, error)
}

type ingestDocumentsUsecase struct {
	oracle           domain.ChunkOracle
	encoder          domain.VectorEncoder
	store            domain.PassageStore
	pool             *worker.Pool
	averageChunkSize int
	logger           *slog.Logger
}

// NewIngestDocumentsUsecase creates a new IngestDocumentsUsecase.
func NewIngestDocumentsUsecase(
	oracle domain.ChunkOracle,
	encoder domain.VectorEncoder,
	store domain.PassageStore,
	pool *worker.Pool,
	averageChunkSize int,
	logger *slog.Logger,
) IngestDocumentsUsecase {
	if averageChunkSize <= 0 {
		averageChunkSize = 600
	}
	return &ingestDocumentsUsecase{
		oracle:           oracle,
		encoder:          encoder,
		store:            store,
		pool:             pool,
		averageChunkSize: averageChunkSize,
		logger:           logger,
	}
}

// Ingest chunks every document independently (per-document isolation: one
// bad document never aborts the batch), waits for the whole pool to finish,
// then builds and promotes a fresh index generation. If no document
// produced chunks the previous generation stays live and an error is
// returned.
func (u *ingestDocumentsUsecase) Ingest(ctx context.Context, docs []domain.Document) (*IngestReport, error) {
	report := &IngestReport{Documents: len(docs)}
	if len(docs) == 0 {
		return report, fmt.Errorf("no documents to ingest")
	}

	start := time.Now()
	u.logger.Info("ingestion_started",
		slog.Int("document_count", len(docs)),
		slog.Int("workers", u.pool.Size()),
		slog.Int("average_chunk_size", u.averageChunkSize))

	// Chunk across the pool. Each worker owns one document end-to-end and
	// writes only its own slot; results are merged after the barrier.
	chunksByDoc := make([][]domain.Chunk, len(docs))
	errs := u.pool.Run(ctx, len(docs), func(ctx context.Context, i int) error {
		chunks, err := u.oracle.GenerateChunks(ctx, docs[i], u.averageChunkSize)
		if err != nil {
			return err
		}
		chunksByDoc[i] = chunks
		return nil
	})

	var passages []domain.IndexedPassage
	for i, doc := range docs {
		if errs[i] != nil {
			u.logger.Error("document_chunking_failed",
				slog.String("source", doc.Source),
				slog.String("error", errs[i].Error()))
			report.Failures = append(report.Failures, DocumentFailure{
				Source: doc.Source,
				Reason: errs[i].Error(),
			})
			continue
		}
		for _, chunk := range chunksByDoc[i] {
			ordinal := len(passages)
			passages = append(passages, domain.IndexedPassage{
				ID:          strconv.Itoa(ordinal),
				Ordinal:     ordinal,
				PageContent: chunk.PassageText(),
				Metadata: map[string]string{
					domain.MetadataSource: doc.Source,
					domain.MetadataType:   doc.Type,
				},
			})
		}
	}
	report.Chunks = len(passages)

	if len(passages) == 0 {
		return report, fmt.Errorf("no chunks produced from %d documents; keeping previous generation live", len(docs))
	}

	// Single-threaded bulk embed and insert; the live generation is only
	// replaced once the new one is fully populated.
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.PageContent
	}
	embeddings, err := u.encoder.Encode(ctx, texts)
	if err != nil {
		return report, fmt.Errorf("failed to encode chunks: %w", err)
	}
	if len(embeddings) != len(passages) {
		return report, fmt.Errorf("expected %d embeddings, got %d", len(passages), len(embeddings))
	}
	for i := range passages {
		passages[i].Embedding = embeddings[i]
	}

	generationID, err := u.store.CreateGeneration(ctx, u.encoder.Version())
	if err != nil {
		return report, fmt.Errorf("failed to create generation: %w", err)
	}
	if err := u.store.AddPassages(ctx, generationID, passages); err != nil {
		return report, fmt.Errorf("failed to add passages: %w", err)
	}
	if err := u.store.Promote(ctx, generationID); err != nil {
		return report, fmt.Errorf("failed to promote generation: %w", err)
	}

	report.Indexed = len(passages)
	report.GenerationID = generationID

	u.logger.Info("ingestion_completed",
		slog.String("generation_id", generationID.String()),
		slog.Int("document_count", len(docs)),
		slog.Int("failed_documents", len(report.Failures)),
		slog.Int("passage_count", len(passages)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return report, nil
}
