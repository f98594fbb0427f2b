package repository

import (
	"context"
	"fmt"
	"time"

	"knowledge-orchestrator/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// passageRepository is the pgvector-backed PassageStore. Index rebuilds are
// double buffered: a build populates a fresh generation while readers keep
// hitting the head recorded in collection_heads, then Promote swaps the
// head and drops stale generations in one transaction.
type passageRepository struct {
	pool       *pgxpool.Pool
	collection string
}

// NewPassageRepository creates a PassageStore over the given pool for one
// named collection.
func NewPassageRepository(pool *pgxpool.Pool, collection string) domain.PassageStore {
	return &passageRepository{pool: pool, collection: collection}
}

func (r *passageRepository) CreateGeneration(ctx context.Context, embedderVersion string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO passage_generations (id, collection, embedder_version, created_at)
		VALUES ($1, $2, $3, $4)`,
		id, r.collection, embedderVersion, time.Now())
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create generation: %w", err)
	}
	return id, nil
}

func (r *passageRepository) AddPassages(ctx context.Context, generationID uuid.UUID, passages []domain.IndexedPassage) error {
	if len(passages) == 0 {
		return nil
	}

	rows := make([][]interface{}, len(passages))
	for i, p := range passages {
		rows[i] = []interface{}{
			generationID,
			p.ID,
			p.Ordinal,
			p.PageContent,
			p.Metadata[domain.MetadataSource],
			p.Metadata[domain.MetadataType],
			pgvector.NewVector(p.Embedding),
		}
	}

	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"passages"},
		[]string{"generation_id", "id", "ordinal", "content", "source", "doc_type", "embedding"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert passages: %w", err)
	}
	return nil
}

func (r *passageRepository) Promote(ctx context.Context, generationID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin promote tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now()

	tag, err := tx.Exec(ctx, `
		UPDATE passage_generations SET promoted_at = $1
		WHERE id = $2 AND collection = $3`,
		now, generationID, r.collection)
	if err != nil {
		return fmt.Errorf("failed to mark generation promoted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("generation %s not found in collection %s", generationID, r.collection)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO collection_heads (collection, generation_id, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection)
		DO UPDATE SET generation_id = EXCLUDED.generation_id, updated_at = EXCLUDED.updated_at`,
		r.collection, generationID, now)
	if err != nil {
		return fmt.Errorf("failed to swap collection head: %w", err)
	}

	// Stale generations go only after the head points at the new one;
	// passages cascade with their generation.
	_, err = tx.Exec(ctx, `
		DELETE FROM passage_generations
		WHERE collection = $1 AND id <> $2`,
		r.collection, generationID)
	if err != nil {
		return fmt.Errorf("failed to drop stale generations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit promote tx: %w", err)
	}
	return nil
}

func (r *passageRepository) Query(ctx context.Context, embedding []float32, k int) ([]domain.RetrievalResult, error) {
	if k <= 0 {
		return nil, domain.ErrInvalidTopK
	}

	// Nearest first by cosine distance; equal distances resolve by
	// insertion order within the generation.
	rows, err := r.pool.Query(ctx, `
		SELECT p.content, p.source, p.doc_type
		FROM passages p
		JOIN collection_heads h ON h.generation_id = p.generation_id
		WHERE h.collection = $1
		ORDER BY p.embedding <=> $2, p.ordinal ASC
		LIMIT $3`,
		r.collection, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query passages: %w", err)
	}
	defer rows.Close()

	results := make([]domain.RetrievalResult, 0, k)
	for rows.Next() {
		var content, source, docType string
		if err := rows.Scan(&content, &source, &docType); err != nil {
			return nil, fmt.Errorf("failed to scan passage row: %w", err)
		}
		results = append(results, domain.RetrievalResult{
			PageContent: content,
			Metadata: map[string]string{
				domain.MetadataSource: source,
				domain.MetadataType:   docType,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read passage rows: %w", err)
	}
	return results, nil
}

var _ domain.PassageStore = (*passageRepository)(nil)
