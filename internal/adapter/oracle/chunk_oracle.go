package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"knowledge-orchestrator/internal/domain"

	"github.com/cenkalti/backoff/v5"
)

// RetryPolicy bounds the exponential backoff applied to oracle calls.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     uint
}

// DefaultRetryPolicy mirrors the production backoff window for the
// rate-limited chunking oracle.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 10 * time.Second,
		MaxInterval:     240 * time.Second,
		MaxAttempts:     6,
	}
}

// chunkSchema constrains the oracle reply to the expected chunk list.
var chunkSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"chunks": map[string]interface{}{
			"type": "array",
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"headline": map[string]interface{}{
						"type":        "string",
						"description": "A brief heading for this chunk, typically a few words, that is most likely to be surfaced in a query",
					},
					"summary": map[string]interface{}{
						"type":        "string",
						"description": "A few sentences summarizing the content of this chunk to answer common questions",
					},
					"original_text": map[string]interface{}{
						"type":        "string",
						"description": "The original text of this chunk from the provided document, exactly as is, not changed in any way",
					},
				},
				"required": []string{"headline", "summary", "original_text"},
			},
		},
	},
	"required": []string{"chunks"},
}

type chunkPayload struct {
	Headline     string `json:"headline"`
	Summary      string `json:"summary"`
	OriginalText string `json:"original_text"`
}

type chunksPayload struct {
	Chunks []chunkPayload `json:"chunks"`
}

// ChunkOracle asks the completion oracle to split a document into
// overlapping annotated chunks. Malformed replies and transport errors are
// retried with exponential backoff; a document that exhausts retries is a
// hard ingestion failure for that document only.
type ChunkOracle struct {
	chat   *ChatClient
	model  string
	retry  RetryPolicy
	logger *slog.Logger
}

// NewChunkOracle constructs a chunk oracle using the given model.
func NewChunkOracle(chat *ChatClient, model string, retry RetryPolicy, logger *slog.Logger) *ChunkOracle {
	if retry.InitialInterval <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &ChunkOracle{chat: chat, model: model, retry: retry, logger: logger}
}

// GenerateChunks implements domain.ChunkOracle.
func (o *ChunkOracle) GenerateChunks(ctx context.Context, doc domain.Document, averageChunkSize int) ([]domain.Chunk, error) {
	prompt := o.buildPrompt(doc, averageChunkSize)
	messages := []Message{{Role: "user", Content: prompt}}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = o.retry.InitialInterval
	expo.MaxInterval = o.retry.MaxInterval

	attempt := 0
	chunks, err := backoff.Retry(ctx, func() ([]domain.Chunk, error) {
		attempt++
		reply, err := o.chat.Complete(ctx, o.model, messages, CompletionOptions{
			Temperature: 0,
			JSONSchema:  chunkSchema,
			SchemaName:  "chunks",
		})
		if err != nil {
			o.logger.Warn("chunk_oracle_call_failed",
				slog.String("source", doc.Source),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return nil, err
		}
		parsed, err := parseChunks(reply)
		if err != nil {
			o.logger.Warn("chunk_oracle_parse_failed",
				slog.String("source", doc.Source),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return nil, err
		}
		return parsed, nil
	}, backoff.WithBackOff(expo), backoff.WithMaxTries(o.retry.MaxAttempts))
	if err != nil {
		return nil, fmt.Errorf("chunking failed for %s after %d attempts: %w", doc.Source, attempt, err)
	}

	warnOnLowCoverage(doc, chunks, o.logger)

	o.logger.Info("document_chunked",
		slog.String("source", doc.Source),
		slog.Int("chunk_count", len(chunks)),
		slog.Int("target_count", domain.ChunkCountHint(doc.Text, averageChunkSize)))

	return chunks, nil
}

func (o *ChunkOracle) buildPrompt(doc domain.Document, averageChunkSize int) string {
	howMany := domain.ChunkCountHint(doc.Text, averageChunkSize)
	schemaJSON, _ := json.MarshalIndent(chunkSchema, "", "  ")

	return fmt.Sprintf(`You take a document and you split it into overlapping chunks for a KnowledgeBase.

The document is of type: %s
The document has been retrieved from: %s

A chatbot will use these chunks to answer questions about the knowledge base.
You should divide up the document as you see fit, being sure that the entire document is returned in the chunks.
This document should probably be split into %d chunks, but you can have more or less as appropriate.
There should be overlap between the chunks as appropriate; typically about 25%% overlap or about 50 words.

For each chunk, provide a headline, summary, and the original text of the chunk.

IMPORTANT: Respond ONLY with valid JSON. Do not include any markdown formatting, code blocks, or explanatory text.

Use this exact JSON schema:
%s

Here is the document:

%s`, doc.Type, doc.Source, howMany, schemaJSON, doc.Text)
}

// parseChunks decodes the oracle reply into chunks, tolerating a fenced
// code block around the JSON.
func parseChunks(reply string) ([]domain.Chunk, error) {
	cleaned := stripCodeFence(reply)

	var payload chunksPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("reply is not valid chunk JSON: %w", err)
	}
	if len(payload.Chunks) == 0 {
		return nil, fmt.Errorf("reply contains no chunks")
	}

	chunks := make([]domain.Chunk, 0, len(payload.Chunks))
	for i, c := range payload.Chunks {
		if c.OriginalText == "" {
			return nil, fmt.Errorf("chunk %d has empty original_text", i)
		}
		chunks = append(chunks, domain.Chunk{
			Headline:     c.Headline,
			Summary:      c.Summary,
			OriginalText: c.OriginalText,
		})
	}
	return chunks, nil
}

func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// warnOnLowCoverage flags replies whose original texts clearly do not span
// the source document. Overlap makes the combined length exceed the source
// for honest replies, so a large shortfall means dropped content.
func warnOnLowCoverage(doc domain.Document, chunks []domain.Chunk, logger *slog.Logger) {
	total := 0
	for _, c := range chunks {
		total += len(c.OriginalText)
	}
	if len(doc.Text) > 0 && total < len(doc.Text)*9/10 {
		logger.Warn("chunk_coverage_low",
			slog.String("source", doc.Source),
			slog.Int("document_chars", len(doc.Text)),
			slog.Int("chunk_chars", total))
	}
}

var _ domain.ChunkOracle = (*ChunkOracle)(nil)
