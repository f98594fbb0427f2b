package domain

import "context"

// ChunkOracle splits a document into overlapping annotated chunks using a
// generative model. Implementations own their retry policy; a returned
// error means the document could not be chunked and is a hard failure for
// that document only.
type ChunkOracle interface {
	// GenerateChunks produces chunks whose original texts cover the full
	// document, with roughly 25% overlap between neighbors.
	// averageChunkSize is a target in characters, not a hard constraint.
	GenerateChunks(ctx context.Context, doc Document, averageChunkSize int) ([]Chunk, error)
}

// QueryRewriter transforms a raw user question into a short, keyword-dense,
// retrieval-oriented query. Errors propagate: retrieval cannot proceed
// meaningfully without some query, so this capability never degrades
// silently.
type QueryRewriter interface {
	Rewrite(ctx context.Context, question string, history []ChatTurn) (string, error)
}

// RankOracle orders candidate passages by relevance to a query. The
// returned positions are 1-based indices into the candidate slice as given.
// The raw sequence is NOT guaranteed to be a valid permutation; callers
// must validate and fall back to the identity order.
type RankOracle interface {
	Rank(ctx context.Context, query string, candidates []string) (RankOrder, error)
}
