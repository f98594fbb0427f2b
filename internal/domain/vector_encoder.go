package domain

import "context"

// VectorEncoder turns text into fixed-length embedding vectors. Encoding
// must be deterministic for identical input, and the same encoder (same
// Version) must be used at index-build time and query time: a mismatch
// invalidates all distance comparisons.
type VectorEncoder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
	Version() string
}
