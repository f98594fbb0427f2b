package retrieval

import "knowledge-orchestrator/internal/domain"

// MergeResults fuses two ranked candidate lists into one. The primary
// list's order is preserved exactly; secondary items whose page content is
// not already present are appended in their original relative order.
//
// Deduplication is by exact page content, not by identity: two passages
// with byte-identical composite text but different metadata are conflated.
// This mirrors the ingestion-side guarantee that identical text carries
// identical provenance in practice, and is a known limitation.
func MergeResults(primary, secondary []domain.RetrievalResult) []domain.RetrievalResult {
	merged := make([]domain.RetrievalResult, 0, len(primary)+len(secondary))
	seen := make(map[string]bool, len(primary)+len(secondary))

	for _, res := range primary {
		merged = append(merged, res)
		seen[res.PageContent] = true
	}
	for _, res := range secondary {
		if seen[res.PageContent] {
			continue
		}
		merged = append(merged, res)
		seen[res.PageContent] = true
	}
	return merged
}
