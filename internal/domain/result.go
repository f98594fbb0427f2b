package domain

// Metadata keys copied verbatim from the parent Document into every
// indexed passage.
const (
	MetadataSource = "source"
	MetadataType   = "type"
)

// RetrievalResult is a read-only projection of an indexed passage returned
// by a vector query. It never carries the embedding vector.
type RetrievalResult struct {
	PageContent string            `json:"page_content"`
	Metadata    map[string]string `json:"metadata"`
}

// IndexedPassage is a passage as stored in the embedding index. The ID is a
// dense integer-string assigned at build time, unique within one generation.
type IndexedPassage struct {
	ID          string
	Ordinal     int
	PageContent string
	Metadata    map[string]string
	Embedding   []float32
}

// AsResult projects the passage into the query-time representation.
func (p IndexedPassage) AsResult() RetrievalResult {
	return RetrievalResult{
		PageContent: p.PageContent,
		Metadata:    p.Metadata,
	}
}
