package domain

// Document is a raw knowledge-base source as loaded at ingestion time.
// It is immutable once ingested; one Document produces 1..N chunks.
type Document struct {
	// Type is the knowledge-base category the document belongs to
	// (the name of its folder in the source tree).
	Type string
	// Source identifies where the document was read from (file path, URL).
	Source string
	// Text is the full document content.
	Text string
}

// Chunk is a bounded excerpt of a Document, annotated by the chunk oracle
// with a headline and summary so that short queries can still surface it.
type Chunk struct {
	Headline     string
	Summary      string
	OriginalText string
}

// PassageText returns the composite text that gets embedded and retrieved:
// headline, summary and original text joined by blank lines.
func (c Chunk) PassageText() string {
	return c.Headline + "\n\n" + c.Summary + "\n\n" + c.OriginalText
}

// ChatTurn is a single turn of conversation history passed to the oracles.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChunkCountHint returns the number of chunks the oracle should aim for
// given a target average chunk size in characters. It is a hint, not a
// hard constraint.
func ChunkCountHint(text string, averageChunkSize int) int {
	if averageChunkSize <= 0 {
		return 1
	}
	return len(text)/averageChunkSize + 1
}
