package coach

import (
	"context"
	"strings"
)

// Chunk is one retrieved snippet of coaching guidance.
type Chunk struct {
	Title string
	Text  string
	Score float64
}

// Retriever supplies optional grounding snippets for a coaching reply. The
// responder must produce a full reply with zero chunks; retrieval only
// enriches the prompt.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]Chunk, error)
}

// NoopRetriever returns no chunks. It is the default when no knowledge base
// is configured.
type NoopRetriever struct{}

func (NoopRetriever) Retrieve(context.Context, string, int) ([]Chunk, error) {
	return nil, nil
}

// renderChunks formats retrieved snippets as a system prompt block. Returns
// the empty string when there is nothing to add.
func renderChunks(chunks []Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("Relevant guidance you may draw on:\n")
		}
		b.WriteString("- ")
		if title := strings.TrimSpace(c.Title); title != "" {
			b.WriteString(title)
			b.WriteString(": ")
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String()
}
