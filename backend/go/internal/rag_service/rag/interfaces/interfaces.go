package interfaces

import (
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
)

// Loader extracts the ordered, non-empty text segments of a single file.
type Loader interface {
	Load(ctx context.Context, path string) ([]string, error)
}

// Splitter cuts extracted segments into overlapping chunks.
type Splitter interface {
	Split(segments []string) []schema.Chunk
}

// VectorStore answers nearest-neighbour queries over one document's chunks.
type VectorStore interface {
	Search(query []float32, k int) []schema.ScoredChunk
	Chunks() []schema.Chunk
	Len() int
}

// EmbeddingModel is the interface for a text embedding model.
// It must return exactly one vector per input text, in order.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM is the interface for a large language model that can generate text.
type LLM interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}
