package embeddings

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"context"
	"fmt"

	"DocQA/backend/go/internal/embedding"
)

// Adapter adapts a provider from the embedding package to the generic EmbeddingModel interface.
type Adapter struct {
	client embedding.Embedding
}

// NewAdapter creates a new adapter for client.
func NewAdapter(client embedding.Embedding) *Adapter {
	return &Adapter{client: client}
}

// Embed calls the provider's EmbedBatch and checks that every text got a non-empty vector.
func (a *Adapter) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := a.client.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("embedding provider returned an empty vector for text %d", i)
		}
	}
	return vectors, nil
}

// compile-time check to ensure Adapter implements the EmbeddingModel interface
var _ interfaces.EmbeddingModel = (*Adapter)(nil)
