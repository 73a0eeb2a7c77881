package vectorstore

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Index is an append-only, in-memory vector store for a single document.
// Search is a linear scan using cosine similarity.
type Index struct {
	mu        sync.RWMutex
	dimension int
	chunks    []schema.Chunk
	vectors   [][]float32
}

// NewIndex creates an empty index. The dimension is fixed by the first insert.
func NewIndex() *Index {
	return &Index{}
}

// Insert appends a (chunk, vector) pair. The vector is copied.
func (x *Index) Insert(chunk schema.Chunk, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("chunk %d: empty embedding vector", chunk.Index)
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension == 0 {
		x.dimension = len(vector)
	} else if len(vector) != x.dimension {
		return fmt.Errorf("chunk %d: vector dimension %d does not match index dimension %d",
			chunk.Index, len(vector), x.dimension)
	}

	v := make([]float32, len(vector))
	copy(v, vector)
	x.chunks = append(x.chunks, chunk)
	x.vectors = append(x.vectors, v)
	return nil
}

// Search returns up to k chunks ordered by descending cosine similarity to query.
// Ties keep insertion order. k is clamped to the index size; k <= 0 returns nothing.
func (x *Index) Search(query []float32, k int) []schema.ScoredChunk {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if k <= 0 || len(x.chunks) == 0 {
		return nil
	}
	if k > len(x.chunks) {
		k = len(x.chunks)
	}

	results := make([]schema.ScoredChunk, len(x.chunks))
	for i := range x.chunks {
		results[i] = schema.ScoredChunk{
			Chunk: x.chunks[i],
			Score: CosineSimilarity(query, x.vectors[i]),
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	return results[:k]
}

// Chunks returns the indexed chunks in insertion order.
func (x *Index) Chunks() []schema.Chunk {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]schema.Chunk, len(x.chunks))
	copy(out, x.chunks)
	return out
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.chunks)
}

// Dimension returns the vector dimension, or 0 for an empty index.
func (x *Index) Dimension() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimension
}

// CosineSimilarity computes dot(a,b)/(|a||b|). Mismatched lengths and zero-magnitude
// vectors yield 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// compile-time check to ensure Index implements the VectorStore interface
var _ interfaces.VectorStore = (*Index)(nil)
