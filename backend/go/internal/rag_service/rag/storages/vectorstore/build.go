package vectorstore

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize   = 64
	DefaultConcurrency = 4
)

// BuildOptions controls how chunks are embedded.
type BuildOptions struct {
	BatchSize   int
	Concurrency int
}

// Build embeds every chunk and returns a fully populated index. It is all or nothing:
// on any failure no index is returned.
func Build(ctx context.Context, chunks []schema.Chunk, embedder interfaces.EmbeddingModel, opts BuildOptions) (*Index, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}

	vectors := make([][]float32, len(chunks))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Concurrency)
	for start := 0; start < len(chunks); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(chunks))

		eg.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].Text
			}
			out, err := embedder.Embed(gCtx, texts)
			if err != nil {
				return err
			}
			if len(out) != len(texts) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(out), len(texts))
			}
			copy(vectors[start:end], out)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, ragerr.Wrap(ragerr.EmbeddingFailure, err, "the embedding service failed while indexing the document")
	}

	idx := NewIndex()
	for i, c := range chunks {
		if err := idx.Insert(c, vectors[i]); err != nil {
			return nil, ragerr.Wrap(ragerr.EmbeddingFailure, err, "the embedding service returned inconsistent vectors")
		}
	}
	return idx, nil
}
