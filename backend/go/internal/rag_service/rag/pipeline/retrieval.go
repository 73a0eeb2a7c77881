package pipeline

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/query"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"context"
	"fmt"
	"strings"

	"DocQA/backend/go/pkg/logger"
)

// Retrieval strategies.
const (
	StrategySimilarity      = "similarity"
	StrategyFullContext     = "full-context"
	StrategyAugmented       = "augmented"
	StrategyOrderedFallback = "ordered-fallback"
)

// contextSeparator joins chunk texts into the prompt context.
const contextSeparator = "\n\n"

// RetrievalOptions tunes the breadth strategy.
type RetrievalOptions struct {
	// FullContextMaxChunks is the largest document returned whole for a breadth request.
	FullContextMaxChunks int
	// AugmentTerms are appended to the query, one search per term.
	AugmentTerms []string
	// AugmentBatch is the result size of each augmented search.
	AugmentBatch int
	// MinUniqueBroad is the fewest merged chunks accepted before falling back to document order.
	MinUniqueBroad int
}

// DefaultRetrievalOptions returns the stock breadth settings.
func DefaultRetrievalOptions() RetrievalOptions {
	return RetrievalOptions{
		FullContextMaxChunks: 15,
		AugmentTerms:         []string{"main", "function", "key", "important", "overview", "content"},
		AugmentBatch:         3,
		MinUniqueBroad:       5,
	}
}

// RetrievalPipeline picks the chunks a question is answered from.
type RetrievalPipeline struct {
	embedder   interfaces.EmbeddingModel
	classifier *query.Classifier
	opts       RetrievalOptions
	log        *logger.Logger
}

// NewRetrievalPipeline creates a new RetrievalPipeline. Zero option fields take their defaults.
func NewRetrievalPipeline(
	embedder interfaces.EmbeddingModel,
	classifier *query.Classifier,
	opts RetrievalOptions,
	log *logger.Logger,
) *RetrievalPipeline {
	def := DefaultRetrievalOptions()
	if opts.FullContextMaxChunks <= 0 {
		opts.FullContextMaxChunks = def.FullContextMaxChunks
	}
	if len(opts.AugmentTerms) == 0 {
		opts.AugmentTerms = def.AugmentTerms
	}
	if opts.AugmentBatch <= 0 {
		opts.AugmentBatch = def.AugmentBatch
	}
	if opts.MinUniqueBroad <= 0 {
		opts.MinUniqueBroad = def.MinUniqueBroad
	}
	return &RetrievalPipeline{
		embedder:   embedder,
		classifier: classifier,
		opts:       opts,
		log:        log,
	}
}

// Run classifies q and retrieves from store accordingly.
func (p *RetrievalPipeline) Run(ctx context.Context, q string, store interfaces.VectorStore) (*schema.RetrievalResult, query.Classification, error) {
	total := store.Len()
	c := p.classifier.Classify(q, total)
	p.log.Info(fmt.Sprintf("Starting retrieval: width=%d broad=%t content_request=%t chunks=%d",
		c.Width, c.Broad, c.ContentRequest, total))

	var (
		res *schema.RetrievalResult
		err error
	)
	if c.WantsBreadth() {
		res, err = p.breadth(ctx, q, c.Width, store)
	} else {
		res, err = p.Similar(ctx, q, store, c.Width)
	}
	if err != nil {
		return nil, c, err
	}

	p.log.Info(fmt.Sprintf("Retrieved %d chunks with strategy %s", len(res.Chunks), res.Strategy))
	return res, c, nil
}

// Similar returns the k chunks most similar to q. k is clamped to the corpus size.
func (p *RetrievalPipeline) Similar(ctx context.Context, q string, store interfaces.VectorStore, k int) (*schema.RetrievalResult, error) {
	width := min(k, store.Len())
	if width <= 0 {
		return newResult(nil, StrategySimilarity, 0), nil
	}

	vectors, err := p.embed(ctx, []string{q})
	if err != nil {
		return nil, err
	}
	return newResult(store.Search(vectors[0], width), StrategySimilarity, width), nil
}

func (p *RetrievalPipeline) breadth(ctx context.Context, q string, width int, store interfaces.VectorStore) (*schema.RetrievalResult, error) {
	all := store.Chunks()
	width = min(width, len(all))

	if len(all) <= p.opts.FullContextMaxChunks {
		return newResult(unscored(all), StrategyFullContext, len(all)), nil
	}

	queries := make([]string, len(p.opts.AugmentTerms))
	for i, term := range p.opts.AugmentTerms {
		queries[i] = q + " " + term
	}
	vectors, err := p.embed(ctx, queries)
	if err != nil {
		return nil, err
	}

	seen := make(map[int]struct{})
	var merged []schema.ScoredChunk
	for _, v := range vectors {
		for _, sc := range store.Search(v, p.opts.AugmentBatch) {
			if _, dup := seen[sc.Index]; dup {
				continue
			}
			seen[sc.Index] = struct{}{}
			merged = append(merged, sc)
		}
	}

	if len(merged) < p.opts.MinUniqueBroad {
		p.log.Info(fmt.Sprintf("Augmented search found %d unique chunks, falling back to document order", len(merged)))
		return newResult(unscored(all[:width]), StrategyOrderedFallback, width), nil
	}
	if len(merged) > width {
		merged = merged[:width]
	}
	return newResult(merged, StrategyAugmented, len(merged)), nil
}

func (p *RetrievalPipeline) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := p.embedder.Embed(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("embedder returned %d vectors for %d queries", len(vectors), len(texts))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		p.log.WithErr(err).Error("Failed to embed query")
		return nil, ragerr.Wrap(ragerr.EmbeddingFailure, err, "the embedding service failed to process the question")
	}
	return vectors, nil
}

func unscored(chunks []schema.Chunk) []schema.ScoredChunk {
	out := make([]schema.ScoredChunk, len(chunks))
	for i, c := range chunks {
		out[i] = schema.ScoredChunk{Chunk: c}
	}
	return out
}

func newResult(chunks []schema.ScoredChunk, strategy string, width int) *schema.RetrievalResult {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return &schema.RetrievalResult{
		Chunks:   chunks,
		Context:  strings.Join(texts, contextSeparator),
		Strategy: strategy,
		Width:    width,
	}
}
