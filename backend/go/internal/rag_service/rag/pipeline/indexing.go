package pipeline

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/loaders"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/internal/rag_service/rag/storages/vectorstore"
	"context"
	"fmt"
	"time"

	"DocQA/backend/go/pkg/logger"
)

// Ingested is a fully indexed document that has not been published yet.
type Ingested struct {
	Document *schema.Document
	Index    *vectorstore.Index
}

// IndexingPipeline orchestrates the process of loading, splitting and embedding one upload.
// It holds no shared state; concurrent runs are independent.
type IndexingPipeline struct {
	extractor *loaders.Registry
	splitter  interfaces.Splitter
	embedder  interfaces.EmbeddingModel
	build     vectorstore.BuildOptions
	log       *logger.Logger
}

// NewIndexingPipeline creates a new IndexingPipeline.
func NewIndexingPipeline(
	extractor *loaders.Registry,
	splitter interfaces.Splitter,
	embedder interfaces.EmbeddingModel,
	build vectorstore.BuildOptions,
	log *logger.Logger,
) *IndexingPipeline {
	return &IndexingPipeline{
		extractor: extractor,
		splitter:  splitter,
		embedder:  embedder,
		build:     build,
		log:       log,
	}
}

// Run extracts, chunks and embeds the file at path. fileName is the name the user uploaded,
// which decides the format. The returned document has no ID until it is published.
func (p *IndexingPipeline) Run(ctx context.Context, path, fileName string) (*Ingested, error) {
	log := p.log.WithField("file_name", fileName)
	log.Info("Starting indexing")

	// 1. Load the data
	ext, err := p.extractor.Extract(ctx, path, fileName)
	if err != nil {
		log.WithErr(err).Error("Failed to extract text")
		return nil, err
	}

	// 2. Split segments into chunks
	chunks := p.splitter.Split(ext.Segments)
	log.Info(fmt.Sprintf("Split %d segments into %d chunks", len(ext.Segments), len(chunks)))

	// 3. Embed the chunks and build the index
	idx, err := vectorstore.Build(ctx, chunks, p.embedder, p.build)
	if err != nil {
		log.WithErr(err).Error("Failed to build the similarity index")
		return nil, err
	}

	doc := &schema.Document{
		FileName:    fileName,
		Format:      ext.Format.Ext,
		Description: ext.Format.Description,
		Chunks:      chunks,
		CreatedAt:   time.Now().UTC(),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName:     fileName,
			schema.MetadataKeyMIMEType:     ext.Format.MIMEType,
			schema.MetadataKeySegmentCount: len(ext.Segments),
		},
	}

	log.Info(fmt.Sprintf("Successfully finished indexing: %d chunks", len(chunks)))
	return &Ingested{Document: doc, Index: idx}, nil
}
