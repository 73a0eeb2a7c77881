package service

import (
	"DocQA/backend/go/internal/rag_service/rag/capability"
	"DocQA/backend/go/internal/rag_service/rag/embeddings"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/llms"
	"DocQA/backend/go/internal/rag_service/rag/loaders"
	"DocQA/backend/go/internal/rag_service/rag/pipeline"
	"DocQA/backend/go/internal/rag_service/rag/query"
	"DocQA/backend/go/internal/rag_service/rag/splitters"
	"DocQA/backend/go/internal/rag_service/rag/storages/sessionstore"
	"DocQA/backend/go/internal/rag_service/rag/storages/vectorstore"
	"errors"
	"fmt"
	"io"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/database/kafka"
	"DocQA/backend/go/internal/embedding"
	"DocQA/backend/go/internal/llm"
	"DocQA/backend/go/pkg/logger"
)

// NewFromConfig builds the providers, pipelines and session store described by cfg.
// The returned close function releases provider clients.
func NewFromConfig(cfg *config.AppConfig, events kafka.Publisher, log *logger.Logger) (*Server, func() error, error) {
	var closers []io.Closer
	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	}

	// 1. Embedding and generation providers
	emb, err := embedding.NewEmdModel(embedding.Config{
		Provider:   embedding.ModelType(cfg.Embedding.Provider),
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	if c, ok := emb.(io.Closer); ok {
		closers = append(closers, c)
	}

	gen, err := llm.NewClient(llm.Config{
		Provider:    cfg.LLM.Provider,
		Model:       cfg.LLM.Model,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Temperature: cfg.LLM.Temperature,
	})
	if err != nil {
		_ = closeAll()
		return nil, nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	var generator interfaces.LLM
	if gen != nil {
		if c, ok := gen.(io.Closer); ok {
			closers = append(closers, c)
		}
		generator = llms.NewAdapter(gen)
	} else {
		log.Warn("No LLM provider configured; questions about documents will fail with capability_unavailable")
	}

	// 2. Extraction
	caps := capability.NewRegistry(capability.Options{
		Disabled:         cfg.Ingestion.DisabledCapabilities,
		OfficeLicenseKey: cfg.Ingestion.OfficeLicenseKey,
	})
	for _, c := range caps.Status() {
		if !c.Available {
			log.Warn(fmt.Sprintf("Capability %s unavailable: %s", c.Name, c.Reason))
		}
	}
	extractor := loaders.NewRegistry(caps, loaders.Options{
		CSVBatchRows:     cfg.Ingestion.CSVBatchRows,
		SniffBytes:       cfg.Ingestion.EncodingSniffBytes,
		DocxSectionChars: cfg.Ingestion.DocxSectionChars,
	}, log)

	splitter, err := splitters.NewCharacterSplitter(
		splitters.WithChunkSize(cfg.Ingestion.ChunkSize),
		splitters.WithOverlap(cfg.Ingestion.ChunkOverlap),
	)
	if err != nil {
		_ = closeAll()
		return nil, nil, fmt.Errorf("failed to create splitter: %w", err)
	}

	// 3. Pipelines
	embedder := embeddings.NewAdapter(emb)
	indexing := pipeline.NewIndexingPipeline(extractor, splitter, embedder, vectorstore.BuildOptions{
		BatchSize:   cfg.Ingestion.EmbedBatchSize,
		Concurrency: cfg.Ingestion.EmbedConcurrency,
	}, log)
	retrieval := pipeline.NewRetrievalPipeline(embedder, query.NewClassifier(cfg.Retrieval.BroadWidthCap), pipeline.RetrievalOptions{
		FullContextMaxChunks: cfg.Retrieval.FullContextMaxChunks,
		AugmentTerms:         cfg.Retrieval.AugmentTerms,
		AugmentBatch:         cfg.Retrieval.AugmentBatch,
		MinUniqueBroad:       cfg.Retrieval.MinUniqueBroad,
	}, log)
	qa := pipeline.NewQAPipeline(generator, query.NewGate(cfg.Retrieval.MinOverlap), log)

	// 4. Sessions
	sessions := sessionstore.New(sessionstore.Options{
		Capacity:  cfg.Session.Capacity,
		MaxChunks: cfg.Session.MaxChunks,
		TTL:       cfg.Session.TTLDuration(),
	}, events, log)

	return NewServer(log, Deps{
		Capabilities: caps,
		Indexing:     indexing,
		Retrieval:    retrieval,
		QA:           qa,
		Sessions:     sessions,
		UploadDir:    cfg.Server.UploadDir,
	}), closeAll, nil
}
