package service

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/embedding"
	"DocQA/backend/go/internal/rag_service/rag/capability"
	"DocQA/backend/go/internal/rag_service/rag/embeddings"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/loaders"
	"DocQA/backend/go/internal/rag_service/rag/pipeline"
	"DocQA/backend/go/internal/rag_service/rag/query"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"DocQA/backend/go/internal/rag_service/rag/splitters"
	"DocQA/backend/go/internal/rag_service/rag/storages/sessionstore"
	"DocQA/backend/go/internal/rag_service/rag/storages/vectorstore"
	"DocQA/backend/go/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleCSV = "name,age\nAlice,30\nBob,40\nCara,50\n"

type countingLLM struct {
	answer string
	calls  atomic.Int32
}

func (l *countingLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	l.calls.Add(1)
	return l.answer, nil
}

func newTestServer(t *testing.T, llm interfaces.LLM) (*Server, string) {
	t.Helper()
	log := logger.Discard()
	caps := capability.NewRegistry(capability.Options{})
	splitter, err := splitters.NewCharacterSplitter(splitters.WithChunkSize(100), splitters.WithOverlap(20))
	require.NoError(t, err)
	embedder := embeddings.NewAdapter(embedding.NewHashingModel(64))
	dir := t.TempDir()

	return NewServer(log, Deps{
		Capabilities: caps,
		Indexing: pipeline.NewIndexingPipeline(loaders.NewRegistry(caps, loaders.Options{}, log),
			splitter, embedder, vectorstore.BuildOptions{}, log),
		Retrieval: pipeline.NewRetrievalPipeline(embedder, query.NewClassifier(0), pipeline.RetrievalOptions{}, log),
		QA:        pipeline.NewQAPipeline(llm, query.NewGate(0), log),
		Sessions:  sessionstore.New(sessionstore.Options{}, nil, log),
		UploadDir: dir,
	}), dir
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "uploads must not be left behind")
}

func TestServer_UploadAndChat(t *testing.T) {
	llm := &countingLLM{answer: "Alice is 30."}
	s, dir := newTestServer(t, llm)
	ctx := context.Background()

	info, err := s.Upload(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)
	assert.NotEmpty(t, info.SessionID)
	assert.Equal(t, "csv", info.Format)
	assert.Equal(t, 2, info.ChunkCount)
	assertEmptyDir(t, dir)

	res, err := s.Chat(ctx, info.SessionID, "What age is Alice?")
	require.NoError(t, err)
	assert.Equal(t, "Alice is 30.", res.Answer)
	assert.False(t, res.OutOfScope)
	assert.Equal(t, pipeline.StrategySimilarity, res.Strategy)
	assert.Equal(t, 2, res.Width)
	assert.Len(t, res.Sources, 2)
	assert.EqualValues(t, 1, llm.calls.Load())
}

func TestServer_ChatOutOfScopeSkipsGeneration(t *testing.T) {
	llm := &countingLLM{answer: "should not be used"}
	s, _ := newTestServer(t, llm)
	ctx := context.Background()

	info, err := s.Upload(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)

	res, err := s.Chat(ctx, info.SessionID, "Who won the football world cup?")
	require.NoError(t, err)
	assert.True(t, res.OutOfScope)
	assert.Equal(t, query.OutOfScopeMessage, res.Answer)
	assert.Empty(t, res.Sources)
	assert.EqualValues(t, 0, llm.calls.Load())
}

func TestServer_ChatRefusalIsOutOfScope(t *testing.T) {
	s, _ := newTestServer(t, &countingLLM{answer: query.RefusalSentence})
	ctx := context.Background()

	info, err := s.Upload(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)

	res, err := s.Chat(ctx, info.SessionID, "How old is Bob?")
	require.NoError(t, err)
	assert.True(t, res.OutOfScope)
	assert.Equal(t, query.OutOfScopeMessage, res.Answer)
}

func TestServer_UploadErrors(t *testing.T) {
	s, dir := newTestServer(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		fileName string
		content  string
		kind     ragerr.Kind
	}{
		{"legacy word", "old.doc", "binary", ragerr.UnsupportedLegacyFormat},
		{"unknown", "photo.png", "binary", ragerr.UnsupportedFormat},
		{"empty", "empty.txt", "", ragerr.EmptyInput},
		{"whitespace only", "blank.txt", "  \n ", ragerr.EmptyExtraction},
		{"no name", "", "x", ragerr.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Upload(ctx, tt.fileName, strings.NewReader(tt.content))
			assert.True(t, ragerr.Is(err, tt.kind), "got %v", err)
		})
	}
	assertEmptyDir(t, dir)
}

func TestServer_UploadIgnoresDirectories(t *testing.T) {
	s, _ := newTestServer(t, nil)
	info, err := s.Upload(context.Background(), "../../etc/notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", info.FileName)
}

func TestServer_SessionLifecycle(t *testing.T) {
	s, _ := newTestServer(t, nil)
	ctx := context.Background()

	info, err := s.Upload(ctx, "notes.txt", strings.NewReader("The launch is planned for March."))
	require.NoError(t, err)

	got, err := s.Info(info.SessionID)
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", got.FileName)

	assert.True(t, s.Delete(ctx, info.SessionID))
	assert.False(t, s.Delete(ctx, info.SessionID))

	_, err = s.Info(info.SessionID)
	assert.True(t, ragerr.Is(err, ragerr.SessionNotFound))
	_, err = s.Chat(ctx, info.SessionID, "When is the launch?")
	assert.True(t, ragerr.Is(err, ragerr.SessionNotFound))
}

func TestServer_ChatWithoutGenerator(t *testing.T) {
	s, _ := newTestServer(t, nil)
	ctx := context.Background()

	info, err := s.Upload(ctx, "notes.txt", strings.NewReader("The launch is planned for March."))
	require.NoError(t, err)

	_, err = s.Chat(ctx, info.SessionID, "When is the launch planned?")
	assert.True(t, ragerr.Is(err, ragerr.CapabilityUnavailable))

	_, err = s.Chat(ctx, info.SessionID, "   ")
	assert.True(t, ragerr.Is(err, ragerr.InvalidArgument))
}

func TestServer_Search(t *testing.T) {
	s, _ := newTestServer(t, nil)
	ctx := context.Background()

	info, err := s.Upload(ctx, "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)

	res, err := s.Search(ctx, info.SessionID, "Alice", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Width)
	assert.Len(t, res.Chunks, 1)

	res, err = s.Search(ctx, info.SessionID, "summarize this file", 0)
	require.NoError(t, err)
	assert.Equal(t, pipeline.StrategyFullContext, res.Strategy)
	assert.Len(t, res.Chunks, 2)
}

func TestServer_FreeChat(t *testing.T) {
	s, _ := newTestServer(t, &countingLLM{answer: "hi"})
	got, err := s.FreeChat(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = s.FreeChat(context.Background(), "", "")
	assert.True(t, ragerr.Is(err, ragerr.InvalidArgument))
}

func TestServer_Formats(t *testing.T) {
	s, _ := newTestServer(t, nil)
	f := s.Formats()
	assert.Equal(t, "PDF documents", f.Supported["pdf"])
	assert.Contains(t, f.Legacy, "doc")
	assert.Len(t, f.Capabilities, len(capability.All))
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.UploadDir = t.TempDir()

	s, closeFn, err := NewFromConfig(cfg, nil, logger.Discard())
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeFn()) }()

	info, err := s.Upload(context.Background(), "people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)
	assert.Equal(t, 2, info.ChunkCount)

	cfg.Embedding.Provider = "carrier-pigeon"
	_, _, err = NewFromConfig(cfg, nil, logger.Discard())
	assert.Error(t, err)
}
