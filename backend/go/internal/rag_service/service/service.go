package service

import (
	"DocQA/backend/go/internal/rag_service/rag/capability"
	"DocQA/backend/go/internal/rag_service/rag/formats"
	"DocQA/backend/go/internal/rag_service/rag/pipeline"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"DocQA/backend/go/internal/rag_service/rag/schema"
	"DocQA/backend/go/internal/rag_service/rag/storages/sessionstore"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"DocQA/backend/go/pkg/logger"
)

// previewRunes is how much of a source chunk is echoed back with an answer.
const previewRunes = 200

// Server is the document QA service behind the HTTP API and the CLI.
type Server struct {
	log       *logger.Logger
	caps      *capability.Registry
	indexing  *pipeline.IndexingPipeline
	retrieval *pipeline.RetrievalPipeline
	qa        *pipeline.QAPipeline
	sessions  *sessionstore.Store
	uploadDir string
}

// Deps are the collaborators of a Server.
type Deps struct {
	Capabilities *capability.Registry
	Indexing     *pipeline.IndexingPipeline
	Retrieval    *pipeline.RetrievalPipeline
	QA           *pipeline.QAPipeline
	Sessions     *sessionstore.Store
	// UploadDir holds uploads while they are ingested. Empty means the OS temp dir.
	UploadDir string
}

// NewServer creates a new Server.
func NewServer(log *logger.Logger, deps Deps) *Server {
	return &Server{
		log:       log,
		caps:      deps.Capabilities,
		indexing:  deps.Indexing,
		retrieval: deps.Retrieval,
		qa:        deps.QA,
		sessions:  deps.Sessions,
		uploadDir: deps.UploadDir,
	}
}

// SessionInfo describes a published document.
type SessionInfo struct {
	SessionID   string    `json:"session_id"`
	FileName    string    `json:"file_name"`
	Format      string    `json:"format"`
	Description string    `json:"description"`
	ChunkCount  int       `json:"chunk_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Source is one chunk an answer was built from.
type Source struct {
	Index   int     `json:"index"`
	Segment int     `json:"segment"`
	Score   float32 `json:"score"`
	Preview string  `json:"preview"`
}

// ChatResult is the reply to a question about a session's document.
type ChatResult struct {
	Answer     string   `json:"answer"`
	OutOfScope bool     `json:"out_of_scope"`
	Strategy   string   `json:"strategy"`
	Width      int      `json:"width"`
	Sources    []Source `json:"sources"`
}

// SearchResult is a retrieval without generation.
type SearchResult struct {
	Strategy string               `json:"strategy"`
	Width    int                  `json:"width"`
	Chunks   []schema.ScoredChunk `json:"chunks"`
}

// FormatsInfo lists what the server accepts.
type FormatsInfo struct {
	Supported    map[string]string       `json:"supported"`
	Legacy       map[string]string       `json:"legacy"`
	Capabilities []capability.Capability `json:"capabilities"`
}

// Upload ingests one document read from r and publishes it as a new session.
// fileName decides the format; its directory part is ignored.
func (s *Server) Upload(ctx context.Context, fileName string, r io.Reader) (*SessionInfo, error) {
	fileName = filepath.Base(strings.TrimSpace(fileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		return nil, ragerr.New(ragerr.InvalidArgument, "the upload has no file name")
	}
	// 先检查格式，避免把不支持的文件写到磁盘
	c, err := formats.Classify(fileName, nil)
	if err != nil {
		return nil, err
	}

	log := s.log.WithField("file_name", fileName)
	log.Info("Received upload")

	path, err := s.spool(c.Ext, r)
	if err != nil {
		log.WithErr(err).Error("Failed to store upload")
		return nil, err
	}
	defer os.Remove(path)

	ingested, err := s.indexing.Run(ctx, path, fileName)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.Create(ctx, ingested.Document, ingested.Index); err != nil {
		return nil, err
	}
	return toInfo(ingested.Document), nil
}

// spool copies the upload to a temp file that keeps the original extension.
func (s *Server) spool(ext string, r io.Reader) (string, error) {
	f, err := os.CreateTemp(s.uploadDir, "docqa-*."+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", ragerr.Wrap(ragerr.InvalidArgument, err, "the upload could not be read completely")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return f.Name(), nil
}

// Info returns the description of a session.
func (s *Server) Info(id string) (*SessionInfo, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	return toInfo(sess.Document), nil
}

// Delete removes a session. It reports whether the session existed; it never fails.
func (s *Server) Delete(ctx context.Context, id string) bool {
	return s.sessions.Delete(ctx, id)
}

// Chat answers a question from the session's document.
func (s *Server) Chat(ctx context.Context, id, question string) (*ChatResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ragerr.New(ragerr.InvalidArgument, "the question must not be empty")
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	s.log.WithField("session_id", id).Info("Received Chat request")
	r, c, err := s.retrieval.Run(ctx, question, sess.Index)
	if err != nil {
		return nil, err
	}

	answer, err := s.qa.Run(ctx, question, c, r)
	if err != nil {
		return nil, err
	}

	res := &ChatResult{
		Answer:     answer.Text,
		OutOfScope: answer.OutOfScope,
		Strategy:   r.Strategy,
		Width:      r.Width,
		Sources:    make([]Source, 0, len(r.Chunks)),
	}
	if answer.OutOfScope {
		return res, nil
	}
	for _, ch := range r.Chunks {
		res.Sources = append(res.Sources, Source{
			Index:   ch.Index,
			Segment: ch.Segment,
			Score:   ch.Score,
			Preview: preview(ch.Text),
		})
	}
	return res, nil
}

// Search runs retrieval only. topK <= 0 lets the query classifier pick the width and strategy.
func (s *Server) Search(ctx context.Context, id, question string, topK int) (*SearchResult, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ragerr.New(ragerr.InvalidArgument, "the question must not be empty")
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}

	var r *schema.RetrievalResult
	if topK > 0 {
		r, err = s.retrieval.Similar(ctx, question, sess.Index, topK)
	} else {
		r, _, err = s.retrieval.Run(ctx, question, sess.Index)
	}
	if err != nil {
		return nil, err
	}
	return &SearchResult{Strategy: r.Strategy, Width: r.Width, Chunks: r.Chunks}, nil
}

// FreeChat sends a message straight to the generator, without any document.
func (s *Server) FreeChat(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return s.qa.Chat(ctx, systemPrompt, userMessage)
}

// Formats lists the accepted formats and the state of each capability.
func (s *Server) Formats() FormatsInfo {
	cat := formats.GetCatalog()
	return FormatsInfo{
		Supported:    cat.Supported,
		Legacy:       cat.Legacy,
		Capabilities: s.caps.Status(),
	}
}

func toInfo(doc *schema.Document) *SessionInfo {
	return &SessionInfo{
		SessionID:   doc.ID,
		FileName:    doc.FileName,
		Format:      doc.Format,
		Description: doc.Description,
		ChunkCount:  len(doc.Chunks),
		CreatedAt:   doc.CreatedAt,
	}
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	r := []rune(text)
	return string(r[:previewRunes]) + "…"
}
