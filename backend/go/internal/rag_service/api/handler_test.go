package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"DocQA/backend/go/internal/rag_service/service"
	"DocQA/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService returns canned results and records what it was given.
type fakeService struct {
	err        error
	uploadName string
	uploadBody string
	question   string
	topK       int
	deleted    bool
}

func (f *fakeService) Upload(ctx context.Context, fileName string, r io.Reader) (*service.SessionInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(r)
	f.uploadName, f.uploadBody = fileName, string(b)
	return &service.SessionInfo{SessionID: "s-1", FileName: fileName, Format: "txt", ChunkCount: 1}, nil
}

func (f *fakeService) Info(id string) (*service.SessionInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.SessionInfo{SessionID: id}, nil
}

func (f *fakeService) Delete(ctx context.Context, id string) bool {
	return f.deleted
}

func (f *fakeService) Chat(ctx context.Context, id, question string) (*service.ChatResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.question = question
	return &service.ChatResult{Answer: "42", Strategy: "similarity", Width: 1}, nil
}

func (f *fakeService) Search(ctx context.Context, id, question string, topK int) (*service.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.question, f.topK = question, topK
	return &service.SearchResult{Strategy: "similarity", Width: topK}, nil
}

func (f *fakeService) FreeChat(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "echo: " + userMessage, nil
}

func (f *fakeService) Formats() service.FormatsInfo {
	return service.FormatsInfo{Supported: map[string]string{"txt": "Plain text files"}}
}

func newRouter(svc Service, maxUpload int64) *gin.Engine {
	return NewRouter(NewHandler(svc, maxUpload, logger.Discard()))
}

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func multipartBody(t *testing.T, field, name, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestHealthAndFormats(t *testing.T) {
	r := newRouter(&fakeService{}, 0)

	w := do(t, r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = do(t, r, http.MethodGet, "/api/formats", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Plain text files")
}

func TestUpload(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, 1<<20)

	body, ct := multipartBody(t, "file", "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "s-1", decode(t, w)["session_id"])
	assert.Equal(t, "notes.txt", svc.uploadName)
	assert.Equal(t, "hello", svc.uploadBody)
}

func TestUpload_MissingField(t *testing.T) {
	r := newRouter(&fakeService{}, 0)

	body, ct := multipartBody(t, "document", "notes.txt", "hello")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(ragerr.InvalidArgument), decode(t, w)["kind"])
}

func TestUpload_TooLarge(t *testing.T) {
	r := newRouter(&fakeService{}, 1024)

	body, ct := multipartBody(t, "file", "big.txt", strings.Repeat("x", 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, kindUploadTooLarge, decode(t, w)["kind"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"legacy", ragerr.New(ragerr.UnsupportedLegacyFormat, "convert it"), http.StatusBadRequest, "unsupported_legacy_format"},
		{"unsupported", ragerr.New(ragerr.UnsupportedFormat, "nope"), http.StatusBadRequest, "unsupported_format"},
		{"empty input", ragerr.New(ragerr.EmptyInput, "empty"), http.StatusBadRequest, "empty_input"},
		{"not found", ragerr.New(ragerr.SessionNotFound, "gone"), http.StatusNotFound, "session_not_found"},
		{"empty extraction", ragerr.New(ragerr.EmptyExtraction, "no text"), http.StatusUnprocessableEntity, "empty_extraction"},
		{"decode", ragerr.Wrap(ragerr.DecodeFailure, errors.New("xref table broken"), "corrupt"), http.StatusUnprocessableEntity, "decode_failure"},
		{"capability", ragerr.New(ragerr.CapabilityUnavailable, "off"), http.StatusServiceUnavailable, "capability_unavailable"},
		{"embedding", ragerr.New(ragerr.EmbeddingFailure, "down"), http.StatusBadGateway, "embedding_failure"},
		{"generation", ragerr.New(ragerr.GenerationFailure, "down"), http.StatusBadGateway, "generation_failure"},
		{"plain error", errors.New("secret internals"), http.StatusInternalServerError, kindInternal},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, kindCanceled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&fakeService{err: tt.err}, 0)
			w := do(t, r, http.MethodGet, "/api/sessions/abc", "")
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.kind, body["kind"])
			assert.NotContains(t, w.Body.String(), "xref table broken")
			assert.NotContains(t, w.Body.String(), "secret internals")
		})
	}
}

func TestErrorDetailIsMerged(t *testing.T) {
	err := ragerr.New(ragerr.CapabilityUnavailable, "off").With("capability", "pdf")
	r := newRouter(&fakeService{err: err}, 0)

	w := do(t, r, http.MethodGet, "/api/sessions/abc", "")
	assert.Equal(t, "pdf", decode(t, w)["capability"])
}

func TestChatAndSearch(t *testing.T) {
	svc := &fakeService{}
	r := newRouter(svc, 0)

	w := do(t, r, http.MethodPost, "/api/sessions/s-1/chat", `{"question":"what?"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", decode(t, w)["answer"])
	assert.Equal(t, "what?", svc.question)

	w = do(t, r, http.MethodPost, "/api/sessions/s-1/search", `{"question":"where?","top_k":3}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, svc.topK)

	w = do(t, r, http.MethodPost, "/api/sessions/s-1/search", `{"question":"where?","top_k":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/api/sessions/s-1/chat", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteIsAlwaysOK(t *testing.T) {
	r := newRouter(&fakeService{deleted: false}, 0)
	w := do(t, r, http.MethodDelete, "/api/sessions/missing", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["deleted"])
}

func TestFreeChat(t *testing.T) {
	r := newRouter(&fakeService{}, 0)
	w := do(t, r, http.MethodPost, "/api/chat", `{"user_message":"hi"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "echo: hi", w.Body.String())
}

// End to end through the real service with the offline embedder.
func TestRealService_UploadInfoDelete(t *testing.T) {
	cfg := config.Default()
	cfg.Server.UploadDir = t.TempDir()
	svc, closeFn, err := service.NewFromConfig(cfg, nil, logger.Discard())
	require.NoError(t, err)
	defer closeFn()
	r := newRouter(svc, 1<<20)

	body, ct := multipartBody(t, "file", "people.csv", "name,age\nAlice,30\nBob,40\nCara,50\n")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	up := decode(t, w)
	id := up["session_id"].(string)
	assert.EqualValues(t, 2, up["chunk_count"])

	w = do(t, r, http.MethodPost, "/api/sessions/"+id+"/search", `{"question":"Alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Alice")

	// no generator configured by default
	w = do(t, r, http.MethodPost, "/api/sessions/"+id+"/chat", `{"question":"What age is Alice?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, r, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, true, decode(t, w)["deleted"])
	w = do(t, r, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, false, decode(t, w)["deleted"])

	w = do(t, r, http.MethodGet, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	body, ct = multipartBody(t, "file", "report.doc", "legacy")
	req = httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "unsupported_legacy_format", decode(t, w)["kind"])
}
