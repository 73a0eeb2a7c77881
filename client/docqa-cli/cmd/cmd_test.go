package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	method string
	path   string
	body   string
}

func fakeServer(t *testing.T) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	mux := http.NewServeMux()
	mux.HandleFunc("/api/formats", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"supported":{"txt":"Plain text files","pdf":"PDF documents"},"legacy":{"doc":"Save as .docx"},` +
			`"capabilities":[{"name":"pdf","available":false,"reason":"disabled by configuration"}]}`))
	})
	mux.HandleFunc("/api/upload", func(w http.ResponseWriter, r *http.Request) {
		f, fh, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(f)
		calls = append(calls, recorded{r.Method, r.URL.Path, fh.Filename + ":" + string(b)})
		_, _ = w.Write([]byte(`{"session_id":"s-1","file_name":"notes.txt","description":"Plain text files","chunk_count":1}`))
	})
	mux.HandleFunc("/api/sessions/", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, recorded{r.Method, r.URL.Path, string(b)})
		switch {
		case strings.HasSuffix(r.URL.Path, "/chat"):
			_, _ = w.Write([]byte(`{"answer":"Alice is 30.","strategy":"similarity","sources":[{"index":1,"score":0.9,"preview":"Row 1:\nAlice"}]}`))
		case strings.HasSuffix(r.URL.Path, "/search"):
			_, _ = w.Write([]byte(`{"strategy":"similarity","width":1,"chunks":[{"index":1,"text":"Row 1: Alice","score":0.5}]}`))
		case r.Method == http.MethodDelete:
			_, _ = w.Write([]byte(`{"deleted":true}`))
		case strings.HasSuffix(r.URL.Path, "/missing"):
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"session \"missing\" was not found","kind":"session_not_found"}`))
		default:
			_, _ = w.Write([]byte(`{"session_id":"s-1","file_name":"notes.txt","format":"txt","chunk_count":1}`))
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &calls
}

func run(t *testing.T, server string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--server", server}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestFormats(t *testing.T) {
	srv, _ := fakeServer(t)
	out, err := run(t, srv.URL, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, ".pdf")
	assert.Contains(t, out, "Save as .docx")
	assert.Contains(t, out, "Unavailable on this server: pdf")
	assert.Less(t, strings.Index(out, ".pdf"), strings.Index(out, ".txt"), "sorted by extension")
}

func TestUpload(t *testing.T) {
	srv, calls := fakeServer(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	out, err := run(t, srv.URL, "upload", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Session s-1")
	require.Len(t, *calls, 1)
	assert.Equal(t, "notes.txt:hello", (*calls)[0].body)
}

func TestAsk(t *testing.T) {
	srv, calls := fakeServer(t)
	out, err := run(t, srv.URL, "ask", "s-1", "How", "old", "is", "Alice?", "--sources")
	require.NoError(t, err)
	assert.Contains(t, out, "Alice is 30.")
	assert.Contains(t, out, "[1] 0.900 Row 1: Alice")

	require.Len(t, *calls, 1)
	assert.Equal(t, "/api/sessions/s-1/chat", (*calls)[0].path)
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte((*calls)[0].body), &body))
	assert.Equal(t, "How old is Alice?", body["question"])
}

func TestSearchJSON(t *testing.T) {
	srv, calls := fakeServer(t)
	out, err := run(t, srv.URL, "--json", "search", "s-1", "Alice", "-k", "1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, `{"strategy"`), out)
	assert.Contains(t, (*calls)[0].body, `"top_k":1`)
}

func TestInfoAndDelete(t *testing.T) {
	srv, _ := fakeServer(t)
	out, err := run(t, srv.URL, "info", "s-1")
	require.NoError(t, err)
	assert.Contains(t, out, "notes.txt")

	out, err = run(t, srv.URL, "delete", "s-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted session s-1")
}

func TestServerErrorIsReadable(t *testing.T) {
	srv, _ := fakeServer(t)
	_, err := run(t, srv.URL, "info", "missing")
	require.Error(t, err)
	assert.Equal(t, `session "missing" was not found (session_not_found)`, err.Error())

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}
