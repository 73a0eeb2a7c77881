package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8000", cfg.Server.Address)
	assert.Equal(t, 1000, cfg.Ingestion.ChunkSize)
	assert.Equal(t, 200, cfg.Ingestion.ChunkOverlap)
	assert.Equal(t, 100, cfg.Ingestion.CSVBatchRows)
	assert.Equal(t, 10000, cfg.Ingestion.EncodingSniffBytes)
	assert.Equal(t, 15, cfg.Retrieval.FullContextMaxChunks)
	assert.Equal(t, []string{"main", "function", "key", "important", "overview", "content"}, cfg.Retrieval.AugmentTerms)
	assert.InDelta(t, 0.1, cfg.Retrieval.MinOverlap, 1e-9)
	assert.Equal(t, "hashing", cfg.Embedding.Provider)
	assert.Equal(t, "none", cfg.LLM.Provider)
	assert.Zero(t, cfg.Session.Capacity)
	assert.Zero(t, cfg.Session.TTLDuration())
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeoutDuration())
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":9000"
ingestion:
  chunkSize: 500
  chunkOverlap: 50
  disabledCapabilities: [pdf]
session:
  capacity: 10
  ttl: 2h
llm:
  provider: ollama
  model: llama3.2
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Address)
	assert.Equal(t, 500, cfg.Ingestion.ChunkSize)
	assert.Equal(t, []string{"pdf"}, cfg.Ingestion.DisabledCapabilities)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTLDuration())
	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, 64, cfg.Ingestion.EmbedBatchSize, "unset fields get defaults")
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("ingestion:\n  chunkSize: 100\n  chunkOverlap: 100\n"), 0o644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "chunkOverlap")

	ttl := filepath.Join(dir, "ttl.yaml")
	require.NoError(t, os.WriteFile(ttl, []byte("session:\n  ttl: forever\n"), 0o644))
	_, err = LoadConfig(ttl)
	assert.ErrorContains(t, err, "session.ttl")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"OPENAI_API_KEY":     "sk-test",
		"GEMINI_API_KEY":     "g-test",
		"DOCQA_LLM_PROVIDER": "gemini",
	}
	cfg := Default()
	cfg.Embedding.Provider = "openai"
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "g-test", cfg.LLM.APIKey)

	cfg.LLM.APIKey = "from-file"
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "from-file", cfg.LLM.APIKey, "explicit keys win")
}
