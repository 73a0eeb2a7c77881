package embeddings

import (
	"context"
	"errors"
	"testing"

	"DocQA/backend/go/internal/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	out [][]float32
	err error
}

func (s stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("unused")
}

func (s stubProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return s.out, s.err
}

func TestAdapter(t *testing.T) {
	ctx := context.Background()

	got, err := NewAdapter(embedding.NewHashingModel(16)).Embed(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = NewAdapter(stubProvider{err: errors.New("unused")}).Embed(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = NewAdapter(stubProvider{out: [][]float32{{1}}}).Embed(ctx, []string{"a", "b"})
	assert.ErrorContains(t, err, "1 vectors for 2 texts")

	_, err = NewAdapter(stubProvider{out: [][]float32{{1}, {}}}).Embed(ctx, []string{"a", "b"})
	assert.ErrorContains(t, err, "empty vector")
}
