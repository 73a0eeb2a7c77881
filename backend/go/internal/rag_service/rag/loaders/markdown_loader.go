package loaders

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"bytes"
	"context"
	"os"

	"github.com/yuin/goldmark"
)

// MarkdownLoader implements the Loader interface for reading Markdown (.md) files.
// The document is rendered to HTML and then flattened like any other page, so
// emphasis markers, link targets and fences do not leak into the text.
type MarkdownLoader struct {
	decoder *TextDecoder
	md      goldmark.Markdown
}

// NewMarkdownLoader creates a new MarkdownLoader.
func NewMarkdownLoader(decoder *TextDecoder) *MarkdownLoader {
	return &MarkdownLoader{decoder: decoder, md: goldmark.New()}
}

// Load renders the file and returns its visible text as a single segment.
func (l *MarkdownLoader) Load(ctx context.Context, path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, _ := l.decoder.Decode(content)

	var rendered bytes.Buffer
	if err := l.md.Convert([]byte(text), &rendered); err != nil {
		return nil, err
	}

	visible, err := extractText(&rendered)
	if err != nil {
		return nil, err
	}
	return joinedSegment([]string{visible}), nil
}

// compile-time check to ensure MarkdownLoader implements the Loader interface
var _ interfaces.Loader = (*MarkdownLoader)(nil)
