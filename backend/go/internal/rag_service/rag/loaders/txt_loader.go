package loaders

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"context"
	"fmt"
	"os"
	"strings"
)

// TxtLoader reads plain text and source code files.
type TxtLoader struct {
	decoder *TextDecoder
	// fileType, when set, is announced on a header line before the content.
	fileType string
}

// NewTxtLoader creates a loader for plain text.
func NewTxtLoader(decoder *TextDecoder) *TxtLoader {
	return &TxtLoader{decoder: decoder}
}

// NewCodeLoader creates a loader that prefixes content with "File type: <fileType>".
func NewCodeLoader(decoder *TextDecoder, fileType string) *TxtLoader {
	return &TxtLoader{decoder: decoder, fileType: fileType}
}

// Load decodes the whole file as a single segment.
func (l *TxtLoader) Load(ctx context.Context, path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	text, _ := l.decoder.Decode(content)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if l.fileType != "" {
		text = fmt.Sprintf("File type: %s\n\n%s", l.fileType, text)
	}
	return []string{text}, nil
}

// compile-time check to ensure TxtLoader implements the Loader interface
var _ interfaces.Loader = (*TxtLoader)(nil)
