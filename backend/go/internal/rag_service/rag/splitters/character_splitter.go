package splitters

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"DocQA/backend/go/internal/rag_service/rag/schema"
)

const (
	// DefaultChunkSize is the default number of characters per chunk.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the default number of overlapping characters.
	DefaultChunkOverlap = 200
)

// CharacterSplitter implements the Splitter interface with a sliding window over runes.
// Every segment is windowed on its own, so a chunk never spans two segments.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
}

// Option configures a CharacterSplitter.
type Option func(*CharacterSplitter)

// WithChunkSize sets the window size in characters.
func WithChunkSize(size int) Option {
	return func(s *CharacterSplitter) {
		s.ChunkSize = size
	}
}

// WithOverlap sets the overlap between consecutive windows in characters.
func WithOverlap(overlap int) Option {
	return func(s *CharacterSplitter) {
		s.ChunkOverlap = overlap
	}
}

// NewCharacterSplitter creates a splitter. The overlap must be smaller than the chunk size.
func NewCharacterSplitter(opts ...Option) (*CharacterSplitter, error) {
	s := &CharacterSplitter{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.ChunkSize <= 0 {
		return nil, ragerr.New(ragerr.InvalidArgument, "chunk size must be positive, got %d", s.ChunkSize)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return nil, ragerr.New(ragerr.InvalidArgument,
			"chunk overlap must be in [0, %d), got %d", s.ChunkSize, s.ChunkOverlap)
	}
	return s, nil
}

// Split cuts every segment into windows and numbers the chunks across the whole document.
func (s *CharacterSplitter) Split(segments []string) []schema.Chunk {
	var chunks []schema.Chunk
	for seg, text := range segments {
		for _, w := range s.windows(text) {
			chunks = append(chunks, schema.Chunk{
				Index:   len(chunks),
				Segment: seg,
				Offset:  w.offset,
				Length:  len(w.runes),
				Text:    string(w.runes),
			})
		}
	}
	return chunks
}

// SplitText windows a single text.
func (s *CharacterSplitter) SplitText(text string) []string {
	ws := s.windows(text)
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = string(w.runes)
	}
	return out
}

type window struct {
	offset int
	runes  []rune
}

func (s *CharacterSplitter) windows(text string) []window {
	runes := []rune(text)
	step := s.ChunkSize - s.ChunkOverlap

	var out []window
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		out = append(out, window{offset: start, runes: runes[start:end]})

		if end == len(runes) {
			break
		}
	}
	return out
}

// compile-time check to ensure CharacterSplitter implements the Splitter interface
var _ interfaces.Splitter = (*CharacterSplitter)(nil)
