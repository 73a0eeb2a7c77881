package schema

import "time"

const (
	// MetadataKeyFileName is the key for the source file name.
	MetadataKeyFileName = "file_name"
	// MetadataKeyMIMEType is the content-sniffed MIME type, for diagnostics.
	MetadataKeyMIMEType = "mime_type"
	// MetadataKeySegmentCount is the number of segments the extractor produced.
	MetadataKeySegmentCount = "segment_count"
)

// Chunk is a contiguous span of extracted text used as a retrieval unit.
// Chunks are immutable once created.
type Chunk struct {
	// Index is the chunk's position in the whole document.
	Index int `json:"index"`

	// Segment is the position of the extraction unit (page, sheet, row batch...) the chunk was cut from.
	Segment int `json:"segment"`

	// Offset is the rune offset of the chunk inside its segment.
	Offset int `json:"offset"`

	// Length is the chunk length in runes.
	Length int `json:"length"`

	Text string `json:"text"`
}

// Document is one ingested upload. It is owned by the session store.
type Document struct {
	// ID is the session identifier the document is published under.
	ID string

	FileName    string
	Format      string
	Description string

	// Chunks are kept in extraction order.
	Chunks []Chunk

	CreatedAt time.Time

	// Metadata holds arbitrary diagnostic data about the document.
	Metadata map[string]interface{}
}

// ScoredChunk is a chunk returned by a similarity search.
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// RetrievalResult is the ephemeral output of one retrieval.
type RetrievalResult struct {
	Chunks []ScoredChunk

	// Context is the chunk texts joined in result order.
	Context string

	// Strategy names how the chunks were picked.
	Strategy string

	// Width is the effective retrieval width after clamping to the corpus size.
	Width int
}
