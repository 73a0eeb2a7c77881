package loaders

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultCSVBatchRows is the number of data rows per row-batch segment.
const DefaultCSVBatchRows = 100

// CsvLoader emits the header row as one segment and the data rows in fixed-size batches.
type CsvLoader struct {
	decoder   *TextDecoder
	batchRows int
}

// NewCsvLoader creates a new CsvLoader.
func NewCsvLoader(decoder *TextDecoder, batchRows int) *CsvLoader {
	if batchRows <= 0 {
		batchRows = DefaultCSVBatchRows
	}
	return &CsvLoader{decoder: decoder, batchRows: batchRows}
}

// Load reads the file as "CSV Headers: a, b" followed by "Row N: v1, v2" batches.
// Blank rows are skipped but still counted.
func (l *CsvLoader) Load(ctx context.Context, path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, _ := l.decoder.Decode(raw)

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var segments []string
	if h := joinFields(header); h != "" {
		segments = append(segments, "CSV Headers: "+h)
	}

	var (
		batch   strings.Builder
		inBatch int
		rowNo   int
	)
	flush := func() {
		if inBatch > 0 {
			segments = append(segments, strings.TrimRight(batch.String(), "\n"))
		}
		batch.Reset()
		inBatch = 0
	}

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rowNo++
		row := joinFields(record)
		if row == "" {
			continue
		}
		fmt.Fprintf(&batch, "Row %d: %s\n", rowNo, row)
		inBatch++
		if inBatch == l.batchRows {
			flush()
		}
	}
	flush()

	return segments, nil
}

// joinFields joins trimmed fields with ", ", returning "" for an all-blank record.
func joinFields(record []string) string {
	blank := true
	fields := make([]string, len(record))
	for i, f := range record {
		fields[i] = strings.TrimSpace(f)
		if fields[i] != "" {
			blank = false
		}
	}
	if blank {
		return ""
	}
	return strings.Join(fields, ", ")
}

// compile-time check to ensure CsvLoader implements the Loader interface
var _ interfaces.Loader = (*CsvLoader)(nil)
