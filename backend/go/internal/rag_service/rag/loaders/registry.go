package loaders

import (
	"DocQA/backend/go/internal/rag_service/rag/capability"
	"DocQA/backend/go/internal/rag_service/rag/formats"
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"DocQA/backend/go/pkg/logger"
)

// headBytes is how much of a file feeds MIME detection.
const headBytes = 3072

// Options tunes the extractors.
type Options struct {
	CSVBatchRows     int
	SniffBytes       int
	DocxSectionChars int
}

// Extraction is the result of a successful Extract call.
type Extraction struct {
	Format   formats.Classification
	Segments []string
}

// Registry resolves a format to its loader and runs it behind the shared preconditions.
type Registry struct {
	caps    *capability.Registry
	loaders map[string]interfaces.Loader
	log     *logger.Logger
}

// NewRegistry wires one loader per supported extension.
func NewRegistry(caps *capability.Registry, opts Options, log *logger.Logger) *Registry {
	decoder := NewTextDecoder(opts.SniffBytes, func() bool {
		return caps.Available(capability.CharsetDetection)
	})

	r := &Registry{
		caps:    caps,
		loaders: make(map[string]interfaces.Loader),
		log:     log,
	}

	r.loaders["pdf"] = NewPdfLoader()
	// 有 unioffice 许可证时走 SDK，否则直接解析 OOXML
	useSDK := func() bool { return caps.Available(capability.OfficeSDK) }
	r.loaders["docx"] = NewDocxLoader(opts.DocxSectionChars, useSDK)
	r.loaders["pptx"] = NewPptxLoader(useSDK)
	r.loaders["xlsx"] = NewXlsxLoader()
	r.loaders["rtf"] = NewRtfLoader()
	r.loaders["txt"] = NewTxtLoader(decoder)
	r.loaders["md"] = NewMarkdownLoader(decoder)
	r.loaders["html"] = NewHtmlLoader(decoder)
	r.loaders["htm"] = r.loaders["html"]
	r.loaders["xml"] = NewXmlLoader(decoder)
	r.loaders["csv"] = NewCsvLoader(decoder, opts.CSVBatchRows)
	r.loaders["json"] = NewJSONLoader(decoder)
	r.loaders["yaml"] = NewYAMLLoader(decoder)
	r.loaders["yml"] = r.loaders["yaml"]

	for _, ext := range formats.SupportedExtensions() {
		d, _ := formats.Lookup(ext)
		if d.Kind == formats.KindCode {
			r.loaders[ext] = NewCodeLoader(decoder, d.Description)
		}
	}
	return r
}

// Extract classifies fileName, checks that path exists and is non-empty, confirms the
// format's capability is available and runs the matching loader. Every failure except
// context cancellation is a *ragerr.Error.
func (r *Registry) Extract(ctx context.Context, path, fileName string) (*Extraction, error) {
	c, err := formats.Classify(fileName, nil)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ragerr.Wrap(ragerr.NotFound, err, "file %q was not found", fileName)
		}
		return nil, ragerr.Wrap(ragerr.NotFound, err, "file %q could not be opened", fileName)
	}
	if info.IsDir() {
		return nil, ragerr.New(ragerr.NotFound, "%q is a directory, not a file", fileName)
	}
	if info.Size() == 0 {
		return nil, ragerr.New(ragerr.EmptyInput, "file %q is empty", fileName)
	}

	c.MIMEType = sniffMIME(path)
	log := r.log.WithFields(map[string]interface{}{
		"file_name": fileName,
		"format":    c.Ext,
		"mime_type": c.MIMEType,
	})

	if !r.caps.Available(c.Capability) {
		reason := "not available"
		if st, ok := r.caps.Get(c.Capability); ok && st.Reason != "" {
			reason = st.Reason
		}
		log.Warn(fmt.Sprintf("Capability %s unavailable: %s", c.Capability, reason))
		return nil, ragerr.New(ragerr.CapabilityUnavailable,
			"%s support is not available on this server (%s)", c.Description, reason).
			With("capability", string(c.Capability))
	}

	loader, ok := r.loaders[c.Ext]
	if !ok {
		return nil, ragerr.New(ragerr.CapabilityUnavailable, "no extractor is registered for .%s files", c.Ext).
			With("capability", string(c.Capability))
	}

	log.Info("Extracting text")
	segments, err := loader.Load(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if _, ok := ragerr.As(err); ok {
			return nil, err
		}
		log.WithErr(err).Error("Extraction failed")
		return nil, ragerr.Wrap(ragerr.DecodeFailure, err, "%s", decodeMessage(c))
	}

	kept := segments[:0]
	for _, s := range segments {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, ragerr.New(ragerr.EmptyExtraction, "%s", emptyMessage(c))
	}

	log.Info(fmt.Sprintf("Extracted %d segments", len(kept)))
	return &Extraction{Format: c, Segments: kept}, nil
}

func sniffMIME(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	head := make([]byte, headBytes)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return ""
	}
	return formats.DetectMIME(head[:n])
}

func decodeMessage(c formats.Classification) string {
	switch c.Kind {
	case formats.KindPaginated:
		return fmt.Sprintf("The %s file could not be read. It may be corrupted or password protected; try re-saving it and uploading again.", c.Description)
	case formats.KindStructured, formats.KindTabular:
		return fmt.Sprintf("The file is not valid %s. Check its syntax and upload it again.", strings.TrimSuffix(c.Description, " files"))
	default:
		return fmt.Sprintf("The %s file could not be decoded. Check that it is not corrupted.", c.Description)
	}
}

func emptyMessage(c formats.Classification) string {
	if c.Ext == "pdf" {
		return "No text could be extracted from the PDF. It may contain only scanned images; run OCR on it first."
	}
	return fmt.Sprintf("No text could be extracted from the %s file. It may be empty or contain only images.", c.Description)
}
