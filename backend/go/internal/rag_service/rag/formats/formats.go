// Package formats maps file names to the format identifiers the loaders understand.
package formats

import (
	"path/filepath"
	"sort"
	"strings"

	"DocQA/backend/go/internal/rag_service/rag/capability"
	"DocQA/backend/go/internal/rag_service/rag/ragerr"

	"github.com/gabriel-vasile/mimetype"
)

// Kind groups formats that share an extraction policy.
type Kind string

const (
	KindPaginated  Kind = "paginated"
	KindStructured Kind = "structured"
	KindTabular    Kind = "tabular"
	KindMarkup     Kind = "markup"
	KindText       Kind = "text"
	KindCode       Kind = "code"
)

// Descriptor describes one supported extension.
type Descriptor struct {
	Ext         string          `json:"ext"`
	Description string          `json:"description"`
	Kind        Kind            `json:"kind"`
	Capability  capability.Name `json:"capability"`
}

// Classification is the result of Classify.
type Classification struct {
	Descriptor
	// MIMEType is detected from content for diagnostics only.
	MIMEType string `json:"mime_type,omitempty"`
}

var supported = map[string]Descriptor{
	"pdf":  {Description: "PDF documents", Kind: KindPaginated, Capability: capability.PDF},
	"docx": {Description: "Word documents", Kind: KindPaginated, Capability: capability.Office},
	"pptx": {Description: "PowerPoint presentations", Kind: KindPaginated, Capability: capability.Office},
	"xlsx": {Description: "Excel spreadsheets", Kind: KindPaginated, Capability: capability.Spreadsheet},
	"rtf":  {Description: "Rich Text Format", Kind: KindText, Capability: capability.RTF},
	"txt":  {Description: "Plain text files", Kind: KindText, Capability: capability.Text},
	"md":   {Description: "Markdown files", Kind: KindMarkup, Capability: capability.Markdown},
	"html": {Description: "HTML files", Kind: KindMarkup, Capability: capability.HTML},
	"htm":  {Description: "HTML files", Kind: KindMarkup, Capability: capability.HTML},
	"xml":  {Description: "XML files", Kind: KindMarkup, Capability: capability.XML},
	"csv":  {Description: "CSV files", Kind: KindTabular, Capability: capability.CSV},
	"json": {Description: "JSON files", Kind: KindStructured, Capability: capability.JSON},
	"yaml": {Description: "YAML files", Kind: KindStructured, Capability: capability.YAML},
	"yml":  {Description: "YAML files", Kind: KindStructured, Capability: capability.YAML},
	"sol":  {Description: "Solidity smart contracts", Kind: KindCode, Capability: capability.Text},
	"js":   {Description: "JavaScript files", Kind: KindCode, Capability: capability.Text},
	"ts":   {Description: "TypeScript files", Kind: KindCode, Capability: capability.Text},
	"py":   {Description: "Python files", Kind: KindCode, Capability: capability.Text},
	"rs":   {Description: "Rust files", Kind: KindCode, Capability: capability.Text},
	"go":   {Description: "Go files", Kind: KindCode, Capability: capability.Text},
	"css":  {Description: "CSS files", Kind: KindCode, Capability: capability.Text},
	"scss": {Description: "SCSS files", Kind: KindCode, Capability: capability.Text},
	"sass": {Description: "SASS files", Kind: KindCode, Capability: capability.Text},
	"less": {Description: "Less files", Kind: KindCode, Capability: capability.Text},
}

var legacy = map[string]string{
	"doc": "Legacy Word (.doc) files are not supported. Open the file in Word and use File > Save As > Word Document (.docx), then upload the .docx.",
	"xls": "Legacy Excel (.xls) files are not supported. Open the file in Excel and use File > Save As > Excel Workbook (.xlsx), then upload the .xlsx.",
	"ppt": "Legacy PowerPoint (.ppt) files are not supported. Open the file in PowerPoint and use File > Save As > PowerPoint Presentation (.pptx), then upload the .pptx.",
}

// Extension returns the lowercase extension token of name without the dot.
func Extension(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}

// Lookup returns the descriptor for an extension token.
func Lookup(ext string) (Descriptor, bool) {
	d, ok := supported[ext]
	if ok {
		d.Ext = ext
	}
	return d, ok
}

// Classify resolves fileName to a supported format. head is optional and only feeds MIME
// detection; the extension alone decides acceptance.
func Classify(fileName string, head []byte) (Classification, error) {
	ext := Extension(fileName)

	if guidance, ok := legacy[ext]; ok {
		return Classification{}, ragerr.New(ragerr.UnsupportedLegacyFormat, "%s", guidance).
			With("extension", ext)
	}

	d, ok := Lookup(ext)
	if !ok {
		exts := SupportedExtensions()
		return Classification{}, ragerr.New(ragerr.UnsupportedFormat,
			"unsupported file format %q; supported formats: %s", ext, strings.Join(exts, ", ")).
			With("extension", ext).
			With("supported", exts)
	}

	return Classification{Descriptor: d, MIMEType: DetectMIME(head)}, nil
}

// DetectMIME sniffs a MIME type from the leading bytes of a file. It returns "" for no input.
func DetectMIME(head []byte) string {
	if len(head) == 0 {
		return ""
	}
	return mimetype.Detect(head).String()
}

// SupportedExtensions returns every accepted extension token, sorted.
func SupportedExtensions() []string {
	out := make([]string, 0, len(supported))
	for ext := range supported {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Supported returns {extension: description} for every accepted format.
func Supported() map[string]string {
	out := make(map[string]string, len(supported))
	for ext, d := range supported {
		out[ext] = d.Description
	}
	return out
}

// Legacy returns {extension: guidance} for rejected legacy formats.
func Legacy() map[string]string {
	out := make(map[string]string, len(legacy))
	for ext, msg := range legacy {
		out[ext] = msg
	}
	return out
}

// Catalog is the format listing served to clients.
type Catalog struct {
	Supported map[string]string `json:"supported"`
	Legacy    map[string]string `json:"legacy"`
}

// GetCatalog returns both format maps.
func GetCatalog() Catalog {
	return Catalog{Supported: Supported(), Legacy: Legacy()}
}
