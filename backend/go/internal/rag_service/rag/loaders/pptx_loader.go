package loaders

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"context"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/v2/presentation"
	"github.com/unidoc/unioffice/v2/schema/soo/dml"
	"github.com/unidoc/unioffice/v2/schema/soo/pml"
)

// PptxLoader implements the Loader interface for PowerPoint (.pptx) files.
// It goes through unioffice when a licence is registered and reads the OOXML parts directly otherwise.
type PptxLoader struct {
	useSDK func() bool
}

// NewPptxLoader creates a new PptxLoader. A nil useSDK always selects the built-in reader.
func NewPptxLoader(useSDK func() bool) *PptxLoader {
	return &PptxLoader{useSDK: useSDK}
}

// Load returns one "Slide N:\n\n<text>" segment per slide that carries text.
func (l *PptxLoader) Load(ctx context.Context, path string) ([]string, error) {
	var (
		slides [][]string
		err    error
	)
	if l.useSDK != nil && l.useSDK() {
		slides, err = readPptxSDK(path)
	} else {
		slides, err = readPptxXML(path)
	}
	if err != nil {
		return nil, err
	}

	var segments []string
	for i, lines := range slides {
		if len(lines) == 0 {
			continue
		}
		segments = append(segments, fmt.Sprintf("Slide %d:\n\n%s", i+1, strings.Join(lines, "\n")))
	}
	return segments, nil
}

// readPptxSDK returns the text lines of every slide in presentation order.
func readPptxSDK(path string) ([][]string, error) {
	ppt, err := presentation.Open(path)
	if err != nil {
		return nil, err
	}
	defer ppt.Close()

	var slides [][]string
	for _, slide := range ppt.Slides() {
		var lines []string
		if x := slide.X(); x != nil && x.CSld != nil && x.CSld.SpTree != nil {
			collectShapeText(x.CSld.SpTree, &lines)
		}
		slides = append(slides, lines)
	}
	return slides, nil
}

// collectShapeText walks a shape tree depth-first, descending into group shapes.
func collectShapeText(tree *pml.CT_GroupShape, out *[]string) {
	for _, choice := range tree.GroupShapeChoice {
		if choice == nil {
			continue
		}
		if sp := choice.Sp; sp != nil && sp.TxBody != nil {
			*out = append(*out, textBodyLines(sp.TxBody)...)
		}
		if grp := choice.GrpSp; grp != nil {
			collectShapeText(grp, out)
		}
	}
}

func textBodyLines(body *dml.CT_TextBody) []string {
	var lines []string
	for _, p := range body.P {
		if p == nil {
			continue
		}
		var sb strings.Builder
		for _, run := range p.EG_TextRun {
			if run == nil || run.TextRunChoice == nil {
				continue
			}
			c := run.TextRunChoice
			switch {
			case c.R != nil:
				sb.WriteString(c.R.T)
			case c.Fld != nil && c.Fld.T != nil:
				sb.WriteString(*c.Fld.T)
			case c.Br != nil:
				sb.WriteString("\n")
			}
		}
		if line := strings.TrimSpace(sb.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// compile-time check to ensure PptxLoader implements the Loader interface
var _ interfaces.Loader = (*PptxLoader)(nil)
