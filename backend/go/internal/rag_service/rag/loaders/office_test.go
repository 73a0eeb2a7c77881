package loaders

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"DocQA/backend/go/internal/rag_service/rag/capability"
	"DocQA/backend/go/internal/rag_service/rag/formats"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type part struct {
	name, body string
}

func zipParts(t *testing.T, parts ...part) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.Create(p.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(p.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const wordDoc = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Intro</w:t></w:r></w:p>
<w:p><w:pPr><w:rPr><w:b/></w:rPr></w:pPr><w:r><w:t xml:space="preserve">body </w:t></w:r><w:r><w:t>a</w:t></w:r></w:p>
<w:p><w:r><w:rPr><w:b/></w:rPr><w:t>Bold title</w:t></w:r></w:p>
<w:p><w:r><w:t>col</w:t><w:tab/><w:t>b</w:t></w:r></w:p>
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Age</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p/></w:tc><w:tc><w:p/></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Alice</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>30</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:rPr><w:b w:val="0"/></w:rPr><w:t>not bold</w:t></w:r></w:p>
<w:sectPr/>
</w:body></w:document>`

func docxFixture(t *testing.T) []byte {
	return zipParts(t,
		part{"[Content_Types].xml", `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		part{"word/document.xml", wordDoc},
	)
}

const (
	pmlOpen = `<p:sld xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" ` +
		`xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"><p:cSld><p:spTree>`
	pmlClose = `</p:spTree></p:cSld></p:sld>`
)

func pptxFixture(t *testing.T) []byte {
	title := `<p:sp><p:txBody><a:p><a:r><a:t>Quarterly </a:t></a:r><a:r><a:t>review</a:t></a:r><a:br/><a:r><a:t>2024</a:t></a:r></a:p></p:txBody></p:sp>`
	agenda := `<p:sp><p:txBody><a:p><a:r><a:t>Agenda</a:t></a:r></a:p><a:p/></p:txBody></p:sp>`
	group := `<p:grpSp><p:sp><p:txBody><a:p><a:r><a:t>Nested</a:t></a:r></a:p>` +
		`<a:p><a:fld id="{1}" type="slidenum"><a:t>3</a:t></a:fld></a:p></p:txBody></p:sp></p:grpSp>`

	return zipParts(t,
		part{"[Content_Types].xml", `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"/>`},
		part{"ppt/presentation.xml", `<p:presentation xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" ` +
			`xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><p:sldIdLst>` +
			`<p:sldId id="256" r:id="rId3"/><p:sldId id="257" r:id="rId2"/><p:sldId id="258" r:id="rId4"/>` +
			`</p:sldIdLst></p:presentation>`},
		part{"ppt/_rels/presentation.xml.rels", `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId2" Target="slides/slide1.xml"/>` +
			`<Relationship Id="rId3" Target="slides/slide2.xml"/>` +
			`<Relationship Id="rId4" Target="/ppt/slides/slide3.xml"/></Relationships>`},
		part{"ppt/slides/slide2.xml", pmlOpen + title + agenda + pmlClose},
		part{"ppt/slides/slide1.xml", pmlOpen + pmlClose},
		part{"ppt/slides/slide3.xml", pmlOpen + group + pmlClose},
	)
}

// pdfFixture writes a one-page PDF with a correct cross-reference table.
func pdfFixture(text string) []byte {
	content := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestExtract_Docx(t *testing.T) {
	r := newTestRegistry(t, capability.Options{})
	path := writeFile(t, "report.docx", docxFixture(t))

	ext, err := r.Extract(context.Background(), path, "report.docx")
	require.NoError(t, err)
	want := []string{
		"Section 1:\nIntro\nbody a",
		"Section 2:\nBold title\ncol\tb\nnot bold",
		"Table 1:\nName | Age\nAlice | 30",
	}
	if diff := cmp.Diff(want, ext.Segments); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_Pptx(t *testing.T) {
	r := newTestRegistry(t, capability.Options{})
	path := writeFile(t, "deck.pptx", pptxFixture(t))

	ext, err := r.Extract(context.Background(), path, "deck.pptx")
	require.NoError(t, err)
	want := []string{
		"Slide 1:\n\nQuarterly review\n2024\nAgenda",
		"Slide 3:\n\nNested\n3",
	}
	if diff := cmp.Diff(want, ext.Segments); diff != "" {
		t.Errorf("segments mismatch (-want +got):\n%s", diff)
	}
}

func TestReadPptxXML_NumberedFallback(t *testing.T) {
	text := func(s string) string {
		return pmlOpen + `<p:sp><p:txBody><a:p><a:r><a:t>` + s + `</a:t></a:r></a:p></p:txBody></p:sp>` + pmlClose
	}
	path := writeFile(t, "bare.pptx", zipParts(t,
		part{"ppt/slides/slide10.xml", text("ten")},
		part{"ppt/slides/slide2.xml", text("two")},
		part{"ppt/slides/slide1.xml", text("one")},
	))

	slides, err := readPptxXML(path)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"one"}, {"two"}, {"ten"}}, slides)
}

func TestReadDocxXML_MissingBody(t *testing.T) {
	path := writeFile(t, "empty.docx", zipParts(t, part{"[Content_Types].xml", "<Types/>"}))
	_, err := readDocxXML(path)
	assert.ErrorIs(t, err, errMissingPart)
}

func TestExtract_Pdf(t *testing.T) {
	r := newTestRegistry(t, capability.Options{})
	path := writeFile(t, "one.pdf", pdfFixture("Hello PDF"))

	ext, err := r.Extract(context.Background(), path, "one.pdf")
	require.NoError(t, err)
	require.Len(t, ext.Segments, 1)
	assert.Regexp(t, `^Page 1:\n`, ext.Segments[0])
	assert.Contains(t, ext.Segments[0], "Hello PDF")
}

// Every supported format yields at least one non-empty segment under the default capabilities.
func TestExtract_EverySupportedFormat(t *testing.T) {
	xlsx := func() []byte {
		f := excelize.NewFile()
		defer f.Close()
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "cell"))
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)
		return buf.Bytes()
	}

	samples := map[string][]byte{
		"pdf":  pdfFixture("page text"),
		"docx": docxFixture(t),
		"pptx": pptxFixture(t),
		"xlsx": xlsx(),
		"rtf":  []byte(`{\rtf1\ansi Hello}`),
		"txt":  []byte("hello"),
		"md":   []byte("# Title\n"),
		"html": []byte("<p>hello</p>"),
		"htm":  []byte("<p>hello</p>"),
		"xml":  []byte("<a>hello</a>"),
		"csv":  []byte("h\n1\n"),
		"json": []byte(`{"a":1}`),
		"yaml": []byte("a: 1\n"),
		"yml":  []byte("a: 1\n"),
	}

	r := newTestRegistry(t, capability.Options{})
	for _, ext := range formats.SupportedExtensions() {
		t.Run(ext, func(t *testing.T) {
			content, ok := samples[ext]
			if !ok {
				d, _ := formats.Lookup(ext)
				require.Equal(t, formats.KindCode, d.Kind, "no sample for .%s", ext)
				content = []byte("x = 1\n")
			}
			name := "sample." + ext
			got, err := r.Extract(context.Background(), writeFile(t, name, content), name)
			require.NoError(t, err)
			require.NotEmpty(t, got.Segments)
			for _, s := range got.Segments {
				assert.NotEmpty(t, s)
			}
		})
	}
}
