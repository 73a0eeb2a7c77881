package loaders

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// maxPartBytes caps a single decompressed OOXML part.
const maxPartBytes = 64 << 20

const (
	wordNS       = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	wordStrictNS = "http://purl.oclc.org/ooxml/wordprocessingml/main"
	drawingNS    = "http://schemas.openxmlformats.org/drawingml/2006/main"
)

var errMissingPart = errors.New("ooxml part missing")

// ooxmlPackage is an opened OOXML zip archive, indexed by part name.
type ooxmlPackage struct {
	zr    *zip.ReadCloser
	parts map[string]*zip.File
}

func openOOXML(name string) (*ooxmlPackage, error) {
	zr, err := zip.OpenReader(name)
	if err != nil {
		return nil, err
	}
	pkg := &ooxmlPackage{zr: zr, parts: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		pkg.parts[strings.TrimPrefix(f.Name, "/")] = f
	}
	return pkg, nil
}

func (p *ooxmlPackage) Close() error {
	return p.zr.Close()
}

func (p *ooxmlPackage) has(name string) bool {
	_, ok := p.parts[name]
	return ok
}

func (p *ooxmlPackage) read(name string) ([]byte, error) {
	f, ok := p.parts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMissingPart, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxPartBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxPartBytes {
		return nil, fmt.Errorf("part %s is larger than %d bytes", name, maxPartBytes)
	}
	return data, nil
}

func newPartDecoder(data []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }
	return d
}

// readDocxXML reads word/document.xml directly. Body paragraphs and top-level tables are kept;
// drawings and text boxes are skipped.
func readDocxXML(name string) (*docxContent, error) {
	pkg, err := openOOXML(name)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	data, err := pkg.read("word/document.xml")
	if err != nil {
		return nil, err
	}
	return parseDocumentXML(data)
}

func isWord(n xml.Name) bool {
	return n.Space == wordNS || n.Space == wordStrictNS
}

func parseDocumentXML(data []byte) (*docxContent, error) {
	var (
		content  = &docxContent{}
		d        = newPartDecoder(data)
		tblDepth int
		table    [][]string
		row      []string
		cell     []string

		para    strings.Builder
		style   string
		runs    int
		allBold bool
		run     strings.Builder
		inRun   bool
		inRunPr bool
		runBold bool
	)

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !isWord(t.Name) {
				if t.Name.Local == "AlternateContent" {
					if err := d.Skip(); err != nil {
						return nil, err
					}
				}
				continue
			}
			switch t.Name.Local {
			case "drawing", "pict", "txbxContent":
				if err := d.Skip(); err != nil {
					return nil, err
				}
			case "tbl":
				tblDepth++
				if tblDepth == 1 {
					table = nil
				}
			case "tr":
				if tblDepth == 1 {
					row = nil
				}
			case "tc":
				if tblDepth == 1 {
					cell = nil
				}
			case "p":
				para.Reset()
				style, runs, allBold = "", 0, true
			case "pStyle":
				style = attrValue(t)
			case "r":
				run.Reset()
				inRun, runBold = true, false
			case "rPr":
				inRunPr = inRun
			case "b":
				if inRunPr {
					runBold = isOn(attrValue(t))
				}
			case "t":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return nil, err
				}
				if inRun {
					run.WriteString(s)
				}
			case "tab":
				if inRun {
					run.WriteString("\t")
				}
			case "br", "cr":
				if inRun {
					run.WriteString("\n")
				}
			}

		case xml.EndElement:
			if !isWord(t.Name) {
				continue
			}
			switch t.Name.Local {
			case "rPr":
				inRunPr = false
			case "r":
				txt := run.String()
				para.WriteString(txt)
				runs++
				if strings.TrimSpace(txt) != "" && !runBold {
					allBold = false
				}
				inRun = false
			case "p":
				p := docxParagraph{
					text:    para.String(),
					heading: isHeadingStyle(style),
					bold:    runs > 0 && allBold,
				}
				if tblDepth == 0 {
					content.paras = append(content.paras, p)
				} else if txt := strings.TrimSpace(p.text); txt != "" {
					cell = append(cell, txt)
				}
			case "tc":
				if tblDepth == 1 {
					row = append(row, strings.Join(cell, " "))
				}
			case "tr":
				if tblDepth == 1 {
					table = append(table, row)
				}
			case "tbl":
				if tblDepth == 1 {
					content.tables = append(content.tables, table)
				}
				tblDepth--
			}
		}
	}
	return content, nil
}

func attrValue(se xml.StartElement) string {
	for _, a := range se.Attr {
		if a.Name.Local == "val" {
			return a.Value
		}
	}
	return ""
}

// isOn reads an OOXML on/off attribute; a missing value means on.
func isOn(v string) bool {
	switch strings.ToLower(v) {
	case "0", "false", "off":
		return false
	}
	return true
}

type presentationXML struct {
	Slides []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// readPptxXML returns the text lines of every slide in presentation order.
func readPptxXML(name string) ([][]string, error) {
	pkg, err := openOOXML(name)
	if err != nil {
		return nil, err
	}
	defer pkg.Close()

	parts, err := slideParts(pkg)
	if err != nil {
		return nil, err
	}

	slides := make([][]string, 0, len(parts))
	for _, part := range parts {
		data, err := pkg.read(part)
		if err != nil {
			return nil, err
		}
		lines, err := parseSlideXML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", part, err)
		}
		slides = append(slides, lines)
	}
	return slides, nil
}

// slideParts resolves the slide order from presentation.xml and its relationships,
// falling back to the slide file numbers when either part is absent.
func slideParts(pkg *ooxmlPackage) ([]string, error) {
	const presPart, relsPart = "ppt/presentation.xml", "ppt/_rels/presentation.xml.rels"
	if !pkg.has(presPart) || !pkg.has(relsPart) {
		return numberedSlideParts(pkg), nil
	}

	var pres presentationXML
	data, err := pkg.read(presPart)
	if err != nil {
		return nil, err
	}
	if err := newPartDecoder(data).Decode(&pres); err != nil {
		return nil, fmt.Errorf("%s: %w", presPart, err)
	}

	var rels relationshipsXML
	if data, err = pkg.read(relsPart); err != nil {
		return nil, err
	}
	if err := newPartDecoder(data).Decode(&rels); err != nil {
		return nil, fmt.Errorf("%s: %w", relsPart, err)
	}
	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		if strings.HasPrefix(r.Target, "/") {
			targets[r.ID] = strings.TrimPrefix(r.Target, "/")
		} else {
			targets[r.ID] = path.Join("ppt", r.Target)
		}
	}

	parts := make([]string, 0, len(pres.Slides))
	for _, s := range pres.Slides {
		target, ok := targets[s.RID]
		if !ok {
			return nil, fmt.Errorf("%w: relationship %s", errMissingPart, s.RID)
		}
		parts = append(parts, target)
	}
	return parts, nil
}

func numberedSlideParts(pkg *ooxmlPackage) []string {
	type numbered struct {
		n    int
		name string
	}
	var found []numbered
	for name := range pkg.parts {
		if m := slidePart.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			found = append(found, numbered{n: n, name: name})
		}
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })

	parts := make([]string, len(found))
	for i, f := range found {
		parts[i] = f.name
	}
	return parts
}

// parseSlideXML returns one line per non-blank DrawingML paragraph.
func parseSlideXML(data []byte) ([]string, error) {
	var (
		d     = newPartDecoder(data)
		lines []string
		line  strings.Builder
	)
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Space != drawingNS {
				continue
			}
			switch t.Name.Local {
			case "p":
				line.Reset()
			case "t":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return nil, err
				}
				line.WriteString(s)
			case "br":
				line.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Space == drawingNS && t.Name.Local == "p" {
				if s := strings.TrimSpace(line.String()); s != "" {
					lines = append(lines, s)
				}
			}
		}
	}
}
