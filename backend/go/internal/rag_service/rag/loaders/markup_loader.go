package loaders

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"
)

// skippedElements hold no visible content.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// HtmlLoader implements the Loader interface for HTML files.
type HtmlLoader struct {
	decoder *TextDecoder
}

// NewHtmlLoader creates a new HtmlLoader.
func NewHtmlLoader(decoder *TextDecoder) *HtmlLoader {
	return &HtmlLoader{decoder: decoder}
}

// Load returns the visible text of the page as a single segment.
func (l *HtmlLoader) Load(ctx context.Context, path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, _ := l.decoder.Decode(raw)

	visible, err := extractText(strings.NewReader(text))
	if err != nil {
		return nil, err
	}
	return joinedSegment([]string{visible}), nil
}

// blockElements end the current line of text.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true, "dd": true,
	"div": true, "dl": true, "dt": true, "figcaption": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "header": true,
	"hr": true, "li": true, "main": true, "nav": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "td": true, "th": true, "title": true, "tr": true, "ul": true,
}

// extractText tokenizes an HTML document and returns its human-readable text,
// one whitespace-collapsed line per block element.
func extractText(body io.Reader) (string, error) {
	z := html.NewTokenizer(body)
	var (
		lines []string
		line  strings.Builder
		skip  int
	)
	flush := func() {
		if text := collapseSpace(line.String()); text != "" {
			lines = append(lines, text)
		}
		line.Reset()
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				flush()
				return strings.Join(lines, "\n"), nil
			}
			return "", z.Err()
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			tn, _ := z.TagName()
			tag := string(tn)
			if skippedElements[tag] {
				switch {
				case tt == html.StartTagToken:
					skip++
				case tt == html.EndTagToken && skip > 0:
					skip--
				}
				continue
			}
			if blockElements[tag] {
				flush()
			}
		case html.TextToken:
			if skip == 0 {
				line.Write(z.Text())
			}
		}
	}
}

// XmlLoader returns the character data of every element.
type XmlLoader struct {
	decoder *TextDecoder
}

// NewXmlLoader creates a new XmlLoader.
func NewXmlLoader(decoder *TextDecoder) *XmlLoader {
	return &XmlLoader{decoder: decoder}
}

// Load returns one line per non-blank character-data run as a single segment.
func (l *XmlLoader) Load(ctx context.Context, path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, _ := l.decoder.Decode(raw)

	d := xml.NewDecoder(strings.NewReader(text))
	// text is already UTF-8 whatever the prolog declares
	d.CharsetReader = func(_ string, in io.Reader) (io.Reader, error) { return in, nil }

	var lines []string
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if cd, ok := tok.(xml.CharData); ok {
			if s := collapseSpace(string(cd)); s != "" {
				lines = append(lines, s)
			}
		}
	}
	return joinedSegment(lines), nil
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var (
	_ interfaces.Loader = (*HtmlLoader)(nil)
	_ interfaces.Loader = (*XmlLoader)(nil)
)
