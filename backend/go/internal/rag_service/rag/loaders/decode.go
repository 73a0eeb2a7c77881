package loaders

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DefaultSniffBytes is how much of a file the charset detector looks at.
const DefaultSniffBytes = 10000

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// fallbackLadder is tried in order after the detected charset.
var fallbackLadder = []struct {
	name string
	enc  encoding.Encoding
}{
	{"utf-8", nil},
	{"windows-1252", charmap.Windows1252},
	{"iso-8859-1", charmap.ISO8859_1},
}

// TextDecoder turns raw file bytes into UTF-8 text.
type TextDecoder struct {
	sniffBytes int
	// detect reports whether statistical charset detection may be used.
	detect func() bool
}

// NewTextDecoder creates a decoder. A nil detect func means detection is always on.
func NewTextDecoder(sniffBytes int, detect func() bool) *TextDecoder {
	if sniffBytes <= 0 {
		sniffBytes = DefaultSniffBytes
	}
	if detect == nil {
		detect = func() bool { return true }
	}
	return &TextDecoder{sniffBytes: sniffBytes, detect: detect}
}

// Decode returns data as UTF-8 along with the name of the encoding that was used.
// It never fails: bytes that no candidate encoding accepts are dropped.
func (d *TextDecoder) Decode(data []byte) (string, string) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return strings.ToValidUTF8(string(data[len(bomUTF8):]), ""), "utf-8"
	case bytes.HasPrefix(data, bomUTF16LE), bytes.HasPrefix(data, bomUTF16BE):
		enc := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
		if s, ok := decodeStrict(enc, data); ok {
			return s, "utf-16"
		}
	}

	// Valid UTF-8 is never reinterpreted as a single-byte code page.
	if utf8.Valid(data) {
		return string(data), "utf-8"
	}

	if d.detect() {
		if enc, name, ok := d.sniff(data); ok {
			if s, ok := decodeStrict(enc, data); ok {
				return s, name
			}
		}
	}

	for _, rung := range fallbackLadder {
		if s, ok := decodeStrict(rung.enc, data); ok {
			return s, rung.name
		}
	}
	return strings.ToValidUTF8(string(data), ""), "utf-8"
}

// sniff runs chardet over a bounded prefix and resolves the result to an encoding.
func (d *TextDecoder) sniff(data []byte) (encoding.Encoding, string, bool) {
	head := data
	if len(head) > d.sniffBytes {
		head = head[:d.sniffBytes]
	}
	res, err := chardet.NewTextDetector().DetectBest(head)
	if err != nil || res == nil || res.Charset == "" {
		return nil, "", false
	}
	enc, name := charset.Lookup(res.Charset)
	if enc == nil {
		return nil, "", false
	}
	return enc, name, true
}

// decodeStrict decodes data with enc and reports false if any byte could not be mapped.
// A nil enc means UTF-8.
func decodeStrict(enc encoding.Encoding, data []byte) (string, bool) {
	if enc == nil || enc == encoding.Nop || enc == unicode.UTF8 {
		if !utf8.Valid(data) {
			return "", false
		}
		return string(data), true
	}
	out, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", false
	}
	return string(out), true
}
