package loaders

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"context"
	"errors"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// rtfSkippedDestinations never contain body text.
var rtfSkippedDestinations = map[string]bool{
	"fonttbl": true, "colortbl": true, "stylesheet": true, "info": true, "pict": true,
	"object": true, "listtable": true, "listoverridetable": true, "rsidtbl": true,
	"generator": true, "themedata": true, "colorschememapping": true, "latentstyles": true,
	"datastore": true, "xmlnstbl": true, "filetbl": true, "revtbl": true,
	"header": true, "footer": true, "headerl": true, "headerr": true, "footerl": true, "footerr": true,
}

// RtfLoader strips RTF control words and groups, keeping the body text.
type RtfLoader struct{}

// NewRtfLoader creates a new RtfLoader.
func NewRtfLoader() *RtfLoader {
	return &RtfLoader{}
}

// Load returns the document text as a single segment.
func (l *RtfLoader) Load(ctx context.Context, path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.TrimSpace(string(raw[:min(len(raw), 16)])), `{\rtf`) {
		return nil, errors.New("missing {\\rtf header")
	}

	text := stripRTF(string(raw))

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return joinedSegment(lines), nil
}

// stripRTF converts RTF markup to plain text. Hex escapes are read as Windows-1252.
func stripRTF(src string) string {
	type group struct {
		skip       bool
		ignorable  bool
		unicodeSkp int
	}
	var (
		out   strings.Builder
		stack = []group{{unicodeSkp: 1}}
		// pending counts fallback characters to drop after a \uN escape
		pending int
	)
	cur := func() *group { return &stack[len(stack)-1] }
	emit := func(s string) {
		if pending > 0 {
			pending--
			return
		}
		if !cur().skip {
			out.WriteString(s)
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '{':
			g := *cur()
			g.ignorable = false
			stack = append(stack, g)
		case '}':
			if len(stack) > 1 {
				stack = stack[:len(stack)-1]
			}
		case '\r', '\n':
		case '\\':
			if i+1 >= len(src) {
				break
			}
			next := src[i+1]
			switch {
			case next == '\\' || next == '{' || next == '}':
				emit(string(next))
				i++
			case next == '~':
				emit(" ")
				i++
			case next == '_':
				emit("-")
				i++
			case next == '-':
				i++
			case next == '*':
				cur().ignorable = true
				i++
			case next == '\'':
				if i+3 < len(src) {
					if b, err := strconv.ParseUint(src[i+2:i+4], 16, 8); err == nil {
						emit(string(charmap.Windows1252.DecodeByte(byte(b))))
					}
				}
				i += 3
			case isASCIILetter(next):
				j := i + 1
				for j < len(src) && isASCIILetter(src[j]) {
					j++
				}
				word := src[i+1 : j]
				k := j
				if k < len(src) && (src[k] == '-' || isASCIIDigit(src[k])) {
					k++
					for k < len(src) && isASCIIDigit(src[k]) {
						k++
					}
				}
				param, hasParam := 0, k > j
				if hasParam {
					param, _ = strconv.Atoi(src[j:k])
				}
				if k < len(src) && src[k] == ' ' {
					k++
				}
				i = k - 1

				g := cur()
				if g.ignorable || rtfSkippedDestinations[word] {
					g.skip = true
					continue
				}
				switch word {
				case "par", "line", "sect", "page", "row":
					emit("\n")
				case "tab", "cell":
					emit("\t")
				case "emdash":
					emit("\u2014")
				case "endash":
					emit("\u2013")
				case "bullet":
					emit("\u2022")
				case "lquote", "rquote":
					emit("'")
				case "ldblquote", "rdblquote":
					emit("\"")
				case "uc":
					if hasParam {
						g.unicodeSkp = param
					}
				case "u":
					if hasParam {
						if param < 0 {
							param += 65536
						}
						emit(string(rune(param)))
						pending = g.unicodeSkp
					}
				}
			default:
				i++
			}
		default:
			emit(string(c))
		}
	}
	return out.String()
}

func isASCIILetter(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isASCIIDigit(c byte) bool  { return c >= '0' && c <= '9' }

// compile-time check to ensure RtfLoader implements the Loader interface
var _ interfaces.Loader = (*RtfLoader)(nil)
