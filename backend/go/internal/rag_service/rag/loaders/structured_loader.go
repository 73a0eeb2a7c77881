package loaders

import (
	"DocQA/backend/go/internal/rag_service/rag/interfaces"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

const flattenIndent = "  "

// JSONLoader flattens a JSON document into indented "key: value" lines, in document order.
type JSONLoader struct {
	decoder *TextDecoder
}

// NewJSONLoader creates a new JSONLoader.
func NewJSONLoader(decoder *TextDecoder) *JSONLoader {
	return &JSONLoader{decoder: decoder}
}

// Load returns the flattened document as a single segment.
func (l *JSONLoader) Load(ctx context.Context, path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, _ := l.decoder.Decode(raw)
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if !gjson.Valid(text) {
		return nil, errors.New("invalid JSON")
	}

	var lines []string
	flattenJSON(gjson.Parse(text), "", &lines)
	return joinedSegment(lines), nil
}

func flattenJSON(v gjson.Result, prefix string, out *[]string) {
	switch {
	case v.IsObject():
		v.ForEach(func(key, value gjson.Result) bool {
			if value.IsObject() || value.IsArray() {
				*out = append(*out, fmt.Sprintf("%s%s:", prefix, key.String()))
				flattenJSON(value, prefix+flattenIndent, out)
			} else {
				*out = append(*out, fmt.Sprintf("%s%s: %s", prefix, key.String(), jsonScalar(value)))
			}
			return true
		})
	case v.IsArray():
		i := 0
		v.ForEach(func(_, value gjson.Result) bool {
			if value.IsObject() || value.IsArray() {
				*out = append(*out, fmt.Sprintf("%s[%d]:", prefix, i))
				flattenJSON(value, prefix+flattenIndent, out)
			} else {
				*out = append(*out, fmt.Sprintf("%s[%d]: %s", prefix, i, jsonScalar(value)))
			}
			i++
			return true
		})
	default:
		*out = append(*out, prefix+jsonScalar(v))
	}
}

func jsonScalar(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.String()
	}
	return v.Raw
}

// YAMLLoader flattens every YAML document in a file the same way JSONLoader does.
type YAMLLoader struct {
	decoder *TextDecoder
}

// NewYAMLLoader creates a new YAMLLoader.
func NewYAMLLoader(decoder *TextDecoder) *YAMLLoader {
	return &YAMLLoader{decoder: decoder}
}

// Load returns the flattened documents as a single segment.
func (l *YAMLLoader) Load(ctx context.Context, path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, _ := l.decoder.Decode(raw)

	var lines []string
	dec := yaml.NewDecoder(strings.NewReader(text))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		for _, n := range doc.Content {
			flattenYAML(n, "", &lines)
		}
	}
	return joinedSegment(lines), nil
}

func flattenYAML(n *yaml.Node, prefix string, out *[]string) {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	switch n.Kind {
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key, value := n.Content[i].Value, n.Content[i+1]
			if isYAMLCollection(value) {
				*out = append(*out, fmt.Sprintf("%s%s:", prefix, key))
				flattenYAML(value, prefix+flattenIndent, out)
			} else {
				*out = append(*out, fmt.Sprintf("%s%s: %s", prefix, key, yamlScalar(value)))
			}
		}
	case yaml.SequenceNode:
		for i, item := range n.Content {
			if isYAMLCollection(item) {
				*out = append(*out, fmt.Sprintf("%s[%d]:", prefix, i))
				flattenYAML(item, prefix+flattenIndent, out)
			} else {
				*out = append(*out, fmt.Sprintf("%s[%d]: %s", prefix, i, yamlScalar(item)))
			}
		}
	case yaml.ScalarNode:
		if n.Value != "" {
			*out = append(*out, prefix+n.Value)
		}
	}
}

func isYAMLCollection(n *yaml.Node) bool {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n.Kind == yaml.MappingNode || n.Kind == yaml.SequenceNode
}

func yamlScalar(n *yaml.Node) string {
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Tag == "!!null" {
		return "null"
	}
	return n.Value
}

func joinedSegment(lines []string) []string {
	text := strings.Join(lines, "\n")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return []string{text}
}

var (
	_ interfaces.Loader = (*JSONLoader)(nil)
	_ interfaces.Loader = (*YAMLLoader)(nil)
)
