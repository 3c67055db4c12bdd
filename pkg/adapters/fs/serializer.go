package fs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/speeza/pkg/core"
	"gopkg.in/yaml.v3"
)

// contentKey holds the document body in flat JSON and YAML files.
const contentKey = "content"

// Serializer converts between file bytes and a Document.
type Serializer interface {
	Parse(r io.Reader) (*core.Document, error)
	Serialize(doc core.Document) ([]byte, error)
}

// DefaultSerializers returns the formats a vault understands, keyed by
// extension. With strict set, numbers are kept as json.Number.
func DefaultSerializers(strict bool) map[string]Serializer {
	yml := YAMLSerializer{Strict: strict}
	return map[string]Serializer{
		".json": JSONSerializer{Strict: strict},
		".yaml": yml,
		".yml":  yml,
		".md":   MarkdownSerializer{Strict: strict},
	}
}

// JSONSerializer stores metadata as top-level keys and the body under "content".
type JSONSerializer struct {
	Strict bool
}

func (s JSONSerializer) Parse(r io.Reader) (*core.Document, error) {
	dec := json.NewDecoder(r)
	if s.Strict {
		dec.UseNumber()
	}
	var payload map[string]any
	if err := dec.Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid json: %w", err)
	}
	return fromFlat(payload, s.Strict), nil
}

func (s JSONSerializer) Serialize(doc core.Document) ([]byte, error) {
	return json.MarshalIndent(toFlat(doc), "", "  ")
}

// YAMLSerializer is the YAML form of JSONSerializer. Groups and language
// preferences default to it.
type YAMLSerializer struct {
	Strict bool
}

func (s YAMLSerializer) Parse(r io.Reader) (*core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	payload, err := decodeYAMLMap(data)
	if err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}
	return fromFlat(payload, s.Strict), nil
}

func (s YAMLSerializer) Serialize(doc core.Document) ([]byte, error) {
	return yaml.Marshal(toFlat(doc))
}

// MarkdownSerializer keeps metadata in a YAML frontmatter block and the body
// verbatim after it. Notes default to it so that a vault stays readable in
// any editor.
type MarkdownSerializer struct {
	Strict bool
}

func (s MarkdownSerializer) Parse(r io.Reader) (*core.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		return &core.Document{Metadata: core.Metadata{}, Content: string(data)}, nil
	}

	header, body, ok := splitFrontmatter(data)
	if !ok {
		return nil, errors.New("frontmatter started but no closing delimiter found")
	}
	meta, err := decodeYAMLMap(header)
	if err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return &core.Document{
		Metadata: normalizeMap(meta, s.Strict),
		Content:  string(body),
	}, nil
}

func (s MarkdownSerializer) Serialize(doc core.Document) ([]byte, error) {
	var buf bytes.Buffer
	// Content that itself opens with a delimiter needs an explicit header.
	if len(doc.Metadata) > 0 || strings.HasPrefix(doc.Content, "---") {
		meta := map[string]any(doc.Metadata)
		if meta == nil {
			meta = map[string]any{}
		}
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(meta); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		buf.WriteString("---\n")
	}
	buf.WriteString(doc.Content)
	return buf.Bytes(), nil
}

func fromFlat(payload map[string]any, strict bool) *core.Document {
	doc := &core.Document{Metadata: core.Metadata{}}
	for k, v := range payload {
		if body, ok := v.(string); ok && k == contentKey {
			doc.Content = body
			continue
		}
		doc.Metadata[k] = normalize(v, strict)
	}
	return doc
}

func toFlat(doc core.Document) map[string]any {
	payload := make(map[string]any, len(doc.Metadata)+1)
	for k, v := range doc.Metadata {
		payload[k] = v
	}
	payload[contentKey] = doc.Content
	return payload
}

// decodeYAMLMap decodes a YAML mapping. Timestamps keep their source text:
// an unquoted "2024-05-01T10:00:00Z" reads back as the string it was written
// from, never as a time.Time.
func decodeYAMLMap(data []byte) (map[string]any, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if len(root.Content) == 0 {
		return map[string]any{}, nil
	}
	keepTimestampsAsText(&root)

	var out map[string]any
	if err := root.Decode(&out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

func keepTimestampsAsText(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, child := range n.Content {
		keepTimestampsAsText(child)
	}
}

func normalizeMap(m map[string]any, strict bool) core.Metadata {
	out := make(core.Metadata, len(m))
	for k, v := range m {
		out[k] = normalize(v, strict)
	}
	return out
}

// normalize makes decoded values look the same whichever format they came
// from: nested maps are map[string]any and, in strict mode, numbers are
// json.Number as the strict JSON decoder yields them.
func normalize(v any, strict bool) any {
	switch val := v.(type) {
	case map[string]any:
		return map[string]any(normalizeMap(val, strict))
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[fmt.Sprint(k)] = normalize(item, strict)
		}
		return m
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item, strict)
		}
		return out
	}
	if !strict {
		return v
	}
	switch val := v.(type) {
	case int:
		return json.Number(strconv.Itoa(val))
	case int64:
		return json.Number(strconv.FormatInt(val, 10))
	case uint64:
		return json.Number(strconv.FormatUint(val, 10))
	case float64:
		return json.Number(strconv.FormatFloat(val, 'f', -1, 64))
	default:
		return v
	}
}

// splitFrontmatter separates the YAML header from the body. The closing
// delimiter must sit on its own line so that "---" inside values is kept.
func splitFrontmatter(data []byte) (header, body []byte, ok bool) {
	start := bytes.IndexByte(data, '\n') + 1
	rest := data[start:]
	for offset := 0; offset <= len(rest); {
		line := rest[offset:]
		end := bytes.IndexByte(line, '\n')
		if end < 0 {
			end = len(line)
		}
		if string(bytes.TrimRight(line[:end], "\r")) == "---" {
			body = line[end:]
			if len(body) > 0 {
				body = body[1:]
			}
			return rest[:offset], body, true
		}
		offset += end + 1
	}
	return nil, nil, false
}
