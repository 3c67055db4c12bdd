package fs

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/speeza/pkg/core"
)

func TestSerializers(t *testing.T) {
	doc := core.Document{
		ID:      "notes/doc",
		Content: "Hello World",
		Metadata: core.Metadata{
			"title": "Test Title",
			"tags":  []interface{}{"a", "b"},
			"meta": map[string]interface{}{
				"foo": "bar",
			},
			"rate": 0.5,
		},
	}

	serializers := DefaultSerializers(false)

	for _, ext := range []string{".json", ".yaml", ".yml", ".md"} {
		t.Run(ext, func(t *testing.T) {
			s := serializers[ext]
			require.NotNil(t, s)

			data, err := s.Serialize(doc)
			require.NoError(t, err)

			parsed, err := s.Parse(bytes.NewReader(data))
			require.NoError(t, err)

			assert.Equal(t, doc.Content, parsed.Content)
			assert.Equal(t, "Test Title", parsed.Metadata["title"])
			assert.Equal(t, 0.5, parsed.Metadata["rate"])

			tags, ok := parsed.Metadata["tags"].([]interface{})
			require.True(t, ok, "tags type %T", parsed.Metadata["tags"])
			assert.Len(t, tags, 2)

			meta, ok := parsed.Metadata["meta"].(map[string]interface{})
			require.True(t, ok, "meta type %T", parsed.Metadata["meta"])
			assert.Equal(t, "bar", meta["foo"])
		})
	}
}

func TestSerializers_NoteFrontmatter(t *testing.T) {
	// A note as the library writes it: timestamps are RFC 3339 strings and
	// the group reference may be absent.
	note := core.Document{
		ID:      "notes/3f1c",
		Content: "Where is the station?",
		Metadata: core.Metadata{
			"title":      "Directions",
			"language":   "en-US",
			"voice":      "Alex",
			"rate":       0.5,
			"created_at": "2024-05-01T10:00:00Z",
			"updated_at": "2024-05-01T10:05:00.123456789Z",
		},
	}

	for _, ext := range []string{".json", ".yaml", ".md"} {
		t.Run(ext, func(t *testing.T) {
			s := DefaultSerializers(false)[ext]
			data, err := s.Serialize(note)
			require.NoError(t, err)

			parsed, err := s.Parse(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, note.Content, parsed.Content)
			assert.Equal(t, note.Metadata, parsed.Metadata)
		})
	}
}

func TestSerializers_Strict(t *testing.T) {
	doc := core.Document{Metadata: core.Metadata{
		"rate":  0.5,
		"count": 3,
		"nested": map[string]interface{}{
			"big": 9007199254740993,
		},
	}}

	for _, ext := range []string{".json", ".yaml", ".md"} {
		t.Run(ext, func(t *testing.T) {
			s := DefaultSerializers(true)[ext]
			data, err := s.Serialize(doc)
			require.NoError(t, err)

			parsed, err := s.Parse(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, json.Number("0.5"), parsed.Metadata["rate"])
			assert.Equal(t, json.Number("3"), parsed.Metadata["count"])

			nested, ok := parsed.Metadata["nested"].(map[string]interface{})
			require.True(t, ok, "nested type %T", parsed.Metadata["nested"])
			assert.Equal(t, json.Number("9007199254740993"), nested["big"])
		})
	}
}

func TestMarkdownSerializer_Frontmatter(t *testing.T) {
	s := MarkdownSerializer{}

	t.Run("No Frontmatter", func(t *testing.T) {
		doc, err := s.Parse(strings.NewReader("just text\n"))
		require.NoError(t, err)
		assert.Equal(t, "just text\n", doc.Content)
		assert.Empty(t, doc.Metadata)
	})

	t.Run("Delimiter Inside Values", func(t *testing.T) {
		in := core.Document{
			Content:  "line one\n---\nline two",
			Metadata: core.Metadata{"title": "a --- b"},
		}
		data, err := s.Serialize(in)
		require.NoError(t, err)

		out, err := s.Parse(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "a --- b", out.Metadata["title"])
		assert.Equal(t, in.Content, out.Content)
	})

	t.Run("Content Opening With Delimiter", func(t *testing.T) {
		in := core.Document{Content: "---\nnot a header"}
		data, err := s.Serialize(in)
		require.NoError(t, err)

		out, err := s.Parse(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, in.Content, out.Content)
	})

	t.Run("Leading Blank Line Preserved", func(t *testing.T) {
		in := core.Document{Content: "\nindented", Metadata: core.Metadata{"k": "v"}}
		data, err := s.Serialize(in)
		require.NoError(t, err)

		out, err := s.Parse(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, in.Content, out.Content)
	})

	t.Run("CRLF Delimiters", func(t *testing.T) {
		doc, err := s.Parse(strings.NewReader("---\r\ntitle: win\r\n---\r\nbody"))
		require.NoError(t, err)
		assert.Equal(t, "win", doc.Metadata["title"])
		assert.Equal(t, "body", doc.Content)
	})

	t.Run("Unclosed Frontmatter", func(t *testing.T) {
		_, err := s.Parse(strings.NewReader("---\ntitle: x\nbody"))
		assert.Error(t, err)
	})

	t.Run("Timestamps Stay Strings", func(t *testing.T) {
		doc, err := s.Parse(strings.NewReader("---\ncreated_at: 2024-05-01T10:00:00Z\nday: 2024-05-01\nlog:\n  - at: 2024-05-02T08:00:00Z\n---\n"))
		require.NoError(t, err)
		assert.Equal(t, "2024-05-01T10:00:00Z", doc.Metadata["created_at"])
		assert.Equal(t, "2024-05-01", doc.Metadata["day"])

		log, ok := doc.Metadata["log"].([]interface{})
		require.True(t, ok)
		entry, ok := log[0].(map[string]interface{})
		require.True(t, ok, "entry type %T", log[0])
		assert.Equal(t, "2024-05-02T08:00:00Z", entry["at"])
	})

	t.Run("Empty Frontmatter", func(t *testing.T) {
		doc, err := s.Parse(strings.NewReader("---\n---\nbody"))
		require.NoError(t, err)
		assert.Empty(t, doc.Metadata)
		assert.Equal(t, "body", doc.Content)
	})
}

func TestJSONSerializer(t *testing.T) {
	t.Run("Strict Keeps Large Integers", func(t *testing.T) {
		jsonContent := `{"big_id": 9223372036854775807}`

		doc, err := JSONSerializer{Strict: true}.Parse(strings.NewReader(jsonContent))
		require.NoError(t, err)
		assert.Equal(t, json.Number("9223372036854775807"), doc.Metadata["big_id"])

		loose, err := JSONSerializer{}.Parse(strings.NewReader(jsonContent))
		require.NoError(t, err)
		assert.IsType(t, float64(0), loose.Metadata["big_id"])
	})

	t.Run("Empty File", func(t *testing.T) {
		doc, err := JSONSerializer{}.Parse(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, doc.Metadata)
		assert.Empty(t, doc.Content)
	})

	t.Run("Non String Content Is Metadata", func(t *testing.T) {
		doc, err := JSONSerializer{}.Parse(strings.NewReader(`{"content": 4}`))
		require.NoError(t, err)
		assert.Equal(t, float64(4), doc.Metadata["content"])
		assert.Empty(t, doc.Content)
	})

	t.Run("Rejects Arrays", func(t *testing.T) {
		_, err := JSONSerializer{}.Parse(strings.NewReader(`[1, 2]`))
		assert.Error(t, err)
	})
}
