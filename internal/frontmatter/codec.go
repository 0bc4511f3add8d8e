// Package frontmatter splits tip documents into a YAML metadata block and an
// opaque body, and writes them back.
//
// Decode keeps the parsed node tree together with the original block text so
// Encode can reproduce untouched documents byte-for-byte and patch edited
// single-line scalars in place. Anything it cannot patch safely falls back to
// re-encoding the whole block.
package frontmatter

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

const bom = "\ufeff"

// Decode splits raw into metadata and body. Text without a leading delimiter
// line has empty metadata and is all body.
func Decode(raw []byte) (*Metadata, string, error) {
	text := string(raw)

	prefix := ""
	if strings.HasPrefix(text, bom) {
		prefix = bom
	}

	first, rest, hasNewline := cutLine(text[len(prefix):])
	if !isDelimiter(first) || !hasNewline {
		return NewMetadata(), text, nil
	}
	open := prefix + text[len(prefix):len(text)-len(rest)]

	offset := 0
	for {
		line, after, nl := cutLine(rest[offset:])
		if isDelimiter(line) {
			block := rest[:offset]
			closing := rest[offset : len(rest)-len(after)]
			body := after
			if !nl {
				body = ""
			}
			m, err := parseBlock(block)
			if err != nil {
				return nil, "", err
			}
			m.open = open
			m.close = closing
			m.newline = lineEnding(open)
			return m, body, nil
		}
		if !nl {
			return nil, "", &MalformedDocumentError{Reason: "front matter block is not terminated by a --- line"}
		}
		offset = len(rest) - len(after)
	}
}

// Encode joins metadata and body into document text.
func Encode(body string, m *Metadata) ([]byte, error) {
	if m == nil {
		m = NewMetadata()
	}
	if !m.hasBlock && len(m.root.Content) == 0 {
		return []byte(body), nil
	}

	block, err := m.render()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	open, closing := m.open, m.close
	if open == "" {
		open = delimiter + "\n"
	}
	if closing == "" {
		closing = delimiter + "\n"
	}
	if body != "" && !strings.HasSuffix(closing, "\n") {
		closing += m.lineEnding()
	}
	buf.WriteString(open)
	buf.WriteString(block)
	buf.WriteString(closing)
	buf.WriteString(body)
	return buf.Bytes(), nil
}

func parseBlock(block string) (*Metadata, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return nil, &MalformedDocumentError{Reason: "invalid YAML", Err: err}
	}

	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		switch n := doc.Content[0]; {
		case n.Kind == yaml.MappingNode:
			root = n
		case n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null":
			// "~" or an empty document: no fields
		default:
			return nil, &MalformedDocumentError{Reason: "front matter must be a mapping of field names to values"}
		}
	}

	// Catches duplicate keys and values that cannot be represented as data.
	var fields map[string]interface{}
	if err := root.Decode(&fields); err != nil {
		return nil, &MalformedDocumentError{Reason: "invalid field mapping", Err: err}
	}

	origins, appendOK := indexOrigins(root, block)
	m := &Metadata{
		root:     root,
		block:    block,
		hasBlock: true,
		origin:   origins,
		appendOK: appendOK,
	}
	return m, nil
}

func cutLine(s string) (line, rest string, found bool) {
	i := strings.IndexByte(s, '\n')
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+1:], true
}

func isDelimiter(line string) bool {
	return strings.TrimRight(line, " \t\r") == delimiter
}

func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	return "\n"
}
