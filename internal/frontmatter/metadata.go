package frontmatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fulmenhq/tipguard/internal/dates"
	"gopkg.in/yaml.v3"
)

// Metadata is the ordered field mapping of a document's front matter.
// The zero value is not usable; use NewMetadata or Decode.
type Metadata struct {
	root *yaml.Node

	block    string
	hasBlock bool
	open     string
	close    string
	newline  string
	origin   map[string]origin
	appendOK bool

	edits []string
}

// origin records where a top-level value sat in the original block.
type origin struct {
	line      int // 1-based
	column    int // 1-based
	patchable bool

	// keyOnly marks an empty value ("key:" with nothing after the colon).
	// The value is written after colon, which is a byte offset into the line;
	// trail is the original comment, if any.
	keyOnly bool
	colon   int
	trail   string
}

// NewMetadata returns an empty mapping with no original block.
func NewMetadata() *Metadata {
	return &Metadata{
		root:   &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"},
		origin: map[string]origin{},
	}
}

// keys returns field names in document order.
func (m *Metadata) keys() []string {
	keys := make([]string, 0, len(m.root.Content)/2)
	for i := 0; i+1 < len(m.root.Content); i += 2 {
		keys = append(keys, m.root.Content[i].Value)
	}
	return keys
}

// Absent reports whether the field is missing, null or an empty string.
// Lists and mappings count as present.
func (m *Metadata) Absent(key string) bool {
	n := m.valueNode(key)
	if n == nil {
		return true
	}
	return n.Kind == yaml.ScalarNode && (n.ShortTag() == "!!null" || n.Value == "")
}

// Lookup returns a scalar field's text. It reports false when the field is
// missing, null, empty, or not a scalar.
func (m *Metadata) Lookup(key string) (string, bool) {
	n := m.valueNode(key)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" || n.Value == "" {
		return "", false
	}
	return n.Value, true
}

// Fields decodes the whole mapping. Date-like scalars decode as strings.
func (m *Metadata) Fields() map[string]interface{} {
	out := make(map[string]interface{}, len(m.root.Content)/2)
	for i := 0; i+1 < len(m.root.Content); i += 2 {
		var v interface{}
		if err := m.root.Content[i+1].Decode(&v); err == nil {
			out[m.root.Content[i].Value] = v
		}
	}
	return out
}

// Set assigns a string field, appending it when absent. Dates are written as
// plain scalars; other strings are quoted only when YAML would otherwise read
// them as another type.
func (m *Metadata) Set(key, value string) {
	node := scalarNode(value)
	for i := 0; i+1 < len(m.root.Content); i += 2 {
		if m.root.Content[i].Value != key {
			continue
		}
		old := m.root.Content[i+1]
		node.LineComment = old.LineComment
		node.HeadComment = old.HeadComment
		node.FootComment = old.FootComment
		m.root.Content[i+1] = node
		m.markEdited(key)
		return
	}
	m.root.Content = append(m.root.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		node,
	)
	m.markEdited(key)
}

// Modified reports whether any field was set since decoding.
func (m *Metadata) Modified() bool {
	return len(m.edits) > 0
}

// Clone returns a deep copy that can be edited independently.
func (m *Metadata) Clone() *Metadata {
	c := *m
	c.root = cloneNode(m.root)
	c.edits = append([]string(nil), m.edits...)
	return &c
}

func (m *Metadata) valueNode(key string) *yaml.Node {
	for i := 0; i+1 < len(m.root.Content); i += 2 {
		if m.root.Content[i].Value == key {
			return m.root.Content[i+1]
		}
	}
	return nil
}

func (m *Metadata) markEdited(key string) {
	for _, k := range m.edits {
		if k == key {
			return
		}
	}
	m.edits = append(m.edits, key)
}

func (m *Metadata) lineEnding() string {
	if m.newline == "" {
		return "\n"
	}
	return m.newline
}

// render produces the block text between the delimiters.
func (m *Metadata) render() (string, error) {
	if m.hasBlock && len(m.edits) == 0 {
		return m.block, nil
	}
	if !m.hasBlock {
		return encodeNode(m.root)
	}
	if patched, ok := m.patch(); ok {
		return patched, nil
	}
	return encodeNode(m.root)
}

// patch rewrites edited lines of the original block and appends new keys.
func (m *Metadata) patch() (string, bool) {
	lines := splitLinesKeepEnds(m.block)
	nl := m.lineEnding()
	var appended []string

	for _, key := range m.edits {
		rendered, ok := renderScalar(m.valueNode(key))
		if !ok {
			return "", false
		}
		o, existed := m.origin[key]
		if !existed {
			if !m.appendOK {
				return "", false
			}
			k, ok := renderScalar(&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key})
			if !ok {
				return "", false
			}
			appended = append(appended, k+": "+rendered+nl)
			continue
		}
		if !o.patchable || o.line-1 >= len(lines) {
			return "", false
		}
		line := lines[o.line-1]
		content, ending := splitEnding(line)
		var patched string
		if o.keyOnly {
			if o.colon >= len(content) {
				return "", false
			}
			patched = content[:o.colon+1] + " " + rendered
			if o.trail != "" {
				patched += " " + o.trail
			}
		} else {
			if o.column-1 > len(content) {
				return "", false
			}
			patched = content[:o.column-1] + rendered
			if c := m.valueNode(key).LineComment; c != "" {
				patched += " " + c
			}
		}
		lines[o.line-1] = patched + ending
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(l)
	}
	if len(appended) > 0 && b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteString(nl)
	}
	for _, l := range appended {
		b.WriteString(l)
	}
	return b.String(), true
}

// indexOrigins records, for each top-level key, whether its value occupies a
// single line that can be rewritten without touching neighbours. The second
// result reports whether new keys can be appended at column one.
func indexOrigins(root *yaml.Node, block string) (map[string]origin, bool) {
	out := make(map[string]origin)
	appendable := root.Style&yaml.FlowStyle == 0
	for i := 0; i+1 < len(root.Content); i += 2 {
		if root.Content[i].Column != 1 {
			appendable = false
		}
	}
	lines := splitLinesKeepEnds(block)
	for i := 0; i+1 < len(root.Content); i += 2 {
		k, v := root.Content[i], root.Content[i+1]
		o := origin{line: v.Line, column: v.Column}
		if emptyValue(v) {
			// an empty value has no position of its own; patch after the key
			o.line = k.Line
			o.keyOnly = true
			o.colon, o.trail, o.patchable = keySlot(k, lines)
			o.patchable = o.patchable && appendable && v.Anchor == ""
		} else {
			o.patchable = appendable &&
				v.Kind == yaml.ScalarNode &&
				v.Style&(yaml.LiteralStyle|yaml.FoldedStyle|yaml.TaggedStyle) == 0 &&
				v.Anchor == "" &&
				v.Line == k.Line &&
				v.Line-1 < len(lines) &&
				v.Column > 1 &&
				separatedPrefix(prefixOf(lines[v.Line-1], v.Column-1))
		}

		next := len(lines) + 1
		if i+2 < len(root.Content) {
			next = root.Content[i+2].Line
		}
		for ln := o.line + 1; o.patchable && ln < next && ln-1 < len(lines); ln++ {
			if !isTrivia(lines[ln-1]) {
				o.patchable = false
			}
		}
		out[k.Value] = o
	}
	return out, appendable
}

// emptyValue reports an implicit null: a key followed by nothing.
func emptyValue(v *yaml.Node) bool {
	return v.Kind == yaml.ScalarNode && v.ShortTag() == "!!null" && v.Value == "" && v.Style == 0
}

// keySlot locates the colon after a plain key on its own line and returns the
// comment that follows it. ok is false unless only whitespace or a comment
// follows the colon.
func keySlot(k *yaml.Node, lines []string) (colon int, trail string, ok bool) {
	if k.Kind != yaml.ScalarNode || k.Style != 0 || k.Line < 1 || k.Line-1 >= len(lines) {
		return 0, "", false
	}
	content, _ := splitEnding(lines[k.Line-1])
	start := k.Column - 1
	if start < 0 || start > len(content) || !asciiOnly(content[:start]) {
		return 0, "", false
	}
	if !strings.HasPrefix(content[start:], k.Value) {
		return 0, "", false
	}
	j := start + len(k.Value)
	for j < len(content) && (content[j] == ' ' || content[j] == '\t') {
		j++
	}
	if j >= len(content) || content[j] != ':' {
		return 0, "", false
	}
	rest := content[j+1:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return 0, "", false
	}
	if !isTrivia(rest) {
		return 0, "", false
	}
	return j, strings.TrimSpace(rest), true
}

func scalarNode(value string) *yaml.Node {
	tag := "!!str"
	if dates.IsCalendarDate(value) {
		tag = "!!timestamp"
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

// renderScalar encodes a scalar node as it would appear after "key: ".
func renderScalar(n *yaml.Node) (string, bool) {
	if n == nil || n.Kind != yaml.ScalarNode {
		return "", false
	}
	c := *n
	c.HeadComment, c.LineComment, c.FootComment = "", "", ""
	out, err := yaml.Marshal(&c)
	if err != nil {
		return "", false
	}
	s := strings.TrimSuffix(string(out), "\n")
	if strings.Contains(s, "\n") {
		return "", false
	}
	return s, true
}

func encodeNode(root *yaml.Node) (string, error) {
	if len(root.Content) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	return buf.String(), nil
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	c := *n
	if n.Content != nil {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	// Alias targets are shared by reference; re-pointing them is not needed
	// for the scalar edits this package performs.
	return &c
}

func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func splitEnding(line string) (content, ending string) {
	switch {
	case strings.HasSuffix(line, "\r\n"):
		return line[:len(line)-2], "\r\n"
	case strings.HasSuffix(line, "\n"):
		return line[:len(line)-1], "\n"
	default:
		return line, ""
	}
}

func isTrivia(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "#")
}

func prefixOf(line string, n int) string {
	if n > len(line) {
		return line
	}
	return line[:n]
}

// separatedPrefix reports whether the text before a value is plain ASCII
// ending in whitespace, so column offsets are byte offsets.
func separatedPrefix(s string) bool {
	if s == "" || !asciiOnly(s) {
		return false
	}
	last := s[len(s)-1]
	return last == ' ' || last == '\t'
}

func asciiOnly(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
