// Package assets embeds the JSON Schema templates for tip front matter.
package assets

import (
	"embed"
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed embedded_schemas
var schemaFS embed.FS

// SchemaInfo holds schema metadata.
type SchemaInfo struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Draft string `json:"draft"`
}

// Known schema names.
const (
	TipDraftV1     = "tip-draft-v1"
	TipPublishedV1 = "tip-published-v1"
)

var knownSchemas = map[string]string{
	TipDraftV1:     "embedded_schemas/tip/v1/draft.yaml",
	TipPublishedV1: "embedded_schemas/tip/v1/published.yaml",
}

func readSchema(relPath string) ([]byte, bool) {
	data, err := schemaFS.ReadFile(relPath)
	return data, err == nil
}

// LookupSchema returns the embedded schema registered under name.
func LookupSchema(name string) ([]byte, bool) {
	p, ok := knownSchemas[name]
	if !ok {
		return nil, false
	}
	return readSchema(p)
}

// SchemaNames returns the embedded schemas with their JSON Schema draft.
func SchemaNames() []SchemaInfo {
	infos := make([]SchemaInfo, 0, len(knownSchemas))
	for _, name := range []string{TipDraftV1, TipPublishedV1} {
		path := knownSchemas[name]
		if _, ok := readSchema(path); ok {
			infos = append(infos, SchemaInfo{Name: name, Path: path, Draft: detectDraft(path)})
		}
	}
	return infos
}

// detectDraft reads the draft from the $schema key.
func detectDraft(path string) string {
	bytes, ok := readSchema(path)
	if !ok {
		return "Unknown"
	}
	var doc interface{}
	if err := yaml.Unmarshal(bytes, &doc); err != nil {
		if err := json.Unmarshal(bytes, &doc); err != nil {
			return "Unknown"
		}
	}
	if m, ok := doc.(map[string]interface{}); ok {
		if v, ok := m["$schema"].(string); ok {
			if strings.Contains(v, "draft-07") {
				return "Draft-07"
			}
			if strings.Contains(v, "2020-12") {
				return "Draft-2020-12"
			}
		}
	}
	return "Unknown"
}
