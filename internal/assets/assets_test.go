package assets

import (
	"testing"
)

func TestReadSchema(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		wantData bool
	}{
		{"draft schema", "embedded_schemas/tip/v1/draft.yaml", true},
		{"published schema", "embedded_schemas/tip/v1/published.yaml", true},
		{"invalid path", "nonexistent/schema.yaml", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, ok := readSchema(tt.path)
			if ok != tt.wantData {
				t.Errorf("readSchema(%q) ok = %v; want %v", tt.path, ok, tt.wantData)
			}
			if ok && len(data) == 0 {
				t.Errorf("readSchema(%q) returned empty data when ok=true", tt.path)
			}
		})
	}
}

func TestLookupSchema(t *testing.T) {
	for _, name := range []string{TipDraftV1, TipPublishedV1} {
		if data, ok := LookupSchema(name); !ok || len(data) == 0 {
			t.Errorf("LookupSchema(%q) = %d bytes, %v", name, len(data), ok)
		}
	}
	if _, ok := LookupSchema("tip-v0"); ok {
		t.Error("LookupSchema returned data for an unknown name")
	}
}

func TestSchemaNames(t *testing.T) {
	infos := SchemaNames()
	if len(infos) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(infos))
	}
	if infos[0].Name != TipDraftV1 || infos[1].Name != TipPublishedV1 {
		t.Errorf("unexpected order: %+v", infos)
	}
	for _, info := range infos {
		if info.Draft != "Draft-07" {
			t.Errorf("%s: draft = %q; want Draft-07", info.Name, info.Draft)
		}
	}
	if got := detectDraft("nonexistent/schema.yaml"); got != "Unknown" {
		t.Errorf("detectDraft(missing) = %q; want Unknown", got)
	}
}
