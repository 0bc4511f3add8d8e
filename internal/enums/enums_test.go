package enums

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRegistryLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "categories.yaml", `- id: setup
  name: Setup
- id: shortcuts
  name: Shortcuts
`)
	writeConfig(t, dir, "difficulties.yaml", "- id: beginner\n- id: advanced\n")

	reg := NewRegistry(dir, nil)
	cat, err := reg.Load(Category)
	require.NoError(t, err)
	assert.Equal(t, []string{"setup", "shortcuts"}, cat.IDs())
	assert.True(t, cat.Contains("setup"))
	assert.False(t, cat.Contains("bogus"))
	assert.Equal(t, "setup, shortcuts", cat.String())

	diff, err := reg.Load(Difficulty)
	require.NoError(t, err)
	assert.Equal(t, "beginner, advanced", diff.String())
}

func TestRegistryCachesPerRun(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "categories.yaml", "- id: setup\n")

	reg := NewRegistry(dir, nil)
	first, err := reg.Load(Category)
	require.NoError(t, err)

	// Later edits are not observed by the same registry
	writeConfig(t, dir, "categories.yaml", "- id: changed\n")
	second, err := reg.Load(Category)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"setup"}, second.IDs())
}

func TestRegistryLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		write   bool
	}{
		{name: "missing file", write: false},
		{name: "not yaml", content: "- id: [unterminated\n", write: true},
		{name: "mapping instead of list", content: "id: setup\n", write: true},
		{name: "item without id", content: "- name: Setup\n", write: true},
		{name: "duplicate id", content: "- id: a\n- id: a\n", write: true},
		{name: "empty list", content: "[]\n", write: true},
		{name: "empty file", content: "", write: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.write {
				writeConfig(t, dir, "categories.yaml", tt.content)
			}
			_, err := NewRegistry(dir, nil).Load(Category)
			require.Error(t, err)

			var cle *ConfigLoadError
			require.True(t, errors.As(err, &cle))
			assert.Equal(t, Category, cle.Name)
			assert.Contains(t, cle.Path, "categories.yaml")
		})
	}
}

func TestRegistryUnknownEnum(t *testing.T) {
	_, err := NewRegistry(t.TempDir(), nil).Load("colour")
	var cle *ConfigLoadError
	assert.ErrorAs(t, err, &cle)
}

func TestLoadAllStopsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "categories.yaml", "- id: setup\n")

	err := NewRegistry(dir, nil).LoadAll()
	var cle *ConfigLoadError
	require.ErrorAs(t, err, &cle)
	assert.Equal(t, Difficulty, cle.Name)
}

func TestNewRejectsBlankIDs(t *testing.T) {
	_, err := New("category", []string{"a", " "})
	assert.Error(t, err)

	assert.Panics(t, func() { MustNew("category") })
}

func TestIDsReturnsCopy(t *testing.T) {
	e := MustNew("difficulty", "beginner", "advanced")
	ids := e.IDs()
	ids[0] = "mutated"
	assert.Equal(t, []string{"beginner", "advanced"}, e.IDs())
}
