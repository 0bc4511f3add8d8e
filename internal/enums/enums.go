// Package enums loads the enumerated values of categorical front-matter
// fields (category, difficulty) from YAML configuration. The sets are data,
// so the schema evolves by editing configuration rather than code.
package enums

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fulmenhq/tipguard/pkg/logger"
	"gopkg.in/yaml.v3"
)

// Enum names known to the validator.
const (
	Category   = "category"
	Difficulty = "difficulty"
)

// DefaultFiles maps enum names to their resource file in the config directory.
var DefaultFiles = map[string]string{
	Category:   "categories.yaml",
	Difficulty: "difficulties.yaml",
}

// ConfigLoadError reports a missing or malformed enum resource. It is fatal
// for a run: no schema can be built without it.
type ConfigLoadError struct {
	Name string
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("failed to load %s enum from %s: %v", e.Name, e.Path, e.Err)
}

func (e *ConfigLoadError) Unwrap() error {
	return e.Err
}

// Enum is an immutable ordered set of identifiers.
type Enum struct {
	name string
	ids  []string
	set  map[string]struct{}
}

// New builds an Enum, rejecting empty sets, blank ids and duplicates.
func New(name string, ids []string) (*Enum, error) {
	if len(ids) == 0 {
		return nil, errors.New("no entries")
	}
	e := &Enum{
		name: name,
		ids:  make([]string, 0, len(ids)),
		set:  make(map[string]struct{}, len(ids)),
	}
	for i, id := range ids {
		if strings.TrimSpace(id) == "" {
			return nil, fmt.Errorf("entry %d has an empty id", i)
		}
		if _, dup := e.set[id]; dup {
			return nil, fmt.Errorf("duplicate id %q", id)
		}
		e.set[id] = struct{}{}
		e.ids = append(e.ids, id)
	}
	return e, nil
}

// MustNew is New for fixed, known-good values.
func MustNew(name string, ids ...string) *Enum {
	e, err := New(name, ids)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Enum) Name() string { return e.name }

// IDs returns a copy of the identifiers in configuration order.
func (e *Enum) IDs() []string {
	out := make([]string, len(e.ids))
	copy(out, e.ids)
	return out
}

func (e *Enum) Contains(id string) bool {
	_, ok := e.set[id]
	return ok
}

// String joins the ids for use in messages: "setup, shortcuts".
func (e *Enum) String() string {
	return strings.Join(e.ids, ", ")
}

// Registry loads enums from a config directory and caches them for the
// lifetime of the registry (one run).
type Registry struct {
	dir   string
	files map[string]string

	mu    sync.Mutex
	cache map[string]*Enum
}

// NewRegistry creates a registry reading from dir. A nil files map uses DefaultFiles.
func NewRegistry(dir string, files map[string]string) *Registry {
	if files == nil {
		files = DefaultFiles
	}
	return &Registry{
		dir:   dir,
		files: files,
		cache: make(map[string]*Enum),
	}
}

// Load returns the named enum, reading it on first use.
func (r *Registry) Load(name string) (*Enum, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.cache[name]; ok {
		return e, nil
	}

	file, ok := r.files[name]
	if !ok {
		return nil, &ConfigLoadError{Name: name, Path: r.dir, Err: errors.New("no resource configured for enum")}
	}
	path := filepath.Join(r.dir, file)

	e, err := loadFile(name, path)
	if err != nil {
		return nil, &ConfigLoadError{Name: name, Path: path, Err: err}
	}
	logger.Debug("Loaded enum", logger.String("enum", name), logger.Int("count", len(e.ids)), logger.String("path", path))
	r.cache[name] = e
	return e, nil
}

// LoadAll eagerly loads every configured enum so configuration problems
// surface before any document is processed.
func (r *Registry) LoadAll() error {
	for _, name := range []string{Category, Difficulty} {
		if _, ok := r.files[name]; !ok {
			continue
		}
		if _, err := r.Load(name); err != nil {
			return err
		}
	}
	return nil
}

func loadFile(name, path string) (*Enum, error) {
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ids, err := parseIDs(data)
	if err != nil {
		return nil, err
	}
	return New(name, ids)
}

// parseIDs extracts the id of each item in a YAML list of mappings.
func parseIDs(data []byte) ([]string, error) {
	var items []map[string]interface{}
	if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		raw, ok := item["id"]
		if !ok || raw == nil {
			return nil, fmt.Errorf("entry %d has no id", i)
		}
		switch v := raw.(type) {
		case string:
			ids = append(ids, v)
		case int, float64, bool:
			ids = append(ids, fmt.Sprint(v))
		default:
			return nil, fmt.Errorf("entry %d has a non-scalar id", i)
		}
	}
	return ids, nil
}
