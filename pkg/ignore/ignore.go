// Package ignore provides gitignore-based file filtering using go-git
package ignore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	gitignore "github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the tipguard-specific ignore file read from the content root.
const FileName = ".tipguardignore"

// defaultPatterns are always ignored.
var defaultPatterns = []string{".git/**", "node_modules/**"}

// Matcher provides gitignore-based file filtering
type Matcher struct {
	matcher gitignore.Matcher
}

// NewMatcher creates a matcher for paths relative to root, layered as:
// 1. built-in defaults
// 2. .gitignore files below root
// 3. root/.tipguardignore
func NewMatcher(root string) (*Matcher, error) {
	var allPatterns []gitignore.Pattern
	for _, pattern := range defaultPatterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
	}

	// ReadPatterns walks root collecting every .gitignore
	if gitPatterns, err := gitignore.ReadPatterns(osfs.New(root), nil); err == nil {
		allPatterns = append(allPatterns, gitPatterns...)
	}

	patterns, err := readIgnoreFile(filepath.Join(root, FileName))
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	for _, pattern := range patterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(pattern, nil))
	}

	return &Matcher{matcher: gitignore.NewMatcher(allPatterns)}, nil
}

// readIgnoreFile reads patterns from a text file, skipping blanks and comments
func readIgnoreFile(path string) ([]string, error) {
	content, err := os.ReadFile(filepath.Clean(path)) // #nosec G304 -- fixed name under the content root
	if err != nil {
		return nil, err
	}

	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns, nil
}

// IsIgnored reports whether the file at rel (relative to the matcher root)
// is ignored.
func (m *Matcher) IsIgnored(rel string) bool {
	parts := splitPath(filepath.ToSlash(rel))
	if len(parts) == 0 {
		return false
	}
	return m.matcher.Match(parts, false)
}

// Filter returns the paths that are not ignored, in order.
func (m *Matcher) Filter(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if !m.IsIgnored(p) {
			out = append(out, p)
		}
	}
	return out
}

// splitPath converts a slash-separated path into components for go-git matching
func splitPath(path string) []string {
	if path == "" || path == "." {
		return nil
	}
	path = strings.TrimPrefix(path, "/")

	parts := strings.Split(path, "/")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" && part != "." {
			result = append(result, part)
		}
	}
	return result
}
