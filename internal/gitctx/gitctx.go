// Package gitctx reads what the pipeline needs from version control: the
// author of a document's latest commit and the current change-set. go-git is
// preferred; the git CLI is the fallback.
package gitctx

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	git "github.com/go-git/go-git/v5"
)

// ErrNoHistory is returned when no commit touches the requested path.
var ErrNoHistory = errors.New("no commit history for path")

// ErrNotRepository is returned when neither go-git nor the git CLI finds a
// repository at the target.
var ErrNotRepository = errors.New("not a git repository")

// History looks up commit authorship. The repository handle is opened once
// and shared; lookups are serialized.
type History struct {
	root string

	mu   sync.Mutex
	repo *git.Repository
}

// OpenHistory opens the repository containing target.
func OpenHistory(target string) (*History, error) {
	repo, err := git.PlainOpenWithOptions(target, &git.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		root := target
		if wt, werr := repo.Worktree(); werr == nil {
			root = wt.Filesystem.Root()
		}
		return newHistory(repo, root), nil
	}

	// CLI fallback
	if _, lerr := exec.LookPath("git"); lerr != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, target)
	}
	if !isRepoCLI(target) {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, target)
	}
	root := runGit(target, "rev-parse", "--show-toplevel")
	if root == "" {
		root = target
	}
	return &History{root: root}, nil
}

// newHistory wraps an open repository. Document ids are resolved against
// root; an empty root treats ids as repository paths.
func newHistory(repo *git.Repository, root string) *History {
	return &History{root: root, repo: repo}
}

// LastAuthorEmail returns the author email of the most recent commit touching
// documentID.
func (h *History) LastAuthorEmail(ctx context.Context, documentID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel, err := h.relPath(documentID)
	if err != nil {
		return "", err
	}

	if h.repo == nil {
		out, err := runGitContext(ctx, h.root, "log", "-1", "--format=%ae", "--", rel)
		if err != nil {
			return "", fmt.Errorf("git log %s: %w", rel, err)
		}
		email := strings.TrimSpace(string(out))
		if email == "" {
			return "", fmt.Errorf("%w: %s", ErrNoHistory, rel)
		}
		return email, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	iter, err := h.repo.Log(&git.LogOptions{FileName: &rel})
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNoHistory, rel, err)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: %s", ErrNoHistory, rel)
	}
	if err != nil {
		return "", fmt.Errorf("read history for %s: %w", rel, err)
	}
	if commit.Author.Email == "" {
		return "", fmt.Errorf("%w: %s", ErrNoHistory, rel)
	}
	return commit.Author.Email, nil
}

func (h *History) relPath(documentID string) (string, error) {
	if h.root == "" {
		return path.Clean(filepath.ToSlash(documentID)), nil
	}
	abs, err := filepath.Abs(documentID)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(h.root, abs)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside repository %s", documentID, h.root)
	}
	return rel, nil
}

// ChangeContext captures a minimal view of the current git change-set.
type ChangeContext struct {
	// Root is the worktree directory the paths are relative to; empty when unknown.
	Root          string   `json:"root,omitempty"`
	ModifiedFiles []string `json:"modified_files"`
	GitSHA        string   `json:"git_sha,omitempty"`
	Branch        string   `json:"branch,omitempty"`
}

// Collect gathers the staged, unstaged and untracked files of the repository
// at target. Paths are repository-relative with forward slashes.
func Collect(target string) (*ChangeContext, error) {
	// Prefer go-git for repo info and file lists
	if repo, err := git.PlainOpenWithOptions(target, &git.PlainOpenOptions{DetectDotGit: true}); err == nil {
		if cc, err := collectRepo(repo); err == nil {
			return cc, nil
		}
	}

	// CLI fallback
	if _, err := exec.LookPath("git"); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, target)
	}
	if !isRepoCLI(target) {
		return nil, fmt.Errorf("%w: %s", ErrNotRepository, target)
	}
	files := make(map[string]struct{})
	for _, args := range [][]string{
		{"diff", "--name-only"},
		{"diff", "--cached", "--name-only"},
		{"ls-files", "--others", "--exclude-standard"},
	} {
		for f := range parseNameList(runGitBytes(target, args...)) {
			files[f] = struct{}{}
		}
	}
	return &ChangeContext{
		Root:          runGit(target, "rev-parse", "--show-toplevel"),
		ModifiedFiles: sortedKeys(files),
		GitSHA:        runGit(target, "rev-parse", "HEAD"),
		Branch:        runGit(target, "rev-parse", "--abbrev-ref", "HEAD"),
	}, nil
}

func collectRepo(repo *git.Repository) (*ChangeContext, error) {
	wt, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	st, err := wt.Status()
	if err != nil {
		return nil, err
	}
	files := make(map[string]struct{})
	for p, s := range st {
		// Consider both staged and unstaged changes
		if s.Staging != git.Unmodified || s.Worktree != git.Unmodified {
			files[filepath.ToSlash(p)] = struct{}{}
		}
	}
	cc := &ChangeContext{ModifiedFiles: sortedKeys(files)}
	cc.Root = wt.Filesystem.Root()
	if head, err := repo.Head(); err == nil {
		cc.Branch = head.Name().Short()
		cc.GitSHA = head.Hash().String()
	}
	return cc, nil
}

func isRepoCLI(target string) bool {
	out := runGit(target, "rev-parse", "--is-inside-work-tree")
	return strings.TrimSpace(out) == "true"
}

func runGit(dir string, args ...string) string {
	b := runGitBytes(dir, args...)
	return strings.TrimSpace(string(b))
}

func runGitBytes(dir string, args ...string) []byte {
	out, _ := runGitContext(context.Background(), dir, args...)
	return out
}

func runGitContext(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	return cmd.Output()
}

// parseNameList parses one path per line, as printed by --name-only.
func parseNameList(data []byte) map[string]struct{} {
	files := make(map[string]struct{})
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		f := strings.TrimSpace(scanner.Text())
		if f != "" {
			files[filepath.ToSlash(f)] = struct{}{}
		}
	}
	return files
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
