// Package enrich fills system-owned front-matter fields (publishedAt,
// updatedAt, author, authorUrl) without overwriting values a person entered.
package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/fulmenhq/tipguard/internal/dates"
	"github.com/fulmenhq/tipguard/internal/frontmatter"
	"github.com/fulmenhq/tipguard/pkg/logger"
)

// DefaultProfileBaseURL is prefixed to the author name to build authorUrl.
const DefaultProfileBaseURL = "https://github.com"

// Field names written by the enricher.
const (
	FieldPublishedAt = "publishedAt"
	FieldUpdatedAt   = "updatedAt"
	FieldAuthor      = "author"
	FieldAuthorURL   = "authorUrl"
)

// noreplyPattern matches hosted-forge privacy addresses such as
// 42+alice@users.noreply.github.com.
var noreplyPattern = regexp.MustCompile(`^(\d+\+)?([^@]+)@users\.noreply\.(.+)$`)

// HistoryLookup returns the author email of the latest commit touching a document.
type HistoryLookup interface {
	LastAuthorEmail(ctx context.Context, documentID string) (string, error)
}

// HistoryFunc adapts a function to HistoryLookup.
type HistoryFunc func(ctx context.Context, documentID string) (string, error)

func (f HistoryFunc) LastAuthorEmail(ctx context.Context, documentID string) (string, error) {
	return f(ctx, documentID)
}

// Options configures an Enricher.
type Options struct {
	// ProfileBaseURL defaults to DefaultProfileBaseURL.
	ProfileBaseURL string
}

// Enricher computes derived metadata. History may be nil, in which case
// author is never filled.
type Enricher struct {
	history        HistoryLookup
	profileBaseURL string
}

// New creates an Enricher.
func New(history HistoryLookup, opts Options) *Enricher {
	base := strings.TrimRight(opts.ProfileBaseURL, "/")
	if base == "" {
		base = DefaultProfileBaseURL
	}
	return &Enricher{history: history, profileBaseURL: base}
}

// Change records one field the enricher wrote.
type Change struct {
	Field string
	Value string
	Added bool
}

func (c Change) String() string {
	if c.Added {
		return fmt.Sprintf("Added %s: %s", c.Field, c.Value)
	}
	return fmt.Sprintf("Updated %s: %s", c.Field, c.Value)
}

// Result carries the enriched copy of the metadata.
type Result struct {
	Metadata *frontmatter.Metadata
	Changed  bool
	Changes  []Change
}

// Enrich returns a copy of m with derived fields filled for currentDate
// (YYYY-MM-DD). m itself is not modified.
func (e *Enricher) Enrich(ctx context.Context, m *frontmatter.Metadata, documentID, currentDate string) (*Result, error) {
	if _, err := dates.Parse(currentDate); err != nil {
		return nil, fmt.Errorf("enrich %s: %w", documentID, err)
	}
	out := m.Clone()
	res := &Result{Metadata: out}

	set := func(field, value string, added bool) {
		out.Set(field, value)
		res.Changes = append(res.Changes, Change{Field: field, Value: value, Added: added})
	}

	if out.Absent(FieldPublishedAt) {
		set(FieldPublishedAt, currentDate, true)
	}

	if current, ok := out.Lookup(FieldUpdatedAt); current != currentDate {
		set(FieldUpdatedAt, currentDate, !ok)
	}

	if out.Absent(FieldAuthor) {
		if author := e.lookupAuthor(ctx, documentID); author != "" {
			set(FieldAuthor, author, true)
		}
	}

	if out.Absent(FieldAuthorURL) {
		if author, ok := out.Lookup(FieldAuthor); ok {
			set(FieldAuthorURL, e.profileBaseURL+"/"+author, true)
		}
	}

	res.Changed = len(res.Changes) > 0
	return res, nil
}

func (e *Enricher) lookupAuthor(ctx context.Context, documentID string) string {
	if e.history == nil {
		return ""
	}
	email, err := e.history.LastAuthorEmail(ctx, documentID)
	if err != nil {
		logger.Warn("Could not get git author", logger.Doc(documentID), logger.Err(err))
		return ""
	}
	author := ResolveAuthor(email)
	if author == "" {
		logger.Warn("Git author email has no usable name", logger.Doc(documentID), logger.String("email", email))
	}
	return author
}

// ResolveAuthor turns a commit email into a profile name: the username of a
// noreply address, otherwise the local part.
func ResolveAuthor(email string) string {
	email = strings.TrimSpace(email)
	if m := noreplyPattern.FindStringSubmatch(email); m != nil {
		return m[2]
	}
	local, _, _ := strings.Cut(email, "@")
	return strings.TrimSpace(local)
}
