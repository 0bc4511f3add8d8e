// Package media moves externally hosted media referenced by a tip into the
// project's object store and rewrites mediaUrl to the durable copy.
package media

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/fulmenhq/tipguard/internal/frontmatter"
	"github.com/fulmenhq/tipguard/pkg/logger"
)

// FieldMediaURL is the front-matter field holding the media reference.
const FieldMediaURL = "mediaUrl"

// ObjectStore is the durable media backend.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	// Put stores data under key and returns its public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PublicURL(key string) string
	// PublicHost is the host of URLs the store hands out.
	PublicHost() string
}

// Options configures a Rehomer.
type Options struct {
	// DefaultExtension defaults to DefaultExtension.
	DefaultExtension string
}

// Rehomer copies external media into an ObjectStore.
type Rehomer struct {
	fetcher    Fetcher
	store      ObjectStore
	defaultExt string
}

// NewRehomer creates a Rehomer.
func NewRehomer(fetcher Fetcher, store ObjectStore, opts Options) *Rehomer {
	ext := opts.DefaultExtension
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return &Rehomer{fetcher: fetcher, store: store, defaultExt: ext}
}

// Result describes one rehoming attempt. Metadata is a copy; the input is
// never modified.
type Result struct {
	Metadata  *frontmatter.Metadata
	Moved     bool
	Uploaded  bool
	Key       string
	SourceURL string
	PublicURL string
	// Skipped explains why nothing was done when Moved is false.
	Skipped string
}

// IsExternal reports whether mediaURL points somewhere other than the
// store's public host.
func IsExternal(mediaURL, publicHost string) bool {
	u, err := url.Parse(mediaURL)
	if err != nil {
		return true
	}
	return !strings.EqualFold(u.Hostname(), publicHost)
}

// Rehome moves the document's media into the store when it is hosted
// elsewhere. Failures are returned as *RehomeError.
func (r *Rehomer) Rehome(ctx context.Context, m *frontmatter.Metadata, documentID string) (*Result, error) {
	res := &Result{Metadata: m.Clone()}

	source, ok := m.Lookup(FieldMediaURL)
	if !ok {
		res.Skipped = "no mediaUrl"
		return res, nil
	}
	res.SourceURL = source
	if !IsExternal(source, r.store.PublicHost()) {
		res.Skipped = "already in media store"
		return res, nil
	}

	fail := func(stage string, err error) (*Result, error) {
		return nil, &RehomeError{DocumentID: documentID, SourceURL: source, Stage: stage, Err: err}
	}

	key, err := StorageKey(documentID, source, r.defaultExt)
	if err != nil {
		return fail(StageParse, err)
	}

	logger.Info("Downloading media", logger.Doc(documentID), logger.String("url", source))
	data, err := r.fetcher.Fetch(ctx, source)
	if err != nil {
		return fail(StageFetch, err)
	}

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fail(StageExists, &UploadError{Key: key, Err: err})
	}

	publicURL := r.store.PublicURL(key)
	if !exists {
		contentType := ContentType(source)
		logger.Info("Uploading media",
			logger.Doc(documentID),
			logger.String("key", key),
			logger.String("content_type", contentType),
			logger.String("size", fmt.Sprintf("%.2f KB", float64(len(data))/1024)))
		publicURL, err = r.store.Put(ctx, key, data, contentType)
		if err != nil {
			return fail(StageUpload, &UploadError{Key: key, Err: err})
		}
		res.Uploaded = true
	} else {
		logger.Debug("Media already stored", logger.Doc(documentID), logger.String("key", key))
	}

	res.Metadata.Set(FieldMediaURL, publicURL)
	res.Moved = true
	res.Key = key
	res.PublicURL = publicURL
	return res, nil
}
