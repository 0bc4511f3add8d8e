package media

import (
	"crypto/md5" // #nosec G501 -- content addressing, not security
	"encoding/hex"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// DefaultExtension is used when the source URL path has none.
const DefaultExtension = ".jpg"

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// StorageKey derives the object key for sourceURL referenced by documentID:
// {document stem}-{first 8 hex of md5(sourceURL)}{extension}. The same
// inputs always give the same key.
func StorageKey(documentID, sourceURL, defaultExt string) (string, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("invalid media URL %q: %w", sourceURL, err)
	}
	ext := path.Ext(u.Path)
	if ext == "" {
		ext = defaultExt
	}
	if ext == "" {
		ext = DefaultExtension
	}

	base := filepath.Base(filepath.FromSlash(documentID))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	sum := md5.Sum([]byte(sourceURL)) // #nosec G401
	return stem + "-" + hex.EncodeToString(sum[:])[:8] + ext, nil
}

// ContentType infers the upload content type from the URL path extension.
func ContentType(sourceURL string) string {
	p := sourceURL
	if u, err := url.Parse(sourceURL); err == nil {
		p = u.Path
	}
	if ct, ok := contentTypes[strings.ToLower(path.Ext(p))]; ok {
		return ct
	}
	return "application/octet-stream"
}
