package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("https://media.example/")

	assert.Equal(t, "media.example", s.PublicHost())
	assert.Equal(t, "https://media.example/a-1234abcd.gif", s.PublicURL("a-1234abcd.gif"))

	ok, err := s.Exists(ctx, "a-1234abcd.gif")
	require.NoError(t, err)
	assert.False(t, ok)

	data := []byte("GIF89a")
	url, err := s.Put(ctx, "a-1234abcd.gif", data, "image/gif")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/a-1234abcd.gif", url)

	data[0] = 'X'
	obj, ok := s.Get("a-1234abcd.gif")
	require.True(t, ok)
	assert.Equal(t, []byte("GIF89a"), obj.Data, "store keeps its own copy")
	assert.Equal(t, "image/gif", obj.ContentType)

	ok, err = s.Exists(ctx, "a-1234abcd.gif")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Puts())
}

func TestMemoryStoreHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore("https://media.example")

	_, err := s.Exists(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.Put(ctx, "k", nil, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		endpoint   string
		account    string
		wantHost   string
		wantSecure bool
		wantErr    bool
	}{
		{name: "account default", account: "abc123", wantHost: "abc123.r2.cloudflarestorage.com", wantSecure: true},
		{name: "bare host", endpoint: "s3.example:9000/", wantHost: "s3.example:9000", wantSecure: true},
		{name: "https override", endpoint: "https://s3.example", wantHost: "s3.example", wantSecure: true},
		{name: "http override", endpoint: "http://127.0.0.1:9000", wantHost: "127.0.0.1:9000", wantSecure: false},
		{name: "nothing", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, secure, err := resolveEndpoint(tt.endpoint, tt.account)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestNewR2StoreRequiresPublicURL(t *testing.T) {
	for _, publicURL := range []string{"", "media.example", "//media.example", "ftp://media.example"} {
		t.Run(publicURL, func(t *testing.T) {
			_, err := NewR2Store(R2Options{AccountID: "abc", PublicURL: publicURL})
			assert.Error(t, err)
		})
	}
}

// fakeBucket answers the HEAD and PUT object calls the store makes.
type fakeBucket struct {
	mu      sync.Mutex
	objects map[string]string
}

func (f *fakeBucket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodHead:
		ct, ok := f.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", ct)
		w.Header().Set("Content-Length", "6")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	case http.MethodPut:
		_, _ = io.Copy(io.Discard, r.Body)
		f.objects[r.URL.Path] = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestR2StoreAgainstFakeBucket(t *testing.T) {
	bucket := &fakeBucket{objects: map[string]string{}}
	srv := httptest.NewServer(bucket)
	defer srv.Close()

	s, err := NewR2Store(R2Options{
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "tips",
		PublicURL:       "https://media.example",
		Endpoint:        srv.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "media.example", s.PublicHost())

	ctx := context.Background()
	ok, err := s.Exists(ctx, "split-panes-1a2b3c4d.gif")
	require.NoError(t, err)
	assert.False(t, ok)

	url, err := s.Put(ctx, "split-panes-1a2b3c4d.gif", []byte("GIF89a"), "image/gif")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example/split-panes-1a2b3c4d.gif", url)

	bucket.mu.Lock()
	ct := bucket.objects["/tips/split-panes-1a2b3c4d.gif"]
	bucket.mu.Unlock()
	assert.True(t, strings.HasPrefix(ct, "image/gif"), "content type %q", ct)

	ok, err = s.Exists(ctx, "split-panes-1a2b3c4d.gif")
	require.NoError(t, err)
	assert.True(t, ok)
}
