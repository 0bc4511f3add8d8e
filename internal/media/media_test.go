package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fulmenhq/tipguard/internal/frontmatter"
	"github.com/fulmenhq/tipguard/internal/storage"
)

type stubFetcher struct {
	data  []byte
	err   error
	calls int
}

func (s *stubFetcher) Fetch(context.Context, string) ([]byte, error) {
	s.calls++
	return s.data, s.err
}

type failingStore struct {
	*storage.MemoryStore
	existsErr error
	putErr    error
}

func (f *failingStore) Exists(ctx context.Context, key string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.MemoryStore.Exists(ctx, key)
}

func (f *failingStore) Put(ctx context.Context, key string, data []byte, ct string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	return f.MemoryStore.Put(ctx, key, data, ct)
}

func withMedia(t *testing.T, url string) *frontmatter.Metadata {
	t.Helper()
	m, _, err := frontmatter.Decode([]byte("---\ntitle: x\nmediaUrl: " + url + "\n---\nbody\n"))
	require.NoError(t, err)
	return m
}

func TestStorageKey(t *testing.T) {
	key, err := StorageKey("tips/split-panes.mdx", "https://external.example/img.jpg", "")
	require.NoError(t, err)
	assert.Regexp(t, `^split-panes-[0-9a-f]{8}\.jpg$`, key)

	again, err := StorageKey("other/dir/split-panes.mdx", "https://external.example/img.jpg", "")
	require.NoError(t, err)
	assert.Equal(t, key, again, "key depends only on stem and URL")

	other, err := StorageKey("tips/split-panes.mdx", "https://external.example/img2.jpg", "")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)

	noExt, err := StorageKey("tips/a.md", "https://external.example/render?id=7", "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(noExt, ".jpg"))

	custom, err := StorageKey("tips/a.md", "https://external.example/render", ".png")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(custom, ".png"))

	assert.Equal(t, "split-panes-8b31c200.jpg", key)
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"https://x.example/a.jpg":        "image/jpeg",
		"https://x.example/a.JPEG":       "image/jpeg",
		"https://x.example/a.png?v=2":    "image/png",
		"https://x.example/a.gif":        "image/gif",
		"https://x.example/a.webp":       "image/webp",
		"https://x.example/a.svg":        "image/svg+xml",
		"https://x.example/a.mp4":        "video/mp4",
		"https://x.example/a.webm":       "video/webm",
		"https://x.example/a.mov":        "video/quicktime",
		"https://x.example/a.tiff":       "application/octet-stream",
		"https://x.example/no-extension": "application/octet-stream",
	}
	for url, want := range tests {
		assert.Equal(t, want, ContentType(url), url)
	}
}

func TestRehomeMovesExternalMedia(t *testing.T) {
	store := storage.NewMemoryStore("https://media.example")
	fetcher := &stubFetcher{data: []byte("jpegbytes")}
	r := NewRehomer(fetcher, store, Options{})

	m := withMedia(t, "https://external.example/img.jpg")
	res, err := r.Rehome(context.Background(), m, "tips/split-panes.md")
	require.NoError(t, err)

	require.True(t, res.Moved)
	assert.True(t, res.Uploaded)
	assert.True(t, strings.HasPrefix(res.PublicURL, "https://media.example/split-panes-"))
	assert.Equal(t, "https://external.example/img.jpg", res.SourceURL)

	got, _ := res.Metadata.Lookup(FieldMediaURL)
	assert.Equal(t, res.PublicURL, got)

	orig, _ := m.Lookup(FieldMediaURL)
	assert.Equal(t, "https://external.example/img.jpg", orig, "input metadata untouched")

	obj, ok := store.Get(res.Key)
	require.True(t, ok)
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.Equal(t, []byte("jpegbytes"), obj.Data)

	// second pass sees the store's own host
	second, err := r.Rehome(context.Background(), res.Metadata, "tips/split-panes.md")
	require.NoError(t, err)
	assert.False(t, second.Moved)
	again, _ := second.Metadata.Lookup(FieldMediaURL)
	assert.Equal(t, res.PublicURL, again)
	assert.Equal(t, 1, fetcher.calls)
	assert.Equal(t, 1, store.Puts())
}

func TestRehomeReusesExistingObject(t *testing.T) {
	store := storage.NewMemoryStore("https://media.example")
	fetcher := &stubFetcher{data: []byte("bytes")}
	r := NewRehomer(fetcher, store, Options{})

	first, err := r.Rehome(context.Background(), withMedia(t, "https://external.example/img.jpg"), "tips/a.md")
	require.NoError(t, err)

	// same source referenced again from an unrewritten copy
	second, err := r.Rehome(context.Background(), withMedia(t, "https://external.example/img.jpg"), "tips/a.md")
	require.NoError(t, err)
	assert.True(t, second.Moved)
	assert.False(t, second.Uploaded)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, 1, store.Puts())
}

func TestRehomeSkips(t *testing.T) {
	store := storage.NewMemoryStore("https://media.example")
	fetcher := &stubFetcher{}
	r := NewRehomer(fetcher, store, Options{})

	res, err := r.Rehome(context.Background(), frontmatter.NewMetadata(), "tips/a.md")
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Equal(t, "no mediaUrl", res.Skipped)

	res, err = r.Rehome(context.Background(), withMedia(t, "https://MEDIA.example/a.gif"), "tips/a.md")
	require.NoError(t, err)
	assert.False(t, res.Moved)
	assert.Equal(t, "already in media store", res.Skipped)
	assert.Zero(t, fetcher.calls)
}

func TestRehomeErrors(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name      string
		fetcher   *stubFetcher
		store     ObjectStore
		wantStage string
		check     func(t *testing.T, err error)
	}{
		{
			name:      "fetch",
			fetcher:   &stubFetcher{err: &FetchError{URL: "u", StatusCode: 404}},
			store:     storage.NewMemoryStore("https://media.example"),
			wantStage: StageFetch,
			check: func(t *testing.T, err error) {
				var fe *FetchError
				require.True(t, errors.As(err, &fe))
				assert.Equal(t, 404, fe.StatusCode)
			},
		},
		{
			name:      "exists",
			fetcher:   &stubFetcher{data: []byte("x")},
			store:     &failingStore{MemoryStore: storage.NewMemoryStore("https://media.example"), existsErr: boom},
			wantStage: StageExists,
			check: func(t *testing.T, err error) {
				var ue *UploadError
				require.True(t, errors.As(err, &ue))
				assert.ErrorIs(t, err, boom)
			},
		},
		{
			name:      "upload",
			fetcher:   &stubFetcher{data: []byte("x")},
			store:     &failingStore{MemoryStore: storage.NewMemoryStore("https://media.example"), putErr: boom},
			wantStage: StageUpload,
			check: func(t *testing.T, err error) {
				var ue *UploadError
				require.True(t, errors.As(err, &ue))
				assert.Contains(t, ue.Key, "a-")
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRehomer(tt.fetcher, tt.store, Options{})
			m := withMedia(t, "https://external.example/img.jpg")

			res, err := r.Rehome(context.Background(), m, "tips/a.md")
			require.Error(t, err)
			assert.Nil(t, res)

			var re *RehomeError
			require.True(t, errors.As(err, &re))
			assert.Equal(t, tt.wantStage, re.Stage)
			assert.Equal(t, "tips/a.md", re.DocumentID)
			assert.Equal(t, "https://external.example/img.jpg", re.SourceURL)
			tt.check(t, err)

			assert.False(t, m.Modified())
		})
	}
}

func TestHTTPFetcher(t *testing.T) {
	var hits int32
	mux := http.NewServeMux()
	mux.HandleFunc("/img.gif", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		assert.Contains(t, r.Header.Get("User-Agent"), "tipguard/")
		_, _ = w.Write([]byte("GIF89a"))
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/img.gif", http.StatusFound)
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/loop/", func(w http.ResponseWriter, r *http.Request) {
		var n int
		_, _ = fmt.Sscanf(r.URL.Path, "/loop/%d", &n)
		http.Redirect(w, r, fmt.Sprintf("/loop/%d", n+1), http.StatusFound)
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("late"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := NewHTTPFetcher(FetcherOptions{Timeout: 2 * time.Second, MaxRedirects: 3, MaxBytes: 32})
	ctx := context.Background()

	data, err := f.Fetch(ctx, srv.URL+"/img.gif")
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), data)

	data, err = f.Fetch(ctx, srv.URL+"/moved")
	require.NoError(t, err)
	assert.Equal(t, []byte("GIF89a"), data)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))

	_, err = f.Fetch(ctx, srv.URL+"/missing")
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)

	_, err = f.Fetch(ctx, srv.URL+"/loop/0")
	require.True(t, errors.As(err, &fe))
	assert.Zero(t, fe.StatusCode)
	assert.Contains(t, err.Error(), "redirects")

	_, err = f.Fetch(ctx, srv.URL+"/big")
	require.True(t, errors.As(err, &fe))
	assert.ErrorIs(t, err, ErrTooLarge)

	short := NewHTTPFetcher(FetcherOptions{Timeout: 50 * time.Millisecond})
	_, err = short.Fetch(ctx, srv.URL+"/slow")
	require.True(t, errors.As(err, &fe))
}

func TestRehomeWithHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("video"))
	}))
	defer srv.Close()

	store := storage.NewMemoryStore("https://media.example")
	r := NewRehomer(NewHTTPFetcher(FetcherOptions{}), store, Options{DefaultExtension: "mp4"})

	res, err := r.Rehome(context.Background(), withMedia(t, srv.URL+"/clip"), "tips/demo.mdx")
	require.NoError(t, err)
	require.True(t, res.Moved)
	assert.True(t, strings.HasSuffix(res.Key, ".mp4"))
	assert.Regexp(t, `^https://media\.example/demo-[0-9a-f]{8}\.mp4$`, res.PublicURL)
}
