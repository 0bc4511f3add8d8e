package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in memory. It backs tests and no-op runs.
type MemoryStore struct {
	publicURL string
	host      string

	mu      sync.Mutex
	objects map[string]Object
	puts    int
}

// Object is a stored payload.
type Object struct {
	Data        []byte
	ContentType string
}

// NewMemoryStore creates an empty store that hands out URLs under publicURL.
func NewMemoryStore(publicURL string) *MemoryStore {
	return &MemoryStore{
		publicURL: trimBase(publicURL),
		host:      hostOf(publicURL),
		objects:   make(map[string]Object),
	}
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: buf, ContentType: contentType}
	s.puts++
	return s.PublicURL(key), nil
}

func (s *MemoryStore) PublicURL(key string) string {
	return joinURL(s.publicURL, key)
}

func (s *MemoryStore) PublicHost() string {
	return s.host
}

// Get returns a stored object.
func (s *MemoryStore) Get(key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[key]
	return o, ok
}

// Puts counts successful Put calls.
func (s *MemoryStore) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}
