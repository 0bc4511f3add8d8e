package batch

import (
	"context"
	"fmt"

	"github.com/fulmenhq/tipguard/pkg/safeio"
)

// Store reads and writes whole documents by identifier.
type Store interface {
	Read(ctx context.Context, id string) ([]byte, error)
	Write(ctx context.Context, id string, data []byte) error
}

// FileStore addresses documents as paths contained in Root.
type FileStore struct {
	Root string
}

// NewFileStore creates a store rooted at root ("." for the working directory).
func NewFileStore(root string) *FileStore {
	if root == "" {
		root = "."
	}
	return &FileStore{Root: root}
}

func (s *FileStore) Read(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := safeio.ReadFileContained(s.Root, id)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return data, nil
}

// Write replaces the document atomically.
func (s *FileStore) Write(ctx context.Context, id string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := safeio.ResolveContained(s.Root, id)
	if err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	if err := safeio.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write %s: %w", id, err)
	}
	return nil
}
