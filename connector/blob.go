package connector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/origin-steward/steward/core"
)

// BlobStore persists binary payloads outside the record stores.
type BlobStore interface {
	// StoreBlob writes data and returns the path it can be retrieved from.
	// The same bytes always map to the same path.
	StoreBlob(ctx context.Context, data []byte, extension string) (string, error)
}

// DirBlobStore is a content-addressed blob store over a local directory.
type DirBlobStore struct {
	dir string
}

var _ BlobStore = (*DirBlobStore)(nil)

// NewDirBlobStore creates a blob store rooted at dir, creating it if needed.
func NewDirBlobStore(dir string) (*DirBlobStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &DirBlobStore{dir: dir}, nil
}

// StoreBlob writes data under a name derived from its content hash.
// Rewriting the same bytes is a no-op, which keeps retries side-effect free.
func (s *DirBlobStore) StoreBlob(ctx context.Context, data []byte, extension string) (string, error) {
	name := core.IDFromContent(string(data)).String() + extension
	path := filepath.Join(s.dir, name)

	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write blob %s: %w", name, err)
	}
	return path, nil
}
