package store

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
)

// BlobDir is the host directory holding downloaded resource blobs, one file
// per resource id.
type BlobDir struct {
	fs billy.Filesystem
}

// NewBlobDir opens dir, creating it when missing.
func NewBlobDir(dir string) (*BlobDir, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("error creating resource dir: %w", err)
	}
	return &BlobDir{fs: osfs.New(dir, osfs.WithBoundOS())}, nil
}

// NewMemoryBlobDir keeps blobs in memory.
func NewMemoryBlobDir() *BlobDir {
	return &BlobDir{fs: memfs.New()}
}

func (b *BlobDir) FS() billy.Filesystem {
	return b.fs
}

func (b *BlobDir) BlobPath(id string) string {
	return id
}
