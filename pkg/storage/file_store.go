package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore reads cover files from local disk. Relative paths resolve
// against basePath.
type FileStore struct {
	basePath string
}

// NewFileStore returns a store rooted at basePath ("" means the working directory).
func NewFileStore(basePath string) *FileStore {
	return &FileStore{basePath: strings.TrimSpace(basePath)}
}

// Open opens a local file for reading.
func (f *FileStore) Open(path string) (io.ReadCloser, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("cover path is required")
	}
	if !filepath.IsAbs(path) && f.basePath != "" {
		path = filepath.Join(f.basePath, path)
	}
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open cover: %w", err)
	}
	return file, nil
}
