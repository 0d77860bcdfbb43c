package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/yourusername/tikdown-go/internal/domain"
)

// maxCollisionSuffix bounds the " (n)" search when a name is taken
const maxCollisionSuffix = 1000

// FileStorage allocates download files in a directory
type FileStorage struct {
	dir string
}

// NewFileStorage creates storage rooted at dir
func NewFileStorage(dir string) *FileStorage {
	return &FileStorage{dir: dir}
}

// Dir returns the directory files are written to
func (s *FileStorage) Dir() string {
	return s.dir
}

// Allocate implements domain.Storage. The file exists on return.
func (s *FileStorage) Allocate(displayName string) (domain.DownloadHandle, error) {
	ext := filepath.Ext(displayName)
	base := domain.SanitizeFileName(strings.TrimSuffix(displayName, ext))
	if base == "" {
		return nil, &domain.StorageError{Name: displayName, Err: errors.New("empty file name")}
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, &domain.StorageError{Name: displayName, Err: err}
	}

	for i := 0; i <= maxCollisionSuffix; i++ {
		name := base + ext
		if i > 0 {
			name = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}
		path := filepath.Join(s.dir, name)

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err == nil {
			return &fileHandle{File: f, path: path}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, &domain.StorageError{Name: displayName, Err: err}
		}
	}

	return nil, &domain.StorageError{Name: displayName, Err: fmt.Errorf("too many files named %q", base+ext)}
}

// fileHandle is a DownloadHandle backed by a local file
type fileHandle struct {
	*os.File
	path string
}

func (h *fileHandle) Location() string {
	return h.path
}

// Remove closes the file if still open and deletes it
func (h *fileHandle) Remove() error {
	h.File.Close()
	if err := os.Remove(h.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
