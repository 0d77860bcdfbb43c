package infrastructure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/tikdown-go/internal/domain"
)

func TestFileStorage_AllocateCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tikdown")
	storage := NewFileStorage(dir)

	handle, err := storage.Allocate("抖音下载.mp4")
	require.NoError(t, err)
	defer handle.Close()

	assert.Equal(t, filepath.Join(dir, "抖音下载.mp4"), handle.Location())
	_, err = os.Stat(handle.Location())
	assert.NoError(t, err)
}

func TestFileStorage_CollisionSuffix(t *testing.T) {
	storage := NewFileStorage(t.TempDir())

	first, err := storage.Allocate("clip.mp4")
	require.NoError(t, err)
	first.Close()

	second, err := storage.Allocate("clip.mp4")
	require.NoError(t, err)
	second.Close()

	third, err := storage.Allocate("clip.mp4")
	require.NoError(t, err)
	third.Close()

	assert.Equal(t, "clip.mp4", filepath.Base(first.Location()))
	assert.Equal(t, "clip (1).mp4", filepath.Base(second.Location()))
	assert.Equal(t, "clip (2).mp4", filepath.Base(third.Location()))
}

func TestFileStorage_SanitizesName(t *testing.T) {
	dir := t.TempDir()
	storage := NewFileStorage(dir)

	handle, err := storage.Allocate("../escape.mp4")
	require.NoError(t, err)
	defer handle.Close()

	assert.Equal(t, filepath.Join(dir, "..escape.mp4"), handle.Location())
}

func TestFileStorage_EmptyName(t *testing.T) {
	storage := NewFileStorage(t.TempDir())

	_, err := storage.Allocate("/.mp4")
	var storageErr *domain.StorageError
	assert.ErrorAs(t, err, &storageErr)
}

func TestFileHandle_Remove(t *testing.T) {
	storage := NewFileStorage(t.TempDir())

	handle, err := storage.Allocate("clip.mp4")
	require.NoError(t, err)
	_, err = handle.Write([]byte("partial"))
	require.NoError(t, err)

	require.NoError(t, handle.Remove())
	_, err = os.Stat(handle.Location())
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, handle.Remove(), "removing twice is harmless")
}
