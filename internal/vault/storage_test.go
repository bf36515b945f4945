package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeready/core/internal/commitment"
)

func TestLocalStorage_UploadTargetIsDeterministicPerDocument(t *testing.T) {
	root := t.TempDir()
	storage, err := NewLocalStorage(root)
	require.NoError(t, err)

	url1, headers1 := storage.UploadTarget("doc-1")
	url2, _ := storage.UploadTarget("doc-1")
	url3, _ := storage.UploadTarget("doc-2")

	assert.Equal(t, url1, url2)
	assert.NotEqual(t, url1, url3)
	assert.Equal(t, "file://"+filepath.Join(root, "doc-1"), url1)
	assert.NotEmpty(t, headers1)
}

func TestLocalStorage_PathResolution(t *testing.T) {
	root := t.TempDir()
	storage, err := NewLocalStorage(root)
	require.NoError(t, err)

	assert.Equal(t, "/abs/path", storage.Path("/abs/path"))
	assert.Equal(t, "/tmp/x", storage.Path("file:///tmp/x"))
	assert.Equal(t, filepath.Join(root, "rel/path"), storage.Path("rel/path"))
}

func TestLocalStorage_ExistsAndResolve(t *testing.T) {
	root := t.TempDir()
	storage, err := NewLocalStorage(root)
	require.NoError(t, err)

	content := []byte("blob contents")
	path := filepath.Join(root, "doc-1")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	assert.True(t, storage.Exists("doc-1"))
	assert.False(t, storage.Exists("missing"))

	sha := commitment.HashBytes(content)
	got, err := storage.Resolve("doc-1", sha)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestLocalStorage_ResolveRejectsMismatchedHash(t *testing.T) {
	root := t.TempDir()
	storage, err := NewLocalStorage(root)
	require.NoError(t, err)

	path := filepath.Join(root, "doc-1")
	require.NoError(t, os.WriteFile(path, []byte("real content"), 0o644))

	_, err = storage.Resolve("doc-1", commitment.HashBytes([]byte("wrong content")))
	assert.Error(t, err)
}

func TestLocalStorage_ResolveMissingFile(t *testing.T) {
	root := t.TempDir()
	storage, err := NewLocalStorage(root)
	require.NoError(t, err)

	_, err = storage.Resolve("absent", commitment.HashBytes([]byte("x")))
	assert.Error(t, err)
}
