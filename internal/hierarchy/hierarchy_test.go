package hierarchy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCanonicalizesPath(t *testing.T) {
	dir := t.TempDir()

	h, err := New(filepath.Join(dir, "sub", "..", "backup"))
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(h.Path()))
	assert.Equal(t, filepath.Join(dir, "backup"), h.Path())
}

func TestNewRelativePath(t *testing.T) {
	h, err := New("backup")
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "backup"), h.Path())
}

func TestNewEmptyPath(t *testing.T) {
	_, err := New("")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestNameIsBasename(t *testing.T) {
	h, err := New("/backup/data/snapshot-one")
	require.NoError(t, err)
	assert.Equal(t, "snapshot-one", h.Name())
}

func TestMetadataPath(t *testing.T) {
	h, err := New("/backup")
	require.NoError(t, err)
	assert.Equal(t, "/backup/.metadata", h.MetadataPath())
}

func TestMetadataRoundTrip(t *testing.T) {
	payloads := []any{
		[]string{},
		[]string{""},
		[]string{"first", "second"},
		map[string]string{"created_at": "2024-01-01T00:00:00Z"},
	}

	for _, payload := range payloads {
		h, err := New(t.TempDir())
		require.NoError(t, err)

		require.NoError(t, h.WriteMetadata(payload))

		switch want := payload.(type) {
		case []string:
			var got []string
			require.NoError(t, h.ReadMetadata(&got))
			assert.Equal(t, want, got)
		case map[string]string:
			var got map[string]string
			require.NoError(t, h.ReadMetadata(&got))
			assert.Equal(t, want, got)
		}
	}
}

func TestReadMetadataMissing(t *testing.T) {
	h, err := New(t.TempDir())
	require.NoError(t, err)

	var v []string
	assert.ErrorIs(t, h.ReadMetadata(&v), ErrMetadataNotFound)
}

func TestReadMetadataCorrupt(t *testing.T) {
	h, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(h.MetadataPath(), []byte("not json{"), 0644))

	var v []string
	assert.ErrorIs(t, h.ReadMetadata(&v), ErrMetadataCorrupt)
}

func TestWriteMetadataLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	h, err := New(dir)
	require.NoError(t, err)

	require.NoError(t, h.WriteMetadata([]string{"a"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".metadata", entries[0].Name())
}

func TestCleanupRemovesTree(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "victim")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nested", "file"), []byte("x"), 0644))

	h, err := New(root)
	require.NoError(t, err)
	require.NoError(t, h.Cleanup())

	_, err = os.Stat(root)
	assert.True(t, os.IsNotExist(err))
}
