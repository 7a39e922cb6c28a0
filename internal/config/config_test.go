package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/etorres/rbackup/internal/rsync"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRsyncOptionsDefault(t *testing.T) {
	viper.Reset()
	assert.Equal(t, rsync.DefaultOptions, RsyncOptions())
}

func TestRsyncOptionsFromConfig(t *testing.T) {
	viper.Reset()
	viper.Set("main.rsync_options", `["--archive", "--verbose"]`)
	assert.Equal(t, []string{"--archive", "--verbose"}, RsyncOptions())
}

func TestRsyncOptionsMalformedFallsBack(t *testing.T) {
	viper.Reset()
	viper.Set("main.rsync_options", `not json`)
	assert.Equal(t, rsync.DefaultOptions, RsyncOptions())
}

func TestUmask(t *testing.T) {
	viper.Reset()
	assert.Equal(t, 0, Umask())

	viper.Set("main.umask", "0077")
	assert.Equal(t, 0o077, Umask())

	viper.Set("main.umask", "bogus")
	assert.Equal(t, 0, Umask())
}

func TestParseUmask(t *testing.T) {
	mask, err := ParseUmask("0027")
	require.NoError(t, err)
	assert.Equal(t, 0o027, mask)

	for _, bad := range []string{"", "9x", "-1", "1777"} {
		_, err := ParseUmask(bad)
		assert.Error(t, err, "expected %q to be rejected", bad)
	}
}

func TestFilesBySuffix(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"etc-include.conf", "home-include.conf", "var-exclude.conf", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	includes, err := FilesBySuffix(dir, "-include.conf")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "etc-include.conf"),
		filepath.Join(dir, "home-include.conf"),
	}, includes)
}

func TestMergeFilesFiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b-include.conf"), []byte(
		"# a comment\n/var/lib\n; another comment\n\n/boot\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-include.conf"), []byte(
		"  indented is a comment\n/etc\n\t/tabbed-is-comment\n/home\n"), 0644))

	files, err := FilesBySuffix(dir, "-include.conf")
	require.NoError(t, err)

	merged, err := MergeFiles(files)
	require.NoError(t, err)
	defer os.Remove(merged)

	data, err := os.ReadFile(merged)
	require.NoError(t, err)
	assert.Equal(t, "/boot\n/etc\n/home\n/var/lib\n", string(data))
}

func TestMergeIncludeFilesCleanup(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "x-include.conf"), []byte("/etc\n"), 0644))

	path, cleanup, err := MergeIncludeFiles(dir)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	cleanup()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestMergeExcludeFilesEmptyDir(t *testing.T) {
	path, cleanup, err := MergeExcludeFiles(t.TempDir())
	require.NoError(t, err)
	defer cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)
}
