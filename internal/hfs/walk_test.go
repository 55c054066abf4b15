package hfs_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/internal/hfs"
)

func TestWalkFilesSkipsIgnoredDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dist", "out.bin"), []byte("x"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "main.go"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cookbook.yml"), []byte("x"), 0o644))

	ig := hfs.NewIgnorer([]string{"dist/"})

	var seen []string
	err := hfs.WalkFiles(dir, ig, func(rel string, d fs.DirEntry) error {
		if !d.IsDir() {
			seen = append(seen, rel)
		}
		return nil
	})
	require.NoError(t, err)

	sort.Strings(seen)
	assert.Equal(t, []string{"cookbook.yml", "src/main.go"}, seen)
}

func TestNewIgnorerFromFileMissingIsNotError(t *testing.T) {
	ig, err := hfs.NewIgnorerFromFile(filepath.Join(t.TempDir(), ".bakeignore"))
	require.NoError(t, err)
	assert.False(t, ig.MatchesPath("anything"))
}

func TestPathMatchAny(t *testing.T) {
	match, err := hfs.PathMatchAny("src/main.go", "src/**/*.go")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = hfs.PathMatchAny("src/main.py", "src/**/*.go")
	require.NoError(t, err)
	assert.False(t, match)
}
