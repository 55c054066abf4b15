package hfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/internal/hfs"
)

func TestAtomicWriteFileNeverLeavesPartialFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "blob")

	err := hfs.AtomicWriteFile(target, []byte("hello"), 0o644)
	require.NoError(t, err)

	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(b))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp file")
}

func TestCreateAtomicAbortLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "blob")

	f, err := hfs.CreateAtomic(target, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, f.Abort())

	_, err = os.Stat(target)
	assert.True(t, os.IsNotExist(err))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
