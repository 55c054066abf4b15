package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProjectFileParsesToolAndCacheConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bake.yml")
	require.NoError(t, os.WriteFile(path, []byte(""+
		"name: demo\n"+
		"config:\n"+
		"  max_parallel: 8\n"+
		"  fast_fail: true\n"+
		"  min_version: \"1.2.0\"\n"+
		"cache:\n"+
		"  mode: local\n"+
		"  dir: .bake/cache\n"+
		"  remote:\n"+
		"    - name: s3-main\n"+
		"      driver: s3\n"+
		"      bucket: my-bucket\n"+
		"update:\n"+
		"  enabled: true\n"+
		"  channel: stable\n"), 0o644))

	p, err := loadProjectFile(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Name)
	assert.Equal(t, 8, p.Tool.MaxParallel)
	assert.True(t, p.Tool.FastFail)
	assert.Equal(t, "1.2.0", p.Tool.MinVersion)
	assert.Equal(t, "local", p.Cache.Mode)
	require.Len(t, p.Cache.Remote, 1)
	assert.Equal(t, "s3", p.Cache.Remote[0].Driver)
	assert.True(t, p.Update.Enabled)
	assert.Contains(t, p.RawYAML(), "max_parallel: 8")
}

func TestLoadProjectFileRejectsUnknownField(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bake.yml")
	require.NoError(t, os.WriteFile(path, []byte("name: demo\nbogus: true\n"), 0o644))

	_, err := loadProjectFile(path)
	require.Error(t, err)
}
