package hfs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/trinio-labs/bake/internal/hfs"
)

func TestHasPathPrefix(t *testing.T) {
	tests := []struct {
		name   string
		parent string
		child  string
		want   bool
	}{
		{name: "direct child", parent: "parent", child: "parent/child", want: true},
		{name: "nested child", parent: "parent", child: "parent/child/grandchild", want: true},
		{name: "same path", parent: "parent", child: "parent", want: true},
		{name: "not a child", parent: "parent", child: "other", want: false},
		{name: "prefix but not a path boundary", parent: "parent", child: "parent2", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, hfs.HasPathPrefix(tt.child, tt.parent))
		})
	}
}

func TestShardPath(t *testing.T) {
	dir, name := hfs.ShardPath("a1b2c3d4e5")
	assert.Equal(t, "a1", dir)
	assert.Equal(t, "b2c3d4e5", name)

	dir, name = hfs.ShardPath("a1")
	assert.Equal(t, "", dir)
	assert.Equal(t, "a1", name)
}

func TestShardedPath(t *testing.T) {
	got := hfs.ShardedPath("/cache", "a1b2c3d4e5")
	assert.Equal(t, "/cache/a1/b2c3d4e5", got)
}
