package hfs

import (
	"path/filepath"
	"strings"
)

// HasPathPrefix reports whether path is prefix or a descendant of prefix,
// without the string-concat that strings.HasPrefix(path, prefix+"/") does.
func HasPathPrefix(path, prefix string) bool {
	return path == prefix || len(path) > len(prefix) &&
		strings.HasPrefix(path, prefix) &&
		path[len(prefix)] == '/'
}

// ShardPath splits a hex-encoded content digest into a two-character
// shard directory and the remaining filename, so a blob store never puts
// more than a few thousand files in one directory:
// "a1b2c3..." -> ("a1", "b2c3...").
func ShardPath(digest string) (dir, name string) {
	if len(digest) <= 2 {
		return "", digest
	}
	return digest[:2], digest[2:]
}

// ShardedPath joins root, the two-character shard dir, and the remaining
// digest into a single blob path.
func ShardedPath(root, digest string) string {
	dir, name := ShardPath(digest)
	return filepath.Join(root, dir, name)
}
