package hfs

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// matchPrefix is equivalent to strings.HasPrefix(path, prefix+"/") without
// the string concat.
func matchPrefix(path, prefix string) bool {
	return len(path) > len(prefix) &&
		strings.HasPrefix(path, prefix) &&
		path[len(prefix)] == '/'
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

// fastMatchDir short-circuits the common case of a glob pattern with no
// meta characters at all: a plain directory or file prefix match, which
// doublestar would otherwise have to walk its matcher machinery for.
func fastMatchDir(path, matcher string) bool {
	if !hasMeta(matcher) {
		return path == matcher || matchPrefix(path, matcher)
	}
	return false
}

// PathMatchAny reports whether path matches any of the given doublestar
// glob patterns, used to resolve a recipe's `inputs:`/`outputs:` globs
// against the cookbook's file tree.
func PathMatchAny(path string, patterns ...string) (bool, error) {
	path = filepath.ToSlash(filepath.Clean(path))

	for _, pattern := range patterns {
		pattern = filepath.ToSlash(filepath.Clean(pattern))

		trimmed := strings.TrimSuffix(pattern, "/**/*")
		if trimmed != pattern && fastMatchDir(path, trimmed) {
			return true, nil
		}
		if fastMatchDir(path, pattern) {
			return true, nil
		}

		match, err := doublestar.Match(pattern, path)
		if match || err != nil {
			return match, err
		}
	}

	return false, nil
}

// Glob expands a doublestar pattern against fsys into a sorted list of
// matching paths.
func Glob(fsys fs.FS, pattern string) ([]string, error) {
	return doublestar.Glob(fsys, pattern)
}

// ExpandGlobs resolves a recipe's declared cache.inputs patterns
// against root: every non-"!"-prefixed pattern is expanded (via
// doublestar.FilepathGlob, which — unlike Glob's fs.FS-rooted walk —
// operates on real filesystem paths and so tolerates a pattern that
// escapes root through "../", e.g. a recipe sharing files with a
// sibling cookbook); any match also matched by a "!"-prefixed pattern
// is excluded; directories are dropped (only file content is
// fingerprinted); the result is deduplicated and sorted
// lexicographically by path relative to root.
func ExpandGlobs(root string, patterns []string) ([]string, error) {
	var positive, negative []string
	for _, p := range patterns {
		if rest, ok := strings.CutPrefix(p, "!"); ok {
			negative = append(negative, rest)
		} else {
			positive = append(positive, p)
		}
	}

	seen := map[string]bool{}
	for _, pattern := range positive {
		matches, err := doublestar.FilepathGlob(filepath.Join(root, pattern))
		if err != nil {
			return nil, err
		}
		for _, abs := range matches {
			info, err := os.Stat(abs)
			if err != nil {
				return nil, err
			}
			if info.IsDir() {
				continue
			}

			rel, err := filepath.Rel(root, abs)
			if err != nil {
				return nil, err
			}
			rel = filepath.ToSlash(rel)

			if excluded, err := matchesAny(rel, negative); err != nil {
				return nil, err
			} else if excluded {
				continue
			}

			seen[rel] = true
		}
	}

	out := make([]string, 0, len(seen))
	for rel := range seen {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out, nil
}

func matchesAny(rel string, patterns []string) (bool, error) {
	for _, pattern := range patterns {
		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
