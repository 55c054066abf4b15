package hfs

import (
	"io/fs"
	"os"
	"path/filepath"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Ignorer matches paths against .gitignore-style patterns. It wraps
// sabhiram/go-gitignore, which bake's cookbook discovery uses to skip
// build outputs, vendor directories, and anything a project's .bakeignore
// excludes. A project's .gitignore is not read.
type Ignorer struct {
	gi *gitignore.GitIgnore
}

// NewIgnorer compiles patterns in .gitignore syntax.
func NewIgnorer(patterns []string) *Ignorer {
	if len(patterns) == 0 {
		return &Ignorer{}
	}
	return &Ignorer{gi: gitignore.CompileIgnoreLines(patterns...)}
}

// NewIgnorerFromFile loads patterns from a .gitignore/.bakeignore file.
// A missing file is not an error; it just means nothing is ignored.
func NewIgnorerFromFile(path string) (*Ignorer, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Ignorer{}, nil
	}
	gi, err := gitignore.CompileIgnoreFile(path)
	if err != nil {
		return nil, err
	}
	return &Ignorer{gi: gi}, nil
}

// MatchesPath reports whether rel (slash-separated, relative to the
// ignore file's directory) should be excluded.
func (ig *Ignorer) MatchesPath(rel string) bool {
	if ig == nil || ig.gi == nil {
		return false
	}
	return ig.gi.MatchesPath(rel)
}

// WalkFiles walks root depth-first, skipping any directory or file that
// ig excludes, and calls fn with the path relative to root for everything
// that survives.
func WalkFiles(root string, ig *Ignorer, fn func(rel string, d fs.DirEntry) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if ig.MatchesPath(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		return fn(rel, d)
	})
}
