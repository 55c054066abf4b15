// Package loader implements the project-loading pipeline: root
// discovery, cookbook discovery/full-mode loading, and helper/template
// loading, producing a config.Project ready for the dependency graph
// and executor.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
)

var projectFileNames = []string{"bake.yml", "bake.yaml"}

// ErrProjectNotFound is returned when no bake.yml/bake.yaml is found
// walking upward from the start directory to the filesystem root.
type ErrProjectNotFound struct {
	StartDir string
}

func (e *ErrProjectNotFound) Error() string {
	return fmt.Sprintf("loader: no bake.yml found above %s", e.StartDir)
}

// DiscoverRoot walks upward from startDir until it finds a project
// file, returning the directory that contains it and the file's path.
// If explicitPath is non-empty, it is used directly instead of
// walking — it may name either the project root directory or the
// config file itself.
func DiscoverRoot(startDir, explicitPath string) (dir, file string, err error) {
	if explicitPath != "" {
		info, err := os.Stat(explicitPath)
		if err != nil {
			return "", "", err
		}
		if info.IsDir() {
			for _, name := range projectFileNames {
				candidate := filepath.Join(explicitPath, name)
				if _, err := os.Stat(candidate); err == nil {
					return explicitPath, candidate, nil
				}
			}
			return "", "", &ErrProjectNotFound{StartDir: explicitPath}
		}
		return filepath.Dir(explicitPath), explicitPath, nil
	}

	dir = startDir
	for {
		for _, name := range projectFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return dir, candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", "", &ErrProjectNotFound{StartDir: startDir}
		}
		dir = parent
	}
}
