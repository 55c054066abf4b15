package hfs

import "os"

// Exists reports whether a file or directory exists at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
