// Package hfs provides the local-filesystem primitives bake's cache and
// config layers build on: atomic writes, sharded blob paths, and
// doublestar-glob aware walking. Unlike the multi-backend FS abstraction
// this is grounded on, bake only ever talks to the local disk (plus the
// CAS backends in the cas package, which speak their own APIs), so there
// is no virtual FS interface here.
package hfs

import (
	"os"
	"path/filepath"

	"github.com/trinio-labs/bake/internal/hinstance"
	"lukechampine.com/blake3"
)

func processUniquePath(p string) string {
	sum := blake3.Sum256([]byte(hinstance.UID))
	return p + ".tmp-" + hinstance.UID[:min(8, len(hinstance.UID))] + "-" + hashSuffix(sum[:])
}

func hashSuffix(b []byte) string {
	const hex = "0123456789abcdef"
	out := make([]byte, 6)
	for i := range out {
		out[i] = hex[b[i]&0xf]
	}
	return string(out)
}

// AtomicWriteFile writes data to a temp file alongside path and renames it
// into place, so readers never observe a partially written file.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := processUniquePath(path)
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// AtomicFile is an *os.File opened against a temp name that renames itself
// into place on Close, for callers that need to stream writes rather than
// buffer a []byte up front (e.g. decompressing a blob straight to disk).
type AtomicFile struct {
	*os.File
	tmp  string
	name string
}

func CreateAtomic(path string, perm os.FileMode) (*AtomicFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	tmp := processUniquePath(path)
	f, err := os.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return nil, err
	}

	return &AtomicFile{File: f, tmp: tmp, name: path}, nil
}

func (f *AtomicFile) Close() error {
	if err := f.File.Close(); err != nil {
		os.Remove(f.tmp)
		return err
	}
	return os.Rename(f.tmp, f.name)
}

// Abort discards the temp file without renaming it into place, for when
// the write fails partway through.
func (f *AtomicFile) Abort() error {
	_ = f.File.Close()
	return os.Remove(f.tmp)
}
