// Package actioncache implements the signed Action Manifest: the record
// that maps a recipe's action key to the list of output blobs it produced,
// stored and fetched as a blob itself so remote cache sharing works
// end-to-end.
package actioncache

import (
	"time"

	"github.com/trinio-labs/bake/hash"
)

// OutputDescriptor records one file (or directory marker) a recipe
// declared as an output. FileSize and Chunked are supplemental to the
// literal {relative path, BlobHash, is_executable, is_directory_marker}
// fields: FileSize lets a cache lookup skip re-hashing a file that
// already exists locally with a matching size, and Chunked marks that
// Hash addresses a cas.ChunkManifest rather than the file's own bytes —
// set for outputs that crossed the content-defined-chunking threshold on
// store.
type OutputDescriptor struct {
	RelativePath      string        `json:"relative_path"`
	Hash              hash.BlobHash `json:"hash"`
	IsExecutable      bool          `json:"is_executable,omitempty"`
	IsDirectoryMarker bool          `json:"is_directory_marker,omitempty"`
	FileSize          int64         `json:"file_size,omitempty"`
	Chunked           bool          `json:"chunked,omitempty"`
}

// Manifest is the unsigned body of an action-cache entry: an action key's
// outputs plus enough execution metadata to report cache hits accurately.
type Manifest struct {
	ActionKey string             `json:"action_key"`
	Outputs   []OutputDescriptor `json:"outputs"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at"`
	ExitCode  *int               `json:"exit_code,omitempty"`
}
