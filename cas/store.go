// Package cas implements bake's content-addressable blob storage: a
// BlobStore abstraction with local-filesystem, S3, and GCS backends, a
// LayeredBlobStore composite that promotes blobs fetched from a remote
// tier into faster local tiers, and the BlobIndex metadata store used for
// cache eviction.
package cas

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/trinio-labs/bake/hash"
	"github.com/trinio-labs/bake/internal/herrgroup"
)

// ErrNotFound is returned by Get when the requested blob does not exist
// in the store. Backends must translate their own not-found signal
// (os.ErrNotExist, storage.ErrObjectNotExist, S3's NoSuchKey) into this
// error rather than have callers string-match driver errors.
var ErrNotFound = errors.New("cas: blob not found")

// BlobStore is the capability set every cache tier implements: content-
// addressed put/get/contains/delete, plus bounded-concurrency batch
// variants for bulk cache-restore/populate operations.
type BlobStore interface {
	// Put stores b and returns its BlobHash. Put is idempotent: storing
	// identical content twice yields the same hash and does not create a
	// second copy.
	Put(ctx context.Context, algo hash.Algo, b []byte) (hash.BlobHash, error)

	// PutReader is like Put but takes the content from r. LocalBlobStore
	// streams r to disk; the S3, GCS and layered stores read r fully into
	// memory first.
	PutReader(ctx context.Context, algo hash.Algo, r io.Reader) (hash.BlobHash, error)

	// Get returns the blob's content, or ErrNotFound if h isn't present
	// in this store.
	Get(ctx context.Context, h hash.BlobHash) ([]byte, error)

	// GetReader is like Get but returns a stream, for large blobs the
	// caller wants to write straight to disk.
	GetReader(ctx context.Context, h hash.BlobHash) (io.ReadCloser, error)

	// Contains reports whether h is present in this store.
	Contains(ctx context.Context, h hash.BlobHash) (bool, error)

	// Delete removes h. Deleting a hash that isn't present is not an
	// error.
	Delete(ctx context.Context, h hash.BlobHash) error

	// List enumerates every BlobHash present in this store.
	List(ctx context.Context) (iter.Seq[hash.BlobHash], error)
}

// Addressable is implemented by stores that can write a blob at an
// explicit, caller-chosen hash rather than one derived from the content
// itself. The action cache uses this to store a signed manifest under
// the hash of its action key, so a cache lookup can locate the manifest
// without a separate index round trip — the same "digest of the request,
// not of the response" indirection a remote action-cache service uses.
type Addressable interface {
	PutAt(ctx context.Context, h hash.BlobHash, b []byte) error
}

// Concurrency bounds the batch helpers apply. Hashing, upload, and
// download each get their own bound since they contend for different
// resources (CPU, outbound bandwidth, inbound bandwidth/fds).
type Concurrency struct {
	Upload   int
	Download int
	Hash     int
}

// DefaultConcurrency matches spec's guidance: enough in-flight requests to
// saturate a network tier without exhausting file descriptors.
var DefaultConcurrency = Concurrency{Upload: 8, Download: 16, Hash: 4}

// ContainsMany checks presence of every hash in hashes with bounded
// parallelism, returning a map from hash string to presence.
func ContainsMany(ctx context.Context, s BlobStore, hashes []hash.BlobHash, limit int) (map[string]bool, error) {
	if limit <= 0 {
		limit = DefaultConcurrency.Download
	}

	results := make(map[string]bool, len(hashes))
	var mu sync.Mutex

	g, gctx := herrgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, h := range hashes {
		h := h
		g.Go(func() error {
			ok, err := s.Contains(gctx, h)
			if err != nil {
				return err
			}
			mu.Lock()
			results[h.String()] = ok
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetMany fetches every hash in hashes with bounded parallelism. A
// missing blob is reported via ErrNotFound wrapped with the hash, not
// silently dropped from the result.
func GetMany(ctx context.Context, s BlobStore, hashes []hash.BlobHash, limit int) (map[string][]byte, error) {
	if limit <= 0 {
		limit = DefaultConcurrency.Download
	}

	results := make(map[string][]byte, len(hashes))
	var mu sync.Mutex

	g, gctx := herrgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, h := range hashes {
		h := h
		g.Go(func() error {
			b, err := s.Get(gctx, h)
			if err != nil {
				return fmt.Errorf("cas: get %s: %w", h, err)
			}
			mu.Lock()
			results[h.String()] = b
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// PutMany stores every blob in blobs with bounded parallelism.
func PutMany(ctx context.Context, s BlobStore, algo hash.Algo, blobs [][]byte, limit int) ([]hash.BlobHash, error) {
	if limit <= 0 {
		limit = DefaultConcurrency.Upload
	}

	results := make([]hash.BlobHash, len(blobs))

	g, gctx := herrgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, b := range blobs {
		i, b := i, b
		g.Go(func() error {
			h, err := s.Put(gctx, algo, b)
			if err != nil {
				return err
			}
			results[i] = h
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
