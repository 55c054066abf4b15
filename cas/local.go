package cas

import (
	"bytes"
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/trinio-labs/bake/hash"
	"github.com/trinio-labs/bake/internal/hfs"
)

// LocalBlobStore stores blobs on the local filesystem under
// <root>/<algo>/<aa>/<bbcc...>, two-character sharded so no directory
// ever holds more than a few thousand entries. Writes go through a
// temp-file-then-rename so a reader never observes a partial blob, and a
// PUT of content already on disk is a cheap stat-and-skip.
type LocalBlobStore struct {
	root string
}

func NewLocalBlobStore(root string) *LocalBlobStore {
	return &LocalBlobStore{root: root}
}

func (s *LocalBlobStore) path(h hash.BlobHash) string {
	dir, name := hfs.ShardPath(hexDigest(h))
	return filepath.Join(s.root, string(h.Algo), dir, name)
}

func hexDigest(h hash.BlobHash) string {
	return h.String()[len(h.Algo)+1:]
}

func (s *LocalBlobStore) Put(ctx context.Context, algo hash.Algo, b []byte) (hash.BlobHash, error) {
	return s.PutReader(ctx, algo, bytes.NewReader(b))
}

func (s *LocalBlobStore) PutReader(ctx context.Context, algo hash.Algo, r io.Reader) (hash.BlobHash, error) {
	hs := hash.NewHasher(algo)
	tee := io.TeeReader(r, hs)

	incoming := filepath.Join(s.root, "incoming")
	if err := os.MkdirAll(incoming, 0o755); err != nil {
		return hash.BlobHash{}, err
	}

	tmp, err := os.CreateTemp(incoming, "blob-*")
	if err != nil {
		return hash.BlobHash{}, err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, tee); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return hash.BlobHash{}, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return hash.BlobHash{}, err
	}

	h := hs.Finalize()
	final := s.path(h)

	if hfs.Exists(final) {
		// Content already stored under this hash; discard the temp copy
		// rather than overwrite an identical file.
		os.Remove(tmpName)
		return h, nil
	}

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		os.Remove(tmpName)
		return hash.BlobHash{}, err
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return hash.BlobHash{}, err
	}

	return h, nil
}

// PutAt writes b at the explicit address h, bypassing content hashing.
// Used by the action cache to store a manifest under the hash of its
// action key rather than the hash of the manifest bytes.
func (s *LocalBlobStore) PutAt(ctx context.Context, h hash.BlobHash, b []byte) error {
	final := s.path(h)
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return err
	}
	return hfs.AtomicWriteFile(final, b, 0o644)
}

func (s *LocalBlobStore) Get(ctx context.Context, h hash.BlobHash) ([]byte, error) {
	b, err := os.ReadFile(s.path(h))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return b, err
}

func (s *LocalBlobStore) GetReader(ctx context.Context, h hash.BlobHash) (io.ReadCloser, error) {
	f, err := os.Open(s.path(h))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return f, err
}

func (s *LocalBlobStore) Contains(ctx context.Context, h hash.BlobHash) (bool, error) {
	return hfs.Exists(s.path(h)), nil
}

func (s *LocalBlobStore) Delete(ctx context.Context, h hash.BlobHash) error {
	err := os.Remove(s.path(h))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *LocalBlobStore) List(ctx context.Context) (iter.Seq[hash.BlobHash], error) {
	var hashes []hash.BlobHash

	for _, algo := range []hash.Algo{hash.Blake3, hash.SHA256} {
		algoRoot := filepath.Join(s.root, string(algo))
		err := filepath.WalkDir(algoRoot, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(algoRoot, path)
			if err != nil {
				return err
			}
			digest := filepath.ToSlash(rel)
			digest = digest[:2] + digest[3:] // drop the shard-dir separator

			h, err := hash.ParseBlobHash(string(algo) + ":" + digest)
			if err != nil {
				return nil // skip anything that isn't a blob we wrote
			}
			hashes = append(hashes, h)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return func(yield func(hash.BlobHash) bool) {
		for _, h := range hashes {
			if !yield(h) {
				return
			}
		}
	}, nil
}

// Promote writes b (already known to be the content addressed by h, just
// fetched from a remote tier) into the local tier through PutReader,
// doing nothing if h is already present. It always writes a copy of b;
// hard-linking from another LocalBlobStore is HardLinkFrom's job.
func (s *LocalBlobStore) Promote(ctx context.Context, h hash.BlobHash, b []byte) error {
	ok, err := s.Contains(ctx, h)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	_, err = s.PutReader(ctx, h.Algo, bytes.NewReader(b))
	return err
}

// HardLinkFrom links the on-disk blob at h from src into s, used when
// restoring cached outputs from a LocalBlobStore that already proved the
// content is byte-identical (its hash matches), avoiding a full copy.
func (s *LocalBlobStore) HardLinkFrom(src *LocalBlobStore, h hash.BlobHash) error {
	target := s.path(h)
	if hfs.Exists(target) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	if err := os.Link(src.path(h), target); err != nil {
		// Cross-filesystem hard links fail with EXDEV; fall back to copy.
		b, rerr := src.Get(context.Background(), h)
		if rerr != nil {
			return rerr
		}
		return hfs.AtomicWriteFile(target, b, 0o644)
	}
	return nil
}

var _ Addressable = (*LocalBlobStore)(nil)
