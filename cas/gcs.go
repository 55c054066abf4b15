package cas

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"

	"cloud.google.com/go/storage"
	"github.com/trinio-labs/bake/hash"
	"google.golang.org/api/iterator"
)

// GCSBlobStore stores blobs in a Google Cloud Storage bucket under
// <prefix>/<algo>/<aa>/<hex>. Auth goes through the client library's
// default credential chain, which resolves Workload Identity Federation
// on GKE/GCE without any bake-specific credential plumbing.
type GCSBlobStore struct {
	bucket *storage.BucketHandle
	prefix string
}

func NewGCSBlobStore(ctx context.Context, bucketName, prefix string) (*GCSBlobStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	return &GCSBlobStore{bucket: client.Bucket(bucketName), prefix: prefix}, nil
}

func (s *GCSBlobStore) key(h hash.BlobHash) string {
	return joinKey(s.prefix, string(h.Algo), h.Shard(), hexDigest(h))
}

func (s *GCSBlobStore) Put(ctx context.Context, algo hash.Algo, b []byte) (hash.BlobHash, error) {
	return s.PutReader(ctx, algo, bytes.NewReader(b))
}

func (s *GCSBlobStore) PutReader(ctx context.Context, algo hash.Algo, r io.Reader) (hash.BlobHash, error) {
	hs := hash.NewHasher(algo)
	b, err := io.ReadAll(io.TeeReader(r, hs))
	if err != nil {
		return hash.BlobHash{}, err
	}
	h := hs.Finalize()

	w := s.bucket.Object(s.key(h)).NewWriter(ctx)
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return hash.BlobHash{}, err
	}
	if err := w.Close(); err != nil {
		return hash.BlobHash{}, err
	}

	return h, nil
}

// PutAt writes b at the explicit address h, bypassing content hashing.
func (s *GCSBlobStore) PutAt(ctx context.Context, h hash.BlobHash, b []byte) error {
	w := s.bucket.Object(s.key(h)).NewWriter(ctx)
	if _, err := w.Write(b); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *GCSBlobStore) Get(ctx context.Context, h hash.BlobHash) ([]byte, error) {
	r, err := s.GetReader(ctx, h)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *GCSBlobStore) GetReader(ctx context.Context, h hash.BlobHash) (io.ReadCloser, error) {
	r, err := s.bucket.Object(s.key(h)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

func (s *GCSBlobStore) Contains(ctx context.Context, h hash.BlobHash) (bool, error) {
	_, err := s.bucket.Object(s.key(h)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *GCSBlobStore) Delete(ctx context.Context, h hash.BlobHash) error {
	err := s.bucket.Object(s.key(h)).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSBlobStore) List(ctx context.Context) (iter.Seq[hash.BlobHash], error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: s.prefix})

	return func(yield func(hash.BlobHash) bool) {
		for {
			attrs, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				return
			}

			h, ok := parseKey(s.prefix, attrs.Name)
			if !ok {
				continue
			}
			if !yield(h) {
				return
			}
		}
	}, nil
}

var _ Addressable = (*GCSBlobStore)(nil)
