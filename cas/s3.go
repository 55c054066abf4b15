package cas

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/trinio-labs/bake/hash"
)

// S3BlobStore stores blobs in an S3 (or S3-compatible) bucket under
// <prefix>/<algo>/<aa>/<hex>. It never sets an object ACL, so it works
// against buckets with bucket-owner-enforced object ownership — the
// common posture for any bucket managed by an org that cares about
// access control at the bucket level rather than per-object ACLs.
type S3BlobStore struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3BlobStore(client *s3.Client, bucket, prefix string) *S3BlobStore {
	return &S3BlobStore{client: client, bucket: bucket, prefix: prefix}
}

func (s *S3BlobStore) key(h hash.BlobHash) string {
	return joinKey(s.prefix, string(h.Algo), h.Shard(), hexDigest(h))
}

func (s *S3BlobStore) Put(ctx context.Context, algo hash.Algo, b []byte) (hash.BlobHash, error) {
	return s.PutReader(ctx, algo, bytes.NewReader(b))
}

func (s *S3BlobStore) PutReader(ctx context.Context, algo hash.Algo, r io.Reader) (hash.BlobHash, error) {
	hs := hash.NewHasher(algo)
	b, err := io.ReadAll(io.TeeReader(r, hs))
	if err != nil {
		return hash.BlobHash{}, err
	}
	h := hs.Finalize()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(h)),
		Body:   bytes.NewReader(b),
	})
	if err != nil {
		return hash.BlobHash{}, err
	}

	return h, nil
}

// PutAt writes b at the explicit address h, bypassing content hashing.
func (s *S3BlobStore) PutAt(ctx context.Context, h hash.BlobHash, b []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(h)),
		Body:   bytes.NewReader(b),
	})
	return err
}

func (s *S3BlobStore) Get(ctx context.Context, h hash.BlobHash) ([]byte, error) {
	r, err := s.GetReader(ctx, h)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *S3BlobStore) GetReader(ctx context.Context, h hash.BlobHash) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(h)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return out.Body, nil
}

func (s *S3BlobStore) Contains(ctx context.Context, h hash.BlobHash) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(h)),
	})
	if err != nil {
		var nf *types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *S3BlobStore) Delete(ctx context.Context, h hash.BlobHash) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(h)),
	})
	return err
}

func (s *S3BlobStore) List(ctx context.Context) (iter.Seq[hash.BlobHash], error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})

	return func(yield func(hash.BlobHash) bool) {
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				return
			}
			for _, obj := range page.Contents {
				h, ok := parseKey(s.prefix, aws.ToString(obj.Key))
				if !ok {
					continue
				}
				if !yield(h) {
					return
				}
			}
		}
	}, nil
}

var _ Addressable = (*S3BlobStore)(nil)
