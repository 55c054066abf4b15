package cas

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/trinio-labs/bake/hash"
	"github.com/trinio-labs/bake/internal/herrgroup"
	"github.com/trinio-labs/bake/internal/hlog"
)

// Tier names a backing store within a LayeredBlobStore, for reporting
// which tiers accepted a PUT and for cache-strategy-mode tier filtering.
type Tier struct {
	Name  string
	Store BlobStore
}

// LayeredBlobStore composes an ordered list of backing tiers. Get
// consults tiers in order and stops at the first hit, then promotes the
// blob to every earlier tier that missed. Put writes to every tier in
// parallel and succeeds if at least one tier accepts.
type LayeredBlobStore struct {
	tiers []Tier
	log   hlog.Logger
}

func NewLayeredBlobStore(tiers []Tier) *LayeredBlobStore {
	return &LayeredBlobStore{tiers: tiers, log: hlog.Default().With("component", "cas.layered")}
}

// PutResult reports which tiers accepted a blob, so the caller can decide
// whether a partial failure is worth surfacing.
type PutResult struct {
	Hash     hash.BlobHash
	Accepted []string
	Errors   map[string]error
}

func (s *LayeredBlobStore) Put(ctx context.Context, algo hash.Algo, b []byte) (hash.BlobHash, error) {
	res, err := s.PutAll(ctx, algo, b)
	return res.Hash, err
}

// PutAll writes b to every tier in parallel and returns per-tier
// outcomes. It only returns an error if every tier failed.
func (s *LayeredBlobStore) PutAll(ctx context.Context, algo hash.Algo, b []byte) (PutResult, error) {
	res := PutResult{Errors: make(map[string]error)}

	var mu sync.Mutex
	g, gctx := herrgroup.WithContext(ctx)

	for _, t := range s.tiers {
		t := t
		g.Go(func() error {
			h, err := t.Store.Put(gctx, algo, b)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Errors[t.Name] = err
				return nil
			}
			res.Hash = h
			res.Accepted = append(res.Accepted, t.Name)
			return nil
		})
	}
	_ = g.Wait()

	if len(res.Accepted) == 0 {
		return res, errors.New("cas: no tier accepted the blob")
	}
	return res, nil
}

// PutAt writes b at the explicit address h to every tier that supports
// Addressable, in parallel, succeeding if at least one tier accepts.
// Tiers that don't implement Addressable are silently skipped rather
// than treated as failures.
func (s *LayeredBlobStore) PutAt(ctx context.Context, h hash.BlobHash, b []byte) error {
	var mu sync.Mutex
	var accepted int
	var lastErr error

	g, gctx := herrgroup.WithContext(ctx)
	for _, t := range s.tiers {
		t := t
		addr, ok := t.Store.(Addressable)
		if !ok {
			continue
		}
		g.Go(func() error {
			err := addr.PutAt(gctx, h, b)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = err
				s.log.Warnf("putat %s to tier %s failed: %v", h, t.Name, err)
				return nil
			}
			accepted++
			return nil
		})
	}
	_ = g.Wait()

	if accepted == 0 {
		if lastErr != nil {
			return lastErr
		}
		return errors.New("cas: no addressable tier accepted the blob")
	}
	return nil
}

func (s *LayeredBlobStore) PutReader(ctx context.Context, algo hash.Algo, r io.Reader) (hash.BlobHash, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return hash.BlobHash{}, err
	}
	return s.Put(ctx, algo, b)
}

// Get consults tiers in order, stopping at the first hit, then promotes
// the blob to every earlier tier that missed. Promotion failures are
// logged at warn and never fail the Get — the caller already has their
// blob.
func (s *LayeredBlobStore) Get(ctx context.Context, h hash.BlobHash) ([]byte, error) {
	for i, t := range s.tiers {
		b, err := t.Store.Get(ctx, h)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		s.promoteEarlier(ctx, h, b, i)
		return b, nil
	}
	return nil, ErrNotFound
}

func (s *LayeredBlobStore) promoteEarlier(ctx context.Context, h hash.BlobHash, b []byte, hitIndex int) {
	for _, t := range s.tiers[:hitIndex] {
		if _, err := t.Store.Put(ctx, h.Algo, b); err != nil {
			s.log.Warnf("promote %s to tier %s failed: %v", h, t.Name, err)
		}
	}
}

func (s *LayeredBlobStore) GetReader(ctx context.Context, h hash.BlobHash) (io.ReadCloser, error) {
	b, err := s.Get(ctx, h)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *LayeredBlobStore) Contains(ctx context.Context, h hash.BlobHash) (bool, error) {
	for _, t := range s.tiers {
		ok, err := t.Store.Contains(ctx, h)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *LayeredBlobStore) Delete(ctx context.Context, h hash.BlobHash) error {
	g, gctx := herrgroup.WithContext(ctx)
	for _, t := range s.tiers {
		t := t
		g.Go(func() error { return t.Store.Delete(gctx, h) })
	}
	return g.Wait()
}

func (s *LayeredBlobStore) List(ctx context.Context) (iter.Seq[hash.BlobHash], error) {
	// The local (first) tier is authoritative for List: remote tiers may
	// hold blobs from other machines that were never promoted here, and
	// enumerating them all would misrepresent what this machine can serve
	// without a network round trip per blob.
	if len(s.tiers) == 0 {
		return func(func(hash.BlobHash) bool) {}, nil
	}
	return s.tiers[0].Store.List(ctx)
}

var _ Addressable = (*LayeredBlobStore)(nil)
