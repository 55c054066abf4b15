package actioncache

import (
	"context"
	"errors"
	"fmt"

	"github.com/trinio-labs/bake/cas"
	"github.com/trinio-labs/bake/hash"
	"github.com/trinio-labs/bake/internal/hlog"
)

// addressPrefix namespaces the manifest-pointer hash away from any blob
// that might coincidentally hash to the same digest under a content PUT.
const addressPrefix = "bake-action-cache:v1:"

// ManifestAddress returns the deterministic BlobHash a manifest for
// actionKey is stored and looked up under. It depends only on the action
// key, never the manifest's content, which is what lets a fresh machine
// fetch a manifest from a remote tier before it has the content.
func ManifestAddress(algo hash.Algo, actionKey string) hash.BlobHash {
	return hash.HashBytes(algo, []byte(addressPrefix+actionKey))
}

// Store reads and writes signed manifests against a cas.Addressable
// tier, keyed by action key.
type Store struct {
	tier   interface {
		cas.BlobStore
		cas.Addressable
	}
	algo hash.Algo
	log  hlog.Logger
}

// NewStore builds a Store over an addressable tier (typically a
// *cas.LayeredBlobStore spanning the configured cache tiers). algo
// selects the hash used for the manifest's address and output
// descriptors.
func NewStore(tier interface {
	cas.BlobStore
	cas.Addressable
}, algo hash.Algo) *Store {
	return &Store{tier: tier, algo: algo, log: hlog.Default().With("component", "actioncache")}
}

// Put signs m with secret and stores the envelope at ManifestAddress,
// returning ErrNoSecret unmodified if secret is empty.
func (s *Store) Put(ctx context.Context, m Manifest, secret string) error {
	env, err := Sign(m, secret)
	if err != nil {
		return err
	}

	body, err := Marshal(env)
	if err != nil {
		return fmt.Errorf("actioncache: marshal envelope: %w", err)
	}

	addr := ManifestAddress(s.algo, m.ActionKey)
	if err := s.tier.PutAt(ctx, addr, body); err != nil {
		return fmt.Errorf("actioncache: store manifest for %s: %w", m.ActionKey, err)
	}
	return nil
}

// ErrMiss is returned by Get when no manifest exists for the action key,
// distinguishing "no entry" from a signature failure or I/O error.
var ErrMiss = fmt.Errorf("actioncache: %w", cas.ErrNotFound)

// Get fetches and verifies the manifest for actionKey. A missing entry
// returns ErrMiss; an entry that fails signature verification returns
// ErrSignatureMismatch — callers treat both as a cache miss, but log the
// latter since it may indicate a stale or tampered remote cache.
func (s *Store) Get(ctx context.Context, actionKey string, secret string) (Manifest, error) {
	addr := ManifestAddress(s.algo, actionKey)

	body, err := s.tier.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, cas.ErrNotFound) {
			return Manifest{}, ErrMiss
		}
		return Manifest{}, fmt.Errorf("actioncache: fetch manifest for %s: %w", actionKey, err)
	}

	env, err := Unmarshal(body)
	if err != nil {
		return Manifest{}, err
	}

	m, err := Verify(env, secret)
	if err != nil {
		s.log.Debugf("manifest %s failed verification: %v", actionKey, err)
		return Manifest{}, err
	}

	if m.ActionKey != actionKey {
		return Manifest{}, fmt.Errorf("actioncache: manifest action key %q does not match requested %q", m.ActionKey, actionKey)
	}

	return m, nil
}
