package cas

import (
	"context"

	"github.com/trinio-labs/bake/hash"
	"github.com/trinio-labs/bake/internal/hlog"
)

// ManifestOutputs is the subset of an action-cache manifest GC needs: the
// blob hashes it references, so a sweep can tell which blobs in the
// index are still reachable from a live manifest.
type ManifestOutputs func(ctx context.Context) (map[string][]hash.BlobHash, error)

// GCResult reports what a GC pass did.
type GCResult struct {
	Scanned    int
	Reachable  int
	Evicted    int
	BytesFreed int64
}

// GC sweeps a BlobIndex for blobs unreachable from any live manifest and
// removes them from both the index and the backing store. If that sweep
// freed less than targetBytes, GC then walks the index's policy-ordered
// eviction candidates and deletes those no live manifest references.
// Reachable blobs are never deleted, so GC can free less than
// targetBytes.
//
// listManifests enumerates every manifest's output hashes, the same
// reachability set the action cache itself depends on. Blobs outside
// that set are always safe to delete; GC deletes them first before
// falling back to policy-based eviction of unreferenced index entries.
func GC(ctx context.Context, idx *BlobIndex, store BlobStore, listManifests ManifestOutputs, targetBytes int64, policy EvictionPolicy) (GCResult, error) {
	log := hlog.Default().With("component", "cas.gc")

	reachable := map[string]bool{}
	if listManifests != nil {
		outputs, err := listManifests(ctx)
		if err != nil {
			return GCResult{}, err
		}
		for _, hs := range outputs {
			for _, h := range hs {
				reachable[h.String()] = true
			}
		}
	}

	hashes, err := store.List(ctx)
	if err != nil {
		return GCResult{}, err
	}

	var res GCResult
	var freed int64
	var unreachable []hash.BlobHash

	for h := range hashes {
		res.Scanned++
		if reachable[h.String()] {
			res.Reachable++
			continue
		}
		unreachable = append(unreachable, h)
	}

	for _, h := range unreachable {
		entry, err := idx.Get(ctx, h)
		size := int64(0)
		if err == nil {
			size = entry.Size
		}

		if err := store.Delete(ctx, h); err != nil {
			log.Warnf("gc: deleting unreachable blob %s: %v", h, err)
			continue
		}
		_ = idx.Delete(ctx, h)

		res.Evicted++
		freed += size
	}

	if freed < targetBytes {
		candidates, err := idx.EvictionCandidates(ctx, targetBytes-freed, policy)
		if err != nil {
			return res, err
		}
		for _, h := range candidates {
			if reachable[h.String()] {
				continue // still referenced by a live manifest; skip even under size pressure
			}
			entry, _ := idx.Get(ctx, h)
			if err := store.Delete(ctx, h); err != nil {
				log.Warnf("gc: evicting %s: %v", h, err)
				continue
			}
			_ = idx.Delete(ctx, h)
			res.Evicted++
			freed += entry.Size
		}
	}

	res.BytesFreed = freed
	return res, nil
}
