// Package cachestrategy orchestrates the blob store (cas) and the
// signed action cache (actioncache) behind the two operations the
// executor actually calls: lookup and store. It owns the cache-strategy
// mode that decides which tiers participate and in which order.
package cachestrategy

import (
	"github.com/trinio-labs/bake/actioncache"
	"github.com/trinio-labs/bake/cas"
	"github.com/trinio-labs/bake/hash"
	"github.com/trinio-labs/bake/internal/hlog"
)

// Strategy is the executor-facing cache: an ordered set of blob tiers
// (ordering depends on Mode) plus the signed manifest store layered on
// top of the same tiers.
type Strategy struct {
	mode      Mode
	blobs     *cas.LayeredBlobStore
	manifests *actioncache.Store
	secret    string
	algo      hash.Algo
	log       hlog.Logger
}

// New builds a Strategy. local is the local-disk tier; remotes are the
// configured remote tiers in declared order (S3, GCS, ...). secret is
// read by the caller from BAKE_CACHE_SECRET (or equivalent) — an empty
// secret disables signing/verification without disabling the blob
// store, matching spec's "cache behaves as if disabled" wording: lookups
// always miss but stores still populate the blob tiers so a
// later-configured secret can find them.
func New(mode Mode, local cas.Tier, remotes []cas.Tier, algo hash.Algo, secret string) *Strategy {
	tiers := orderedTiers(mode, local, remotes)
	blobs := cas.NewLayeredBlobStore(tiers)

	return &Strategy{
		mode:      mode,
		blobs:     blobs,
		manifests: actioncache.NewStore(blobs, algo),
		secret:    secret,
		algo:      algo,
		log:       hlog.Default().With("component", "cachestrategy"),
	}
}

// orderedTiers builds the tier list Lookup/Store consult, filtered and
// ordered per mode.
func orderedTiers(mode Mode, local cas.Tier, remotes []cas.Tier) []cas.Tier {
	switch mode {
	case LocalOnly:
		return []cas.Tier{local}
	case RemoteOnly:
		return append([]cas.Tier(nil), remotes...)
	case RemoteFirst:
		tiers := append([]cas.Tier(nil), remotes...)
		return append(tiers, local)
	case Disabled:
		return nil
	default: // LocalFirst
		tiers := []cas.Tier{local}
		return append(tiers, remotes...)
	}
}

// Mode reports the strategy's configured mode.
func (s *Strategy) Mode() Mode { return s.mode }

// signingEnabled reports whether manifests can be signed/verified at
// all. Mirrors spec's "no secret configured" -> "cache behaves as if
// disabled" rule independent of Mode.
func (s *Strategy) signingEnabled() bool {
	return s.secret != ""
}
