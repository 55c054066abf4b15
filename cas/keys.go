package cas

import (
	"strings"

	"github.com/trinio-labs/bake/hash"
)

// joinKey builds an object key for a remote blob store, skipping empty
// prefix segments so a store configured with prefix="" doesn't end up
// with a leading slash.
func joinKey(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, "/")
}

// parseKey recovers the BlobHash encoded in an object key produced by
// joinKey(prefix, algo, shard, hex), used when listing a remote bucket.
func parseKey(prefix, key string) (hash.BlobHash, bool) {
	key = strings.TrimPrefix(key, prefix)
	key = strings.TrimPrefix(key, "/")

	parts := strings.Split(key, "/")
	if len(parts) != 3 {
		return hash.BlobHash{}, false
	}
	algo, _, hexDigest := parts[0], parts[1], parts[2]

	h, err := hash.ParseBlobHash(algo + ":" + hexDigest)
	if err != nil {
		return hash.BlobHash{}, false
	}
	return h, true
}
