// Package hash implements bake's content-addressed identifiers: a
// BlobHash tags a digest with the algorithm that produced it, a Hasher
// streams raw bytes into a BlobHash, and a Digest takes structured values
// (strings, integers, byte runs) into a running digest the way a recipe's
// action key is built up field by field.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"sort"
	"strings"

	"lukechampine.com/blake3"
)

// Algo identifies the digest algorithm behind a BlobHash.
type Algo string

const (
	Blake3 Algo = "blake3"
	SHA256 Algo = "sha256"
)

// DefaultAlgo is the algorithm new blobs and action keys are hashed with.
// bake.yml has no setting to choose another; SHA256 is only produced by
// callers that pass it explicitly.
const DefaultAlgo = Blake3

// BlobHash is a tagged (algorithm, digest) pair. Its string form is
// "algo:hex". Two BlobHashes with different algorithms are never equal,
// even if one's bytes happen to coincide with the other's — the algorithm
// tag always travels with the digest.
type BlobHash struct {
	Algo   Algo
	Digest []byte
}

func (h BlobHash) String() string {
	return string(h.Algo) + ":" + hex.EncodeToString(h.Digest)
}

// IsZero reports whether h is the unset value.
func (h BlobHash) IsZero() bool {
	return h.Algo == "" && len(h.Digest) == 0
}

// Equal compares two BlobHashes. Hashes produced under different
// algorithms always compare unequal.
func (h BlobHash) Equal(o BlobHash) bool {
	return h.Algo == o.Algo && string(h.Digest) == string(o.Digest)
}

// Shard returns the first two hex characters of the digest, used to fan
// blobs out across subdirectories in the local blob store.
func (h BlobHash) Shard() string {
	s := hex.EncodeToString(h.Digest)
	if len(s) < 2 {
		return s
	}
	return s[:2]
}

// MarshalJSON renders a BlobHash as its "algo:hex" string form, so
// manifests and config files carry blob hashes as a single scalar rather
// than a two-field object.
func (h BlobHash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON parses the "algo:hex" string form produced by MarshalJSON,
// including the bare ":" a zero BlobHash marshals to.
func (h *BlobHash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == (BlobHash{}).String() {
		*h = BlobHash{}
		return nil
	}
	parsed, err := ParseBlobHash(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// ParseBlobHash parses the "algo:hex" form produced by String.
func ParseBlobHash(s string) (BlobHash, error) {
	algo, hexDigest, ok := strings.Cut(s, ":")
	if !ok {
		return BlobHash{}, fmt.Errorf("hash: malformed blob hash %q: missing algorithm tag", s)
	}

	switch Algo(algo) {
	case Blake3, SHA256:
	default:
		return BlobHash{}, fmt.Errorf("hash: unknown algorithm %q in %q", algo, s)
	}

	digest, err := hex.DecodeString(hexDigest)
	if err != nil {
		return BlobHash{}, fmt.Errorf("hash: malformed digest in %q: %w", s, err)
	}

	return BlobHash{Algo: Algo(algo), Digest: digest}, nil
}

// newHash returns a stdlib hash.Hash for algo.
func newHash(algo Algo) hash.Hash {
	switch algo {
	case SHA256:
		return sha256.New()
	default:
		return blake3.New(32, nil)
	}
}

// HashBytes computes the BlobHash of b under algo in one shot.
func HashBytes(algo Algo, b []byte) BlobHash {
	h := newHash(algo)
	h.Write(b) //nolint:errcheck
	return BlobHash{Algo: algo, Digest: h.Sum(nil)}
}

// Hasher streams content into a BlobHash digest, for blobs too large to
// buffer in memory or read twice.
type Hasher struct {
	algo Algo
	h    hash.Hash
}

// NewHasher starts a streaming digest under algo.
func NewHasher(algo Algo) *Hasher {
	return &Hasher{algo: algo, h: newHash(algo)}
}

func (s *Hasher) Write(p []byte) (int, error) { return s.h.Write(p) }

// ReadFrom hashes everything read from r, so callers can use io.Copy-style
// plumbing directly into the hasher.
func (s *Hasher) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(s.h, r)
}

// Finalize returns the completed BlobHash. The Hasher must not be reused
// afterward.
func (s *Hasher) Finalize() BlobHash {
	return BlobHash{Algo: s.algo, Digest: s.h.Sum(nil)}
}

// Digest is the interface bake's fingerprinting code (recipe action
// keys, manifest canonicalization) writes structured fields into, mirroring
// a streaming hash with typed helpers instead of raw bytes so call sites
// read as a list of "what went into this hash" rather than manual
// encoding/binary calls.
type Digest interface {
	io.Writer
	String(string)
	I64(int64)
	Bool(bool)
	Sum() string
}

type digest struct {
	h hash.Hash
}

// NewDigest returns a Digest backed by algo, for building up a composite
// hash (an action key, a canonicalized manifest hash) field by field.
func NewDigest(algo Algo) Digest {
	return &digest{h: newHash(algo)}
}

func (d *digest) Write(p []byte) (int, error) { return d.h.Write(p) }

func (d *digest) String(s string) { _, _ = io.WriteString(d.h, s) }

func (d *digest) I64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	d.h.Write(b[:]) //nolint:errcheck
}

func (d *digest) Bool(v bool) {
	if v {
		d.h.Write([]byte{1}) //nolint:errcheck
	} else {
		d.h.Write([]byte{0}) //nolint:errcheck
	}
}

func (d *digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

// HashStrings hashes a string slice sorted first, so the digest is
// independent of the slice's original ordering.
func HashStrings(d Digest, items []string) {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	for _, s := range sorted {
		d.String(s)
	}
}

// HashMap hashes a map's "key=value"-style entries, sorted, so the digest
// is independent of Go's randomized map iteration order.
func HashMap(d Digest, entries map[string]string) {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		d.String(k)
		d.String(entries[k])
	}
}
