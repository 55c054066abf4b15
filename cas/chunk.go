package cas

import (
	"context"
	"errors"
	"io"

	"github.com/restic/chunker"
	"github.com/trinio-labs/bake/hash"
)

// ChunkThreshold is the blob size above which PUTs switch from a single
// blob to content-defined chunking: most recipe outputs are source-sized
// and never cross this, so the common path avoids the chunker's
// per-byte rolling-hash overhead entirely.
const ChunkThreshold = 10 * 1 << 20 // 10 MiB

// Chunk zone sizes. restic/chunker's rolling hash concentrates cut
// points near avgSize; min/max bound the worst case.
const (
	minChunkSize = 2 << 10  // 2 KiB
	avgChunkSize = 8 << 10  // 8 KiB
	maxChunkSize = 64 << 10 // 64 KiB
)

// bakePol is a fixed irreducible polynomial for the chunker's rolling
// hash. It only needs to be stable across runs of the same bake binary,
// not globally unique, so cut points land on the same byte offsets for
// identical content every time — which is what makes chunk-level
// deduplication work at all.
const bakePol = chunker.Pol(0x3DA3358B4DC173)

// ChunkDescriptor is one content-defined chunk of a large blob:
// its offset and length within the original content, and the BlobHash
// of the chunk's own bytes (so identical chunks across unrelated blobs
// share storage).
type ChunkDescriptor struct {
	Offset int64
	Length int64
	Hash   hash.BlobHash
}

// ChunkManifest is what a large blob is stored as: a flat list of chunk
// descriptors in content order. Restoring the blob means concatenating
// each chunk's bytes in order.
type ChunkManifest struct {
	TotalSize int64
	Chunks    []ChunkDescriptor
}

// ChunkAndStore splits r into content-defined chunks using restic/chunker's
// Rabin-fingerprint boundaries, bounded by minChunkSize and maxChunkSize,
// and PUTs each chunk to store under algo, returning the manifest
// describing how to reassemble them.
func ChunkAndStore(ctx context.Context, store BlobStore, algo hash.Algo, r io.Reader) (ChunkManifest, error) {
	ck := chunker.NewWithBoundaries(r, bakePol, minChunkSize, maxChunkSize)
	ck.SetAverageBits(bitsFor(avgChunkSize))

	buf := make([]byte, maxChunkSize)
	var manifest ChunkManifest

	for {
		chunk, err := ck.Next(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ChunkManifest{}, err
		}

		h, err := store.Put(ctx, algo, chunk.Data)
		if err != nil {
			return ChunkManifest{}, err
		}

		manifest.Chunks = append(manifest.Chunks, ChunkDescriptor{
			Offset: manifest.TotalSize,
			Length: int64(chunk.Length),
			Hash:   h,
		})
		manifest.TotalSize += int64(chunk.Length)
	}

	return manifest, nil
}

// Reassemble fetches every chunk in m, in order, and writes it to w.
func Reassemble(ctx context.Context, store BlobStore, m ChunkManifest, w io.Writer) error {
	for _, c := range m.Chunks {
		b, err := store.Get(ctx, c.Hash)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// bitsFor converts a target average chunk size to the bit-mask width
// restic/chunker's SetAverageBits expects (log2 of the average size).
func bitsFor(avg int) int {
	bits := 0
	for v := avg; v > 1; v >>= 1 {
		bits++
	}
	return bits
}
