package cas_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/cas"
	"github.com/trinio-labs/bake/hash"
)

func TestChunkAndStoreReassemblesIdentically(t *testing.T) {
	ctx := context.Background()
	store := cas.NewLocalBlobStore(t.TempDir())

	data := make([]byte, 3*cas.ChunkThreshold/10) // well above a few chunk boundaries, below the threshold itself
	_, err := rand.Read(data)
	require.NoError(t, err)

	manifest, err := cas.ChunkAndStore(ctx, store, hash.Blake3, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Greater(t, len(manifest.Chunks), 1)
	assert.Equal(t, int64(len(data)), manifest.TotalSize)

	var out bytes.Buffer
	require.NoError(t, cas.Reassemble(ctx, store, manifest, &out))
	assert.Equal(t, data, out.Bytes())
}

func TestChunkAndStoreDeduplicatesIdenticalChunks(t *testing.T) {
	ctx := context.Background()
	store := cas.NewLocalBlobStore(t.TempDir())

	repeated := bytes.Repeat([]byte("abcdefgh"), 32768) // 256 KiB of highly repetitive content, several max-size chunks, should produce duplicate chunk hashes

	manifest, err := cas.ChunkAndStore(ctx, store, hash.Blake3, bytes.NewReader(repeated))
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, c := range manifest.Chunks {
		seen[c.Hash.String()] = true
	}
	assert.Less(t, len(seen), len(manifest.Chunks), "repeated content should dedupe to fewer distinct chunk hashes")
}
