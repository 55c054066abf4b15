package cas_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/cas"
	"github.com/trinio-labs/bake/hash"
)

func TestLayeredBlobStorePutWritesAllTiers(t *testing.T) {
	ctx := context.Background()
	local := cas.NewLocalBlobStore(t.TempDir())
	remote := cas.NewLocalBlobStore(t.TempDir())

	layered := cas.NewLayeredBlobStore([]cas.Tier{
		{Name: "local", Store: local},
		{Name: "remote", Store: remote},
	})

	h, err := layered.Put(ctx, hash.Blake3, []byte("payload"))
	require.NoError(t, err)

	for _, s := range []*cas.LocalBlobStore{local, remote} {
		ok, err := s.Contains(ctx, h)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestLayeredBlobStoreGetPromotesToEarlierTiers(t *testing.T) {
	ctx := context.Background()
	local := cas.NewLocalBlobStore(t.TempDir())
	remote := cas.NewLocalBlobStore(t.TempDir())

	h, err := remote.Put(ctx, hash.Blake3, []byte("remote-only"))
	require.NoError(t, err)

	layered := cas.NewLayeredBlobStore([]cas.Tier{
		{Name: "local", Store: local},
		{Name: "remote", Store: remote},
	})

	got, err := layered.Get(ctx, h)
	require.NoError(t, err)
	assert.Equal(t, "remote-only", string(got))

	ok, err := local.Contains(ctx, h)
	require.NoError(t, err)
	assert.True(t, ok, "Get must promote the blob into the earlier local tier")
}

func TestLayeredBlobStorePutAtWritesToAllAddressableTiers(t *testing.T) {
	ctx := context.Background()
	local := cas.NewLocalBlobStore(t.TempDir())
	remote := cas.NewLocalBlobStore(t.TempDir())

	layered := cas.NewLayeredBlobStore([]cas.Tier{
		{Name: "local", Store: local},
		{Name: "remote", Store: remote},
	})

	addr := hash.HashBytes(hash.Blake3, []byte("action-key-pointer"))
	require.NoError(t, layered.PutAt(ctx, addr, []byte("manifest-bytes")))

	for _, s := range []*cas.LocalBlobStore{local, remote} {
		got, err := s.Get(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, "manifest-bytes", string(got))
	}
}

func TestLayeredBlobStorePutSucceedsIfOneTierAccepts(t *testing.T) {
	ctx := context.Background()
	local := cas.NewLocalBlobStore(t.TempDir())

	// A regular file in place of a directory guarantees MkdirAll fails,
	// so this tier can never accept a Put regardless of privileges.
	blockedRoot := filepath.Join(t.TempDir(), "blocked")
	require.NoError(t, os.WriteFile(blockedRoot, []byte("x"), 0o644))
	broken := cas.NewLocalBlobStore(blockedRoot)

	layered := cas.NewLayeredBlobStore([]cas.Tier{
		{Name: "local", Store: local},
		{Name: "broken", Store: broken},
	})

	res, err := layered.PutAll(ctx, hash.Blake3, []byte("payload"))
	require.NoError(t, err)
	assert.Contains(t, res.Accepted, "local")
	assert.Contains(t, res.Errors, "broken")
}
