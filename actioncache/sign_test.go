package actioncache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trinio-labs/bake/actioncache"
	"github.com/trinio-labs/bake/hash"
)

func sampleManifest() actioncache.Manifest {
	return actioncache.Manifest{
		ActionKey: "cookbook:recipe@blake3:abcd",
		Outputs: []actioncache.OutputDescriptor{
			{RelativePath: "out/bin", Hash: hash.HashBytes(hash.Blake3, []byte("binary")), IsExecutable: true},
			{RelativePath: "out/", IsDirectoryMarker: true},
		},
		StartedAt: time.Unix(1000, 0).UTC(),
		EndedAt:   time.Unix(1001, 0).UTC(),
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	m := sampleManifest()

	env, err := actioncache.Sign(m, "topsecret")
	require.NoError(t, err)
	assert.NotEmpty(t, env.Signature)

	got, err := actioncache.Verify(env, "topsecret")
	require.NoError(t, err)
	assert.Equal(t, m.ActionKey, got.ActionKey)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	env, err := actioncache.Sign(sampleManifest(), "topsecret")
	require.NoError(t, err)

	_, err = actioncache.Verify(env, "wrong-secret")
	assert.ErrorIs(t, err, actioncache.ErrSignatureMismatch)
}

func TestVerifyRejectsTamperedManifest(t *testing.T) {
	env, err := actioncache.Sign(sampleManifest(), "topsecret")
	require.NoError(t, err)

	env.Manifest.ActionKey = "cookbook:other-recipe@blake3:zzzz"

	_, err = actioncache.Verify(env, "topsecret")
	assert.ErrorIs(t, err, actioncache.ErrSignatureMismatch)
}

func TestSignAndVerifyRefuseWithoutSecret(t *testing.T) {
	_, err := actioncache.Sign(sampleManifest(), "")
	assert.ErrorIs(t, err, actioncache.ErrNoSecret)

	_, err = actioncache.Verify(actioncache.Envelope{Manifest: sampleManifest()}, "")
	assert.ErrorIs(t, err, actioncache.ErrNoSecret)
}

func TestSecretFromEnv(t *testing.T) {
	t.Setenv(actioncache.SecretEnvVar, "")
	_, ok := actioncache.SecretFromEnv()
	assert.False(t, ok, "empty secret must be treated as absent")

	t.Setenv(actioncache.SecretEnvVar, "s3cr3t")
	got, ok := actioncache.SecretFromEnv()
	assert.True(t, ok)
	assert.Equal(t, "s3cr3t", got)
}

func TestMarshalUnmarshalEnvelope(t *testing.T) {
	env, err := actioncache.Sign(sampleManifest(), "topsecret")
	require.NoError(t, err)

	body, err := actioncache.Marshal(env)
	require.NoError(t, err)

	got, err := actioncache.Unmarshal(body)
	require.NoError(t, err)
	assert.Equal(t, env.Signature, got.Signature)
	assert.Equal(t, env.Manifest.ActionKey, got.Manifest.ActionKey)
}
