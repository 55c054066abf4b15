package actioncache

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// SecretEnvVar is the environment variable actioncache reads its signing
// secret from. Its absence is not an error: it means the cache is
// disabled, not misconfigured.
const SecretEnvVar = "BAKE_CACHE_SECRET"

// ErrNoSecret is returned by Sign and Verify when no secret is configured.
// Callers treat it as "cache disabled," not a hard failure.
var ErrNoSecret = errors.New("actioncache: no signing secret configured")

// ErrSignatureMismatch is returned by Verify when the recomputed HMAC does
// not match the envelope's signature.
var ErrSignatureMismatch = errors.New("actioncache: signature mismatch")

// Envelope is the wire form of a signed manifest: the manifest body plus
// a hex HMAC-SHA256 signature covering its canonical JSON encoding.
type Envelope struct {
	Manifest  Manifest `json:"manifest"`
	Signature string   `json:"signature"`
}

// SecretFromEnv reads the signing secret from SecretEnvVar. It returns
// ("", false) if unset or empty — an empty secret is treated the same as
// an absent one, since an operator who sets BAKE_CACHE_SECRET="" almost
// certainly meant to unset it, not to sign with an empty key.
func SecretFromEnv() (string, bool) {
	s := os.Getenv(SecretEnvVar)
	if s == "" {
		return "", false
	}
	return s, true
}

// canonicalJSON re-encodes v with object keys sorted, independent of
// struct field declaration order, by round-tripping through a generic
// map — encoding/json already emits map keys in sorted order.
func canonicalJSON(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return nil, err
	}

	return json.Marshal(generic)
}

// Sign computes the HMAC-SHA256 signature of m's canonical JSON encoding
// under secret and returns the envelope ready to be stored as a blob.
// Sign fails with ErrNoSecret if secret is empty — callers are expected
// to have already checked SecretFromEnv and skipped caching entirely.
func Sign(m Manifest, secret string) (Envelope, error) {
	if secret == "" {
		return Envelope{}, ErrNoSecret
	}

	body, err := canonicalJSON(m)
	if err != nil {
		return Envelope{}, fmt.Errorf("actioncache: canonicalize manifest: %w", err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body) //nolint:errcheck

	return Envelope{
		Manifest:  m,
		Signature: hex.EncodeToString(mac.Sum(nil)),
	}, nil
}

// Verify recomputes the HMAC over env.Manifest's canonical JSON and
// compares it against env.Signature in constant time. It returns the
// manifest on success, or ErrSignatureMismatch / ErrNoSecret on failure.
func Verify(env Envelope, secret string) (Manifest, error) {
	if secret == "" {
		return Manifest{}, ErrNoSecret
	}

	body, err := canonicalJSON(env.Manifest)
	if err != nil {
		return Manifest{}, fmt.Errorf("actioncache: canonicalize manifest: %w", err)
	}

	want, err := hex.DecodeString(env.Signature)
	if err != nil {
		return Manifest{}, fmt.Errorf("%w: malformed signature: %v", ErrSignatureMismatch, err)
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body) //nolint:errcheck
	got := mac.Sum(nil)

	if !hmac.Equal(got, want) {
		return Manifest{}, ErrSignatureMismatch
	}

	return env.Manifest, nil
}

// Marshal serializes env to the UTF-8 JSON wire form bake exchanges with
// the blob store.
func Marshal(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Unmarshal parses the UTF-8 JSON wire form produced by Marshal.
func Unmarshal(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("actioncache: unmarshal envelope: %w", err)
	}
	return env, nil
}
