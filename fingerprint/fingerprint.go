// Package fingerprint computes a recipe's action key: the content
// identifier the executor looks up in the cache before running a
// recipe's command, and stores the recipe's outputs under once it
// has.
package fingerprint

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/hash"
	"github.com/trinio-labs/bake/internal/hfs"
)

// ActionKey computes recipe's action key from its resolved run
// command, its cache.inputs file contents, its declared environment
// variable values, and the already-computed action keys of its
// dependencies (which must cover every FQN in recipe.Dependencies —
// the executor computes dependency action keys before a recipe's own,
// since scheduling already orders recipes that way).
//
// cookbookRoot is the recipe's cookbook directory, against which
// cache.inputs glob patterns are expanded. env holds the resolved
// value of every name in recipe.Environment; a declared name absent
// from env hashes as an empty value, matching an unset variable.
func ActionKey(recipe *config.Recipe, cookbookRoot string, env map[string]string, depActionKeys map[string]string) (string, error) {
	algo := hash.DefaultAlgo
	final := hash.NewDebuggableDigest(algo, func() string { return recipe.FQN() })

	final.String(recipe.FQN())
	final.String(commandDigest(algo, recipe.Run))

	inputs, err := inputsDigest(algo, cookbookRoot, recipe.Cache)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %s: %w", recipe.FQN(), err)
	}
	final.String(inputs)

	final.String(environmentDigest(algo, recipe.Environment, env))

	deps, err := dependenciesDigest(algo, recipe.Dependencies, depActionKeys)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %s: %w", recipe.FQN(), err)
	}
	final.String(deps)

	return final.Sum(), nil
}

func commandDigest(algo hash.Algo, run string) string {
	d := hash.NewDigest(algo)
	d.String(run)
	return d.Sum()
}

// inputsDigest expands recipe.Cache.Inputs against cookbookRoot and
// hashes the resulting [relpath, content_hash] list — sorted by
// relpath so the digest is independent of glob match order and a
// rename between files with identical content still changes it.
func inputsDigest(algo hash.Algo, cookbookRoot string, cache *config.CacheSpec) (string, error) {
	d := hash.NewDigest(algo)
	if cache == nil || len(cache.Inputs) == 0 {
		return d.Sum(), nil
	}

	paths, err := hfs.ExpandGlobs(cookbookRoot, cache.Inputs)
	if err != nil {
		return "", fmt.Errorf("expand cache.inputs: %w", err)
	}

	for _, rel := range paths {
		data, err := os.ReadFile(filepath.Join(cookbookRoot, rel))
		if err != nil {
			return "", fmt.Errorf("read input %s: %w", rel, err)
		}
		d.String(rel)
		d.String(hash.HashBytes(algo, data).String())
	}
	return d.Sum(), nil
}

// environmentDigest hashes name=value for every declared name, sorted,
// via hash.HashMap — a name missing from env contributes an empty
// value rather than being skipped, since an env var going from set to
// unset must still change the action key.
func environmentDigest(algo hash.Algo, declared []string, env map[string]string) string {
	d := hash.NewDigest(algo)
	entries := make(map[string]string, len(declared))
	for _, name := range declared {
		entries[name] = env[name]
	}
	hash.HashMap(d, entries)
	return d.Sum()
}

// dependenciesDigest concatenates dependency action keys in
// lexicographic order of dependency FQN and hashes the result.
func dependenciesDigest(algo hash.Algo, deps []string, depActionKeys map[string]string) (string, error) {
	d := hash.NewDigest(algo)
	sorted := append([]string(nil), deps...)
	sort.Strings(sorted)
	for _, fqn := range sorted {
		key, ok := depActionKeys[fqn]
		if !ok {
			return "", fmt.Errorf("missing action key for dependency %q", fqn)
		}
		d.String(key)
	}
	return d.Sum(), nil
}
