package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/trinio-labs/bake/actioncache"
	"github.com/trinio-labs/bake/cas"
	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/fingerprint"
	"github.com/trinio-labs/bake/graph"
	"github.com/trinio-labs/bake/hash"
	"github.com/trinio-labs/bake/internal/hlog"
)

// runClean implements -c/--clean. cachestrategy.Strategy only exposes
// Lookup/Get-by-action-key, never an enumeration of every manifest it
// holds, so a selector-scoped clean can't ask "what's cached that
// matches this selector" the way the blob index can ask "what's
// unreachable" — there's no manifest listing to intersect against.
// Two modes route around that: bare `bake -c` (no selector at all)
// wipes the whole local cache with a real cas.GC sweep, which needs no
// manifest enumeration because an empty reachable set evicts
// everything. `bake -c <selector>` instead recomputes the matched
// recipes' action keys the same way the executor would and deletes
// just their manifests, leaving shared content-addressed blobs alone
// since another manifest may still point at them.
func runClean(ctx context.Context, project *config.Project, selected []*graph.Node, levels [][]*graph.Node, env map[string]string) error {
	log := hlog.Default().With("component", "cmd.clean")

	if selectedEverySelector(selected, levels) {
		return cleanAll(ctx, project, env, log)
	}
	return cleanSelected(ctx, project, selected, levels, env, log)
}

// selectedEverySelector reports whether selected covers the whole
// leveled set, i.e. the CLI was invoked with no positional selector at
// all (graph.Select's "empty patterns selects every node" rule).
func selectedEverySelector(selected []*graph.Node, levels [][]*graph.Node) bool {
	total := 0
	for _, level := range levels {
		total += len(level)
	}
	return len(selected) == total
}

func cleanAll(ctx context.Context, project *config.Project, env map[string]string, log hlog.Logger) error {
	dir := cacheDir(project, env)
	blobsDir := filepath.Join(dir, "blobs")
	local := cas.NewLocalBlobStore(blobsDir)

	idxPath := filepath.Join(dir, "index.sqlite")
	idx, err := cas.OpenBlobIndex(ctx, idxPath, func(ctx context.Context) ([]cas.BlobEntry, error) {
		return cas.RebuildFromLocalStore(ctx, local)
	})
	if err != nil {
		return fmt.Errorf("cmd: clean: open blob index: %w", err)
	}
	defer idx.Close()

	res, err := cas.GC(ctx, idx, local, nil, 0, cas.LRU)
	if err != nil {
		return fmt.Errorf("cmd: clean: %w", err)
	}

	log.Infof("clean: scanned %d blob(s), evicted %d, freed %d byte(s)", res.Scanned, res.Evicted, res.BytesFreed)
	return nil
}

func cleanSelected(ctx context.Context, project *config.Project, selected []*graph.Node, levels [][]*graph.Node, env map[string]string, log hlog.Logger) error {
	keys, err := computeActionKeys(levels, project)
	if err != nil {
		return fmt.Errorf("cmd: clean: %w", err)
	}

	local, remotes, err := buildBlobTiers(ctx, project, env)
	if err != nil {
		return fmt.Errorf("cmd: clean: %w", err)
	}
	blobs := cas.NewLayeredBlobStore(append([]cas.Tier{local}, remotes...))

	var deleted int
	for _, node := range selected {
		key, ok := keys[node.FQN]
		if !ok {
			continue
		}
		addr := actioncache.ManifestAddress(hash.DefaultAlgo, key)
		if err := blobs.Delete(ctx, addr); err != nil && !errors.Is(err, cas.ErrNotFound) {
			log.Warnf("clean: delete manifest for %s: %v", node.FQN, err)
			continue
		}
		deleted++
	}

	log.Infof("clean: invalidated %d manifest(s)", deleted)
	return nil
}

// computeActionKeys walks levels bottom-up, computing every recipe's
// action key the same way baker.Executor.runTask does — dependency
// levels are already ordered so a recipe's dependencies' keys are
// always computed first.
func computeActionKeys(levels [][]*graph.Node, project *config.Project) (map[string]string, error) {
	keys := map[string]string{}

	for _, level := range levels {
		for _, node := range level {
			cb := findCookbook(project, node.Cookbook)
			if cb == nil {
				return nil, fmt.Errorf("cookbook %q not found for recipe %q", node.Cookbook, node.FQN)
			}
			recipe, ok := cb.Recipes[node.Name]
			if !ok {
				return nil, fmt.Errorf("recipe %q not found in cookbook %q", node.Name, node.Cookbook)
			}

			declaredEnv := make(map[string]string, len(recipe.Environment))
			for _, name := range recipe.Environment {
				declaredEnv[name] = os.Getenv(name)
			}

			depKeys := make(map[string]string, len(recipe.Dependencies))
			for _, dep := range recipe.Dependencies {
				key, ok := keys[dep]
				if !ok {
					return nil, fmt.Errorf("missing action key for dependency %s", dep)
				}
				depKeys[dep] = key
			}

			key, err := fingerprint.ActionKey(recipe, cb.Path, declaredEnv, depKeys)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", node.FQN, err)
			}
			keys[node.FQN] = key
		}
	}

	return keys, nil
}
