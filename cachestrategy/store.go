package cachestrategy

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/trinio-labs/bake/actioncache"
	"github.com/trinio-labs/bake/cas"
	"github.com/trinio-labs/bake/internal/hfs"
)

// StoreResult reports what Store actually wrote, for the recipe's
// execution statistics.
type StoreResult struct {
	FilesStored    int
	BytesStored    int64
	ManifestStored bool
}

// Store implements spec's cache-strategy store algorithm: expand the
// declared output globs against workdir, hash and PUT each file,
// build and sign the manifest, and PUT the manifest to every tier.
//
// A remote-tier PUT failure is not fatal as long as at least one tier
// accepted (cas.LayeredBlobStore.Put already implements that). A total
// failure to store outputs or the manifest is returned to the caller to
// log, but the executor still counts the recipe as succeeded if the
// command itself did — Store's caller decides that, not Store.
func (s *Strategy) Store(ctx context.Context, actionKey string, workdir string, outputPatterns []string, started, ended time.Time, exitCode *int) (StoreResult, error) {
	if s.mode == Disabled {
		return StoreResult{}, nil
	}

	files, dirs, err := expandOutputs(workdir, outputPatterns)
	if err != nil {
		return StoreResult{}, fmt.Errorf("cachestrategy: expand output patterns: %w", err)
	}

	var res StoreResult
	outputs := make([]actioncache.OutputDescriptor, 0, len(files)+len(dirs))

	for _, rel := range dirs {
		outputs = append(outputs, actioncache.OutputDescriptor{RelativePath: rel, IsDirectoryMarker: true})
	}

	for _, rel := range files {
		desc, size, err := s.storeOutputFile(ctx, workdir, rel)
		if err != nil {
			return res, fmt.Errorf("cachestrategy: store output %s: %w", rel, err)
		}
		outputs = append(outputs, desc)
		res.FilesStored++
		res.BytesStored += size
	}

	if !s.signingEnabled() {
		// No secret configured: outputs are in the blob store for a
		// future run that does have a secret, but there is no manifest
		// to sign, so lookups remain misses until one is configured.
		return res, nil
	}

	m := actioncache.Manifest{
		ActionKey: actionKey,
		Outputs:   outputs,
		StartedAt: started,
		EndedAt:   ended,
		ExitCode:  exitCode,
	}

	if err := s.manifests.Put(ctx, m, s.secret); err != nil {
		return res, fmt.Errorf("cachestrategy: store manifest: %w", err)
	}
	res.ManifestStored = true

	return res, nil
}

// storeOutputFile hashes and PUTs one output file, switching to
// content-defined chunking above cas.ChunkThreshold so large outputs
// dedupe at the chunk level across unrelated recipes.
func (s *Strategy) storeOutputFile(ctx context.Context, workdir, rel string) (actioncache.OutputDescriptor, int64, error) {
	abs := filepath.Join(workdir, filepath.FromSlash(rel))

	info, err := os.Stat(abs)
	if err != nil {
		return actioncache.OutputDescriptor{}, 0, err
	}
	executable := info.Mode()&0o111 != 0

	if info.Size() > cas.ChunkThreshold {
		return s.storeChunkedOutput(ctx, abs, rel, executable, info.Size())
	}

	b, err := os.ReadFile(abs)
	if err != nil {
		return actioncache.OutputDescriptor{}, 0, err
	}

	h, err := s.blobs.Put(ctx, s.algo, b)
	if err != nil {
		return actioncache.OutputDescriptor{}, 0, err
	}

	return actioncache.OutputDescriptor{
		RelativePath: rel,
		Hash:         h,
		IsExecutable: executable,
		FileSize:     info.Size(),
	}, info.Size(), nil
}

func (s *Strategy) storeChunkedOutput(ctx context.Context, abs, rel string, executable bool, size int64) (actioncache.OutputDescriptor, int64, error) {
	f, err := os.Open(abs)
	if err != nil {
		return actioncache.OutputDescriptor{}, 0, err
	}
	defer f.Close()

	cm, err := cas.ChunkAndStore(ctx, s.blobs, s.algo, f)
	if err != nil {
		return actioncache.OutputDescriptor{}, 0, err
	}

	body, err := json.Marshal(cm)
	if err != nil {
		return actioncache.OutputDescriptor{}, 0, err
	}

	h, err := s.blobs.Put(ctx, s.algo, body)
	if err != nil {
		return actioncache.OutputDescriptor{}, 0, err
	}

	return actioncache.OutputDescriptor{
		RelativePath: rel,
		Hash:         h,
		IsExecutable: executable,
		FileSize:     size,
		Chunked:      true,
	}, size, nil
}

// expandOutputs resolves declared output glob patterns against workdir,
// returning the matched regular files and directories separately —
// directories become IsDirectoryMarker entries, regular files get
// hashed and stored.
func expandOutputs(workdir string, patterns []string) (files, dirs []string, err error) {
	fsys := os.DirFS(workdir)

	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := hfs.Glob(fsys, pattern)
		if err != nil {
			return nil, nil, fmt.Errorf("glob %q: %w", pattern, err)
		}

		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true

			info, err := fs.Stat(fsys, m)
			if err != nil {
				return nil, nil, err
			}

			if info.IsDir() {
				dirs = append(dirs, m)
			} else {
				files = append(files, m)
			}
		}
	}

	return files, dirs, nil
}
