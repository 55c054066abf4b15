package loader

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/trinio-labs/bake/config"
)

// loadProjectFile reads and structurally parses bake.yml. variables:
// and overrides: are left for varctx to extract from the raw text
// stashed on the returned Project via SetRawYAML.
func loadProjectFile(path string) (*config.Project, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw rawProjectFile
	if err := yaml.UnmarshalWithOptions(b, &raw, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("loader: parse %s: %w", path, err)
	}

	p := &config.Project{
		Name:        derefStr(raw.Name),
		Description: derefStr(raw.Description),
		Environment: raw.Environment,
		Tool: config.ToolConfig{
			MaxParallel:      derefInt(raw.Config.MaxParallel, 0),
			ReservedThreads:  derefInt(raw.Config.ReservedThreads, 0),
			FastFail:         derefBool(raw.Config.FastFail, false),
			CleanEnvironment: derefBool(raw.Config.CleanEnvironment, false),
			Verbose:          derefBool(raw.Config.Verbose, false),
			MinVersion:       derefStr(raw.Config.MinVersion),
		},
		Cache: config.CacheConfig{
			Mode:   derefStr(raw.Cache.Mode),
			Dir:    derefStr(raw.Cache.Dir),
			Remote: resolveRemoteTiers(raw.Cache.Remote),
		},
		Update: config.UpdateConfig{
			Enabled: derefBool(raw.Update.Enabled, false),
			Channel: derefStr(raw.Update.Channel),
		},
	}
	p.SetRawYAML(string(b))

	return p, nil
}

func resolveRemoteTiers(raw []rawRemoteTier) []config.RemoteTier {
	out := make([]config.RemoteTier, len(raw))
	for i, t := range raw {
		out[i] = config.RemoteTier{
			Name:    t.Name,
			Driver:  t.Driver,
			Bucket:  t.Bucket,
			Prefix:  t.Prefix,
			Region:  t.Region,
			Options: t.Options,
		}
	}
	return out
}
