package loader

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/internal/hfs"
	"github.com/trinio-labs/bake/internal/hlog"
	"github.com/trinio-labs/bake/varctx"
)

// Options configures one Load call. Path is the explicit -p/--path
// value, if any; StartDir is where discovery starts walking upward
// from when Path is empty (typically the process's working directory).
type Options struct {
	StartDir string
	Path     string

	// Env is the ambient shell environment bake.yml's top-level
	// environment: list (and every nested scope's) draws from.
	Env map[string]string

	// SelectedOverride is the --env build-environment name, if any.
	SelectedOverride string

	// CLIOverrides are -D/--define k=v flags, applied last over every
	// scope.
	CLIOverrides map[string]string

	// Eager forces every discovered cookbook through full loading
	// immediately. Without it Load leaves every cookbook Discovered;
	// the CLI does not set Eager, and instead plans from discovery
	// headers and then upgrades only the selected closure's cookbooks
	// through LoadCookbook before execution.
	Eager bool

	// ForceVersionOverride skips the config.minVersion check.
	ForceVersionOverride bool
}

// Load discovers the project root, reads bake.yml, loads helpers and
// recipe templates, discovers every cookbook, and (if opts.Eager) runs
// every cookbook through full loading. The returned Project is
// immutable from the caller's perspective from this point on.
func Load(ctx context.Context, opts Options) (*config.Project, error) {
	log := hlog.Default().With("component", "loader")

	root, file, err := DiscoverRoot(opts.StartDir, opts.Path)
	if err != nil {
		return nil, err
	}

	project, err := loadProjectFile(file)
	if err != nil {
		return nil, err
	}
	project.Root = root

	if !opts.ForceVersionOverride && project.Tool.MinVersion != "" && Version != "0.0.0-dev" {
		if !versionAtLeast(Version, project.Tool.MinVersion) {
			return nil, &config.VersionMismatchError{Required: project.Tool.MinVersion, Actual: Version}
		}
	}

	helpers, err := loadHelpers(filepath.Join(root, ".bake", "helpers"))
	if err != nil {
		return nil, err
	}
	project.Helpers = helpers

	templates, err := loadTemplates(filepath.Join(root, ".bake", "templates"))
	if err != nil {
		return nil, err
	}
	project.Templates = templates

	ig, err := hfs.NewIgnorerFromFile(filepath.Join(root, ".bakeignore"))
	if err != nil {
		return nil, err
	}

	dirs, err := discoverCookbookDirs(root, ig)
	if err != nil {
		return nil, err
	}

	byName := map[string][]string{}
	for _, rel := range dirs {
		abs := filepath.Join(root, rel)
		cb, err := loadCookbookDiscovery(abs)
		if err != nil {
			return nil, err
		}
		project.Cookbooks = append(project.Cookbooks, cb)
		byName[cb.Name] = append(byName[cb.Name], abs)
	}

	for name, paths := range byName {
		if len(paths) > 1 {
			return nil, &config.DuplicateCookbookError{Name: name, Paths: paths}
		}
	}

	rootCtx := varctx.NewRoot(opts.Env)
	projectCtx, err := varctx.BuildLayer(ctx, rootCtx, varctx.LayerInput{
		RawConfig:        project.RawYAML(),
		SelectedOverride: opts.SelectedOverride,
		DeclaredEnv:      project.Environment,
		BuiltinScope:     "project",
		Builtins:         map[string]any{"root": project.Root, "name": project.Name},
		Helpers:          bindHelpers(helpers, rootCtx.Env(), rootCtx.Vars()),
	})
	if err != nil {
		return nil, fmt.Errorf("loader: build project context: %w", err)
	}
	if len(opts.CLIOverrides) > 0 {
		projectCtx = varctx.WithCLIOverrides(projectCtx, opts.CLIOverrides)
	}
	project.Variables = projectCtx.Vars()

	if opts.Eager {
		for _, cb := range project.Cookbooks {
			if err := loadCookbookFull(ctx, cb, projectCtx, opts.SelectedOverride, helpers, templates); err != nil {
				return nil, err
			}
		}
	}

	log.Debugf("loaded project at %s with %d cookbooks", root, len(project.Cookbooks))
	return project, nil
}

// LoadCookbook upgrades a single discovery-mode cookbook already
// present on project to Loaded: true — the lazy Discovered -> Full
// transition. The CLI calls it for each cookbook in the selected
// closure after planning and before handing the levels to the
// executor; an already-loaded cookbook is left as it is.
func LoadCookbook(ctx context.Context, project *config.Project, cb *config.Cookbook, opts Options) error {
	if cb.Loaded {
		return nil
	}

	rootCtx := varctx.NewRoot(opts.Env)
	projectCtx, err := varctx.BuildLayer(ctx, rootCtx, varctx.LayerInput{
		RawConfig:        project.RawYAML(),
		SelectedOverride: opts.SelectedOverride,
		DeclaredEnv:      project.Environment,
		BuiltinScope:     "project",
		Builtins:         map[string]any{"root": project.Root, "name": project.Name},
		Helpers:          bindHelpers(project.Helpers, rootCtx.Env(), rootCtx.Vars()),
	})
	if err != nil {
		return fmt.Errorf("loader: build project context: %w", err)
	}
	if len(opts.CLIOverrides) > 0 {
		projectCtx = varctx.WithCLIOverrides(projectCtx, opts.CLIOverrides)
	}

	return loadCookbookFull(ctx, cb, projectCtx, opts.SelectedOverride, project.Helpers, project.Templates)
}
