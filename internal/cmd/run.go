package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/trinio-labs/bake/baker"
	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/config/loader"
	"github.com/trinio-labs/bake/graph"
)

// runBake implements the whole CLI pipeline: load the project, select
// and close the recipe set, optionally print the plan, and either clean
// caches for the selection or execute it.
func runBake(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	env := envMap(os.Environ())

	overrides, err := parseDefines(flagDefines)
	if err != nil {
		return fail(exitValidation, err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fail(exitLoadError, err)
	}

	loaderOpts := loader.Options{
		StartDir:             cwd,
		Path:                 flagPath,
		Env:                  env,
		SelectedOverride:     flagEnv,
		CLIOverrides:         overrides,
		ForceVersionOverride: flagForceVersionOverride,
	}

	project, err := loader.Load(ctx, loaderOpts)
	if err != nil {
		return classifyErr(err)
	}

	g, err := graph.Build(project)
	if err != nil {
		return classifyErr(err)
	}

	selected, err := graph.Select(g, args, flagRegex, flagTags)
	if err != nil {
		return fail(exitValidation, err)
	}
	if len(selected) == 0 {
		return fail(exitValidation, fmt.Errorf("cmd: no recipe matched the given selectors"))
	}

	closure, err := graph.Closure(g, selected)
	if err != nil {
		return classifyErr(err)
	}

	levels, err := graph.Levels(closure)
	if err != nil {
		return classifyErr(err)
	}

	if flagShowPlan || flagTree {
		printPlan(os.Stdout, levels, flagTree)
	}
	if flagDryRun {
		return nil
	}

	for _, node := range closure {
		cb := findCookbook(project, node.Cookbook)
		if cb == nil {
			return fail(exitLoadError, fmt.Errorf("cmd: cookbook %q not found for recipe %q", node.Cookbook, node.FQN))
		}
		if err := loader.LoadCookbook(ctx, project, cb, loaderOpts); err != nil {
			return classifyErr(err)
		}
	}

	if flagClean {
		if err := runClean(ctx, project, selected, levels, env); err != nil {
			return fail(exitLoadError, err)
		}
		return nil
	}

	strategy, err := buildCacheStrategy(ctx, project, env)
	if err != nil {
		return fail(exitLoadError, err)
	}

	fastFail, err := resolvedFastFail(project.Tool.FastFail)
	if err != nil {
		return fail(exitValidation, err)
	}

	opts := baker.Options{
		MaxParallel:      firstPositive(flagJobs, project.Tool.MaxParallel),
		ReservedThreads:  project.Tool.ReservedThreads,
		FastFail:         fastFail,
		Verbose:          flagVerbose || project.Tool.Verbose,
		CleanEnvironment: project.Tool.CleanEnvironment,
	}

	exec := baker.New(project, strategy, opts)
	results, err := exec.Run(ctx, levels)
	if err != nil {
		return fail(exitLoadError, err)
	}

	printResults(os.Stdout, results)

	if anyFailed(results) {
		return fail(exitRecipesFailed, fmt.Errorf("cmd: one or more recipes failed"))
	}
	return nil
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}

func findCookbook(project *config.Project, name string) *config.Cookbook {
	for _, cb := range project.Cookbooks {
		if cb.Name == name {
			return cb
		}
	}
	return nil
}

func envMap(environ []string) map[string]string {
	out := make(map[string]string, len(environ))
	for _, kv := range environ {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		out[name] = val
	}
	return out
}

func parseDefines(defines []string) (map[string]string, error) {
	out := make(map[string]string, len(defines))
	for _, d := range defines {
		name, val, ok := strings.Cut(d, "=")
		if !ok {
			return nil, fmt.Errorf("cmd: invalid -D/--define %q, expected k=v", d)
		}
		out[name] = val
	}
	return out, nil
}

func anyFailed(results map[string]*baker.Result) bool {
	for _, r := range results {
		switch r.Status {
		case baker.Failed, baker.Cancelled, baker.SkippedFailed:
			return true
		}
	}
	return false
}

func printResults(w io.Writer, results map[string]*baker.Result) {
	fqns := make([]string, 0, len(results))
	for fqn := range results {
		fqns = append(fqns, fqn)
	}
	sort.Strings(fqns)

	for _, fqn := range fqns {
		r := results[fqn]
		dur := r.Ended.Sub(r.Started).Round(time.Millisecond)
		switch r.Status {
		case baker.SkippedHit:
			fmt.Fprintf(w, "%-14s %s (restored %d file(s))\n", r.Status, fqn, r.Restored)
		case baker.Failed:
			fmt.Fprintf(w, "%-14s %s in %s: %v\n", r.Status, fqn, dur, r.Err)
		default:
			fmt.Fprintf(w, "%-14s %s in %s\n", r.Status, fqn, dur)
		}
	}
}
