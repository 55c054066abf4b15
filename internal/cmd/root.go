// Package cmd wires bake's cobra CLI: flag parsing, project loading,
// graph selection, cache-tier construction, and handing the selected
// recipes to baker.Executor.
//
// Grounded on heph's internal/cmd/root.go for the single-rootCmd,
// context-carrying Execute() shape, generalized from heph's subcommand
// tree (build/run/query/...) to bake's single-verb CLI: every invocation
// runs recipes, so there is one RunE instead of a command per verb.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trinio-labs/bake/internal/hlog"
)

var (
	flagPath                 string
	flagJobs                 int
	flagFailFast             bool
	flagNoFailFast           bool
	flagVerbose              bool
	flagDryRun               bool
	flagShowPlan             bool
	flagTree                 bool
	flagDefines              []string
	flagRegex                bool
	flagTags                 []string
	flagEnv                  string
	flagCacheMode            string
	flagSkipCache            bool
	flagClean                bool
	flagForceVersionOverride bool
)

var rootCmd = &cobra.Command{
	Use:           "bake [selector...]",
	Short:         "Run recipes across a polyglot monorepo",
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PreRunE:       preRunBake,
	RunE:          runBake,
}

// preRunBake runs after cobra has parsed flags but before runBake, so
// this is the first point flagVerbose reflects the CLI invocation.
func preRunBake(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		hlog.SetLevel(hlog.DebugLevel)
	}
	return nil
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&flagPath, "path", "p", "", "project root or config path")
	flags.IntVarP(&flagJobs, "jobs", "j", 0, "override max_parallel")
	flags.BoolVarP(&flagFailFast, "fail-fast", "f", false, "override fast_fail to true")
	flags.BoolVar(&flagNoFailFast, "no-fail-fast", false, "override fast_fail to false")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "enable verbose execution output")
	flags.BoolVarP(&flagDryRun, "dry-run", "n", false, "compute the plan, do not execute")
	flags.BoolVarP(&flagShowPlan, "show-plan", "e", false, "print the execution plan")
	flags.BoolVarP(&flagTree, "tree", "t", false, "print the execution plan as a dependency tree")
	flags.StringArrayVarP(&flagDefines, "define", "D", nil, "CLI variable override, k=v (repeatable)")
	flags.BoolVar(&flagRegex, "regex", false, "interpret selectors as regular expressions")
	flags.StringArrayVar(&flagTags, "tag", nil, "filter selection by tag (repeatable)")
	flags.StringVar(&flagEnv, "env", "", "select an overrides group")
	flags.StringVar(&flagCacheMode, "cache", "", "override cache mode (local-only, remote-only, local-first, remote-first, disabled)")
	flags.BoolVar(&flagSkipCache, "skip-cache", false, "alias for --cache disabled")
	flags.BoolVarP(&flagClean, "clean", "c", false, "remove caches for selected recipes")
	flags.BoolVar(&flagForceVersionOverride, "force-version-override", false, "ignore config.minVersion mismatch")
}

// Execute parses args, runs the selected recipes, and returns the
// process exit code main should pass to os.Exit.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		hlog.Default().Errorf("%v", err)
	}
	return exitCode(err)
}

// resolvedFastFail applies -f/--fail-fast and --no-fail-fast over a
// project's configured fast_fail, the CLI flag winning when either is
// set. Both set at once is a usage error the cobra flag parser won't
// catch on its own (they're independent bools, not a mutually exclusive
// group), so it's rejected here instead.
func resolvedFastFail(configured bool) (bool, error) {
	if flagFailFast && flagNoFailFast {
		return false, fmt.Errorf("cmd: --fail-fast and --no-fail-fast are mutually exclusive")
	}
	if flagFailFast {
		return true, nil
	}
	if flagNoFailFast {
		return false, nil
	}
	return configured, nil
}
