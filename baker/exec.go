package baker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/fingerprint"
	"github.com/trinio-labs/bake/graph"
)

// killGrace is how long a task's child process is given to exit after
// SIGTERM before WaitDelay escalates to SIGKILL. Grounded on
// plugin/pluginexec/run.go's cmd.WaitDelay = 5*time.Second.
const killGrace = 5 * time.Second

// runTask implements spec's per-recipe task: acquire a permit, compute
// the action key, consult the cache, and on a miss run the recipe's
// shell command, streaming its output to a per-recipe log file.
func (e *Executor) runTask(ctx context.Context, sem *semaphore.Weighted, node *graph.Node, table *statusTable) *Result {
	started := time.Now()

	if err := sem.Acquire(ctx, 1); err != nil {
		return &Result{FQN: node.FQN, Status: Cancelled, Err: err, Started: started, Ended: time.Now()}
	}
	defer sem.Release(1)

	cb, recipe, err := e.lookupRecipe(node)
	if err != nil {
		return &Result{FQN: node.FQN, Status: Failed, Err: err, Started: started, Ended: time.Now()}
	}

	declaredEnv := ambientEnv(recipe.Environment)

	depKeys, err := e.dependencyActionKeys(recipe, table)
	if err != nil {
		return &Result{FQN: node.FQN, Status: Failed, Err: err, Started: started, Ended: time.Now()}
	}

	actionKey, err := fingerprint.ActionKey(recipe, cb.Path, declaredEnv, depKeys)
	if err != nil {
		return &Result{FQN: node.FQN, Status: Failed, Err: fmt.Errorf("baker: %s: %w", node.FQN, err), Started: started, Ended: time.Now()}
	}

	hit, err := e.strategy.Lookup(ctx, actionKey, cb.Path)
	if err != nil {
		e.log.Warnf("cache lookup failed for %s: %v", node.FQN, err)
	} else if hit.Hit {
		e.log.Debugf("%s: cache hit (%d files restored)", node.FQN, hit.RestoredFiles)
		return &Result{
			FQN: node.FQN, Status: SkippedHit, ActionKey: actionKey,
			Restored: hit.RestoredFiles, Started: started, Ended: time.Now(),
		}
	}

	return e.runCommand(ctx, cb, recipe, node, actionKey, declaredEnv, started)
}

// lookupRecipe resolves node against e.project's fully-loaded
// cookbook/recipe config. The executor only ever runs over a project
// the loader has already fully loaded (full mode is required to reach
// this package), so a lookup miss here is a programmer error, not a
// user-facing one.
func (e *Executor) lookupRecipe(node *graph.Node) (*config.Cookbook, *config.Recipe, error) {
	for _, cb := range e.project.Cookbooks {
		if cb.Name != node.Cookbook {
			continue
		}
		if !cb.Loaded {
			return nil, nil, fmt.Errorf("baker: cookbook %s was not fully loaded", cb.Name)
		}
		recipe, ok := cb.Recipes[node.Name]
		if !ok {
			return nil, nil, fmt.Errorf("baker: recipe %s not found in cookbook %s", node.Name, cb.Name)
		}
		return cb, recipe, nil
	}
	return nil, nil, fmt.Errorf("baker: cookbook %s not found", node.Cookbook)
}

// ambientEnv reads names off the process environment, matching
// varctx.selectDeclaredEnv's "declared name absent from ambient env
// resolves to empty" rule so a recipe's env-value digest and its
// actually-exported value never disagree.
func ambientEnv(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = os.Getenv(name)
	}
	return out
}

// dependencyActionKeys collects recipe.Dependencies' already-recorded
// action keys from table. Every dependency is guaranteed present and
// Success/SkippedHit by the scheduler's blockedBy check before this
// recipe's task is ever spawned.
func (e *Executor) dependencyActionKeys(recipe *config.Recipe, table *statusTable) (map[string]string, error) {
	keys := make(map[string]string, len(recipe.Dependencies))
	for _, fqn := range recipe.Dependencies {
		key, ok := table.actionKey(fqn)
		if !ok {
			return nil, fmt.Errorf("missing action key for dependency %s", fqn)
		}
		keys[fqn] = key
	}
	return keys, nil
}

// runCommand implements spec's on-miss path: build the shell
// environment, spawn `sh -c` with `set -e` prepended, stream output to
// a per-recipe log file (and the terminal when verbose), wait for
// exit, and store declared outputs on success.
func (e *Executor) runCommand(ctx context.Context, cb *config.Cookbook, recipe *config.Recipe, node *graph.Node, actionKey string, declaredEnv map[string]string, started time.Time) *Result {
	logPath := filepath.Join(cb.Path, ".bake", "logs", recipe.Name+".log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return &Result{FQN: node.FQN, Status: Failed, Err: fmt.Errorf("baker: create log dir: %w", err), Started: started, Ended: time.Now()}
	}
	logFile, err := os.Create(logPath)
	if err != nil {
		return &Result{FQN: node.FQN, Status: Failed, Err: fmt.Errorf("baker: create log file: %w", err), Started: started, Ended: time.Now()}
	}
	defer logFile.Close()

	var stdout, stderr io.Writer = logFile, logFile
	if e.opts.Verbose {
		stdout = io.MultiWriter(logFile, prefixWriter(os.Stdout, node.FQN))
		stderr = io.MultiWriter(logFile, prefixWriter(os.Stderr, node.FQN))
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", "set -e\n"+recipe.Run)
	cmd.Dir = cb.Path
	cmd.Env = buildEnv(e.opts.CleanEnvironment, recipe, declaredEnv, e.project, cb)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = killGrace
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Signal(syscall.SIGTERM)
	}

	runErr := cmd.Run()
	ended := time.Now()

	exitCode := 0
	if runErr != nil {
		exitCode = -1
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}

	if runErr != nil {
		status := Failed
		if ctx.Err() != nil {
			status = Cancelled
		}
		return &Result{
			FQN: node.FQN, Status: status, ActionKey: actionKey, ExitCode: exitCode,
			Err: fmt.Errorf("baker: %s: %w", node.FQN, runErr), Started: started, Ended: ended,
		}
	}

	res := &Result{FQN: node.FQN, Status: Success, ActionKey: actionKey, ExitCode: 0, Started: started, Ended: ended}

	if recipe.Cache != nil && len(recipe.Cache.Outputs) > 0 {
		exitCodeCopy := 0
		store, err := e.strategy.Store(ctx, actionKey, cb.Path, recipe.Cache.Outputs, started, ended, &exitCodeCopy)
		if err != nil {
			// Cache STORE failure after a successful run is a warning,
			// not a task failure.
			e.log.Warnf("cache store failed for %s: %v", node.FQN, err)
		} else {
			res.CacheStore = store
		}
	}

	return res
}

// buildEnv materializes the child process's environment: either the
// full inherited environment or, when clean is set, just PATH plus the
// recipe's declared names (Open Question decision: clean_environment
// and PATH), plus a fixed BAKE_* builtin prelude mirroring varctx's
// built-in namespace (project.root, cookbook.name, ...).
func buildEnv(clean bool, recipe *config.Recipe, declaredEnv map[string]string, project *config.Project, cb *config.Cookbook) []string {
	var env []string
	if clean {
		if path, ok := os.LookupEnv("PATH"); ok {
			env = append(env, "PATH="+path)
		}
		names := make([]string, 0, len(declaredEnv))
		for name := range declaredEnv {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			env = append(env, name+"="+declaredEnv[name])
		}
	} else {
		env = append(env, os.Environ()...)
	}

	env = append(env,
		"BAKE_PROJECT_ROOT="+project.Root,
		"BAKE_PROJECT_NAME="+project.Name,
		"BAKE_COOKBOOK_ROOT="+cb.Path,
		"BAKE_COOKBOOK_NAME="+cb.Name,
		"BAKE_RECIPE_NAME="+recipe.Name,
		"BAKE_RECIPE_COOKBOOK="+cb.Name,
	)

	return env
}

// linePrefixer prefixes every complete line written to w with
// "[fqn] ", buffering any trailing partial line until the next Write
// completes it. Used for verbose terminal output, where several
// recipes' streams interleave and each line needs to say whose it is.
type linePrefixer struct {
	w      io.Writer
	prefix string
	buf    []byte
}

func prefixWriter(w io.Writer, fqn string) io.Writer {
	return &linePrefixer{w: w, prefix: fqn}
}

func (lp *linePrefixer) Write(p []byte) (int, error) {
	lp.buf = append(lp.buf, p...)
	for {
		i := bytes.IndexByte(lp.buf, '\n')
		if i < 0 {
			break
		}
		if _, err := fmt.Fprintf(lp.w, "[%s] %s\n", lp.prefix, lp.buf[:i]); err != nil {
			return 0, err
		}
		lp.buf = lp.buf[i+1:]
	}
	return len(p), nil
}
