// Package baker is bake's executor: it walks a project's dependency
// levels, runs each level's recipes under a bounded worker pool,
// consults the cache before spawning a shell, and propagates failure
// and cancellation to downstream recipes.
//
// Grounded on heph's worker package (worker/worker.go) for the
// job/pool shape and on plugin/pluginexec/run.go for the
// semaphore-gated, cancellable child-process idiom; generalized from a
// single flat job queue to bake's level-by-level scheduling because,
// unlike heph's incrementally-discovered target graph, bake's levels
// are fully known ahead of any task starting.
package baker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/trinio-labs/bake/cachestrategy"
	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/graph"
	"github.com/trinio-labs/bake/internal/hlog"
)

// Status is a recipe's terminal execution outcome.
type Status string

const (
	Success       Status = "success"
	SkippedHit    Status = "skipped_hit"
	Failed        Status = "failed"
	Cancelled     Status = "cancelled"
	SkippedFailed Status = "skipped_failed"
)

// Result is one recipe's outcome, recorded in the status table at
// task completion and returned to the caller once the whole run ends.
type Result struct {
	FQN        string
	Status     Status
	ActionKey  string
	ExitCode   int
	Err        error
	Started    time.Time
	Ended      time.Time
	CacheStore cachestrategy.StoreResult
	Restored   int
}

// Options configures an Executor. MaxParallel and ReservedThreads feed
// EffectiveMaxParallel; FastFail, Verbose and CleanEnvironment mirror
// config.ToolConfig's fields of the same name (the CLI may override
// any of the three independent of what bake.yml declares).
type Options struct {
	MaxParallel      int
	ReservedThreads  int
	FastFail         bool
	Verbose          bool
	CleanEnvironment bool
}

// Executor runs a project's selected recipes level by level.
type Executor struct {
	project  *config.Project
	strategy *cachestrategy.Strategy
	opts     Options
	log      hlog.Logger
}

// New builds an Executor bound to project and the cache strategy
// recipes are looked up in and stored to. levels passed to Run carry
// their own *graph.Graph-derived dependency metadata, so Executor
// itself holds no reference to the graph they were computed from.
func New(project *config.Project, strategy *cachestrategy.Strategy, opts Options) *Executor {
	return &Executor{
		project:  project,
		strategy: strategy,
		opts:     opts,
		log:      hlog.Default().With("component", "baker"),
	}
}

// EffectiveMaxParallel implements spec's
// `min(max_parallel, max(1, system_threads - reserved_threads))`.
// system_threads is runtime.NumCPU(), the same call heph's
// cmd/flag_workers.go uses to default its own worker count.
func EffectiveMaxParallel(maxParallel, reservedThreads int) int {
	budget := runtime.NumCPU() - reservedThreads
	if budget < 1 {
		budget = 1
	}
	if maxParallel <= 0 || maxParallel > budget {
		return budget
	}
	return maxParallel
}

// Run executes levels (normally graph.Levels' output over a
// selection's transitive closure) and returns every recipe's Result,
// keyed by FQN.
//
// Implements spec's execution loop: within a level every runnable
// recipe is spawned concurrently and awaited; a Failed recipe under
// fast_fail cancels the shared context, which aborts in-flight
// siblings and every later level; without fast_fail, only a failed
// recipe's dependents are marked Skipped-Failed and independent
// branches keep running.
func (e *Executor) Run(ctx context.Context, levels [][]*graph.Node) (map[string]*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(EffectiveMaxParallel(e.opts.MaxParallel, e.opts.ReservedThreads)))

	table := newStatusTable()
	aborted := false

	for _, level := range levels {
		if aborted {
			for _, node := range level {
				table.set(&Result{FQN: node.FQN, Status: Cancelled, Err: fmt.Errorf("baker: cancelled by fast-fail")})
			}
			continue
		}

		runnable := make([]*graph.Node, 0, len(level))
		for _, node := range level {
			if dep, blocked := table.blockedBy(node); blocked {
				table.set(&Result{
					FQN:    node.FQN,
					Status: SkippedFailed,
					Err:    fmt.Errorf("baker: dependency %s did not succeed", dep),
				})
				continue
			}
			runnable = append(runnable, node)
		}

		var wg sync.WaitGroup
		var levelFailed atomic.Bool
		for _, node := range runnable {
			node := node
			wg.Add(1)
			go func() {
				defer wg.Done()
				res := e.runTask(ctx, sem, node, table)
				table.set(res)
				if res.Status == Failed {
					levelFailed.Store(true)
					if e.opts.FastFail {
						cancel()
					}
				}
			}()
		}
		wg.Wait()

		if e.opts.FastFail && levelFailed.Load() {
			aborted = true
		}
	}

	return table.snapshot(), nil
}

// statusTable is spec's "mutable map guarded by a mutex": writes
// happen at task completion, reads happen between levels as the
// scheduler decides what is blocked.
type statusTable struct {
	mu      sync.Mutex
	results map[string]*Result
}

func newStatusTable() *statusTable {
	return &statusTable{results: map[string]*Result{}}
}

func (t *statusTable) set(r *Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results[r.FQN] = r
}

func (t *statusTable) get(fqn string) (*Result, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.results[fqn]
	return r, ok
}

// blockedBy reports whether node has a dependency that did not reach
// Success or SkippedHit, and which one if so.
func (t *statusTable) blockedBy(node *graph.Node) (string, bool) {
	for _, dep := range node.Dependencies {
		r, ok := t.get(dep)
		if !ok {
			continue
		}
		if r.Status != Success && r.Status != SkippedHit {
			return dep, true
		}
	}
	return "", false
}

// actionKey returns a dependency's already-computed action key, for
// fingerprint.ActionKey's dependency digest. A cache-hit dependency's
// action key is the one that produced the hit, which is exactly what
// downstream recipes need to fingerprint against.
func (t *statusTable) actionKey(fqn string) (string, bool) {
	r, ok := t.get(fqn)
	if !ok {
		return "", false
	}
	return r.ActionKey, r.ActionKey != ""
}

func (t *statusTable) snapshot() map[string]*Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]*Result, len(t.results))
	for k, v := range t.results {
		out[k] = v
	}
	return out
}
