package template

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// builtinHelpers mirrors the small set of comparison, boolean, and
// shell-execution helpers spec's template language promises. Shelling
// out follows gitstatus.Changes's exec.CommandContext/cmd.Output idiom
// rather than anything bespoke.
var builtinHelpers = map[string]Helper{
	"eq":     helperEq,
	"ne":     helperNe,
	"lt":     helperCompareNum(func(a, b float64) bool { return a < b }),
	"lte":    helperCompareNum(func(a, b float64) bool { return a <= b }),
	"gt":     helperCompareNum(func(a, b float64) bool { return a > b }),
	"gte":    helperCompareNum(func(a, b float64) bool { return a >= b }),
	"and":    helperAnd,
	"or":     helperOr,
	"not":    helperNot,
	"concat": helperConcat,
	"upper":  helperUpper,
	"lower":  helperLower,
	"default": helperDefault,

	"shell":       sharedShellRunner.shell,
	"shell_lines": sharedShellRunner.shellLines,
}

func helperEq(_ context.Context, args []any, _ map[string]any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("eq: want 2 arguments, got %d", len(args))
	}
	return fmt.Sprint(args[0]) == fmt.Sprint(args[1]), nil
}

func helperNe(ctx context.Context, args []any, kwargs map[string]any) (any, error) {
	v, err := helperEq(ctx, args, kwargs)
	if err != nil {
		return nil, err
	}
	return !v.(bool), nil
}

func helperCompareNum(cmp func(a, b float64) bool) Helper {
	return func(_ context.Context, args []any, _ map[string]any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("want 2 numeric arguments, got %d", len(args))
		}
		a, ok1 := args[0].(float64)
		b, ok2 := args[1].(float64)
		if !ok1 || !ok2 {
			return nil, fmt.Errorf("arguments must be numbers, got %T and %T", args[0], args[1])
		}
		return cmp(a, b), nil
	}
}

func helperAnd(_ context.Context, args []any, _ map[string]any) (any, error) {
	for _, a := range args {
		if !truthy(a) {
			return false, nil
		}
	}
	return true, nil
}

func helperOr(_ context.Context, args []any, _ map[string]any) (any, error) {
	for _, a := range args {
		if truthy(a) {
			return true, nil
		}
	}
	return false, nil
}

func helperNot(_ context.Context, args []any, _ map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("not: want 1 argument, got %d", len(args))
	}
	return !truthy(args[0]), nil
}

func helperConcat(_ context.Context, args []any, _ map[string]any) (any, error) {
	var b strings.Builder
	for _, a := range args {
		b.WriteString(stringify(a))
	}
	return b.String(), nil
}

func helperUpper(_ context.Context, args []any, _ map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("upper: want 1 argument, got %d", len(args))
	}
	return strings.ToUpper(stringify(args[0])), nil
}

func helperLower(_ context.Context, args []any, _ map[string]any) (any, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("lower: want 1 argument, got %d", len(args))
	}
	return strings.ToLower(stringify(args[0])), nil
}

func helperDefault(_ context.Context, args []any, _ map[string]any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("default: want 2 arguments, got %d", len(args))
	}
	if args[0] == nil || !truthy(args[0]) {
		return args[1], nil
	}
	return args[0], nil
}

// shellRunner executes "shell" and "shell_lines" helper calls, caching
// each distinct command's output for the lifetime of one render pass —
// the same command invoked twice while rendering a single template (a
// common pattern: `{{shell "git rev-parse HEAD"}}` referenced by both a
// tag name and a label) must not shell out twice.
type shellRunner struct {
	mu    sync.Mutex
	cache map[string][]byte
}

var sharedShellRunner = &shellRunner{cache: map[string][]byte{}}

func (r *shellRunner) run(ctx context.Context, args []any) ([]byte, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("shell: want 1 argument, got %d", len(args))
	}
	command, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("shell: argument must be a string, got %T", args[0])
	}

	r.mu.Lock()
	if cached, ok := r.cache[command]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("shell %q: %w: %s", command, err, strings.TrimSpace(stderr.String()))
	}

	r.mu.Lock()
	r.cache[command] = out
	r.mu.Unlock()

	return out, nil
}

func (r *shellRunner) shell(ctx context.Context, args []any, _ map[string]any) (any, error) {
	out, err := r.run(ctx, args)
	if err != nil {
		return nil, err
	}
	return strings.TrimRight(string(out), "\n"), nil
}

func (r *shellRunner) shellLines(ctx context.Context, args []any, _ map[string]any) (any, error) {
	out, err := r.run(ctx, args)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimRight(string(out), "\n")
	if trimmed == "" {
		return []any{}, nil
	}
	lines := strings.Split(trimmed, "\n")
	result := make([]any, len(lines))
	for i, l := range lines {
		result[i] = l
	}
	return result, nil
}
