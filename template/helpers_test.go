package template

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperEqAndNe(t *testing.T) {
	ctx := context.Background()

	eq, err := helperEq(ctx, []any{"a", "a"}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, eq)

	ne, err := helperNe(ctx, []any{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, ne)
}

func TestHelperAndOrNot(t *testing.T) {
	ctx := context.Background()

	and, err := helperAnd(ctx, []any{true, "x", float64(1)}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, and)

	and, err = helperAnd(ctx, []any{true, ""}, nil)
	require.NoError(t, err)
	assert.Equal(t, false, and)

	or, err := helperOr(ctx, []any{false, "", "nonempty"}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, or)

	not, err := helperNot(ctx, []any{false}, nil)
	require.NoError(t, err)
	assert.Equal(t, true, not)
}

func TestHelperConcatUpperLower(t *testing.T) {
	ctx := context.Background()

	c, err := helperConcat(ctx, []any{"a", "-", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "a-b", c)

	u, err := helperUpper(ctx, []any{"abc"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "ABC", u)

	l, err := helperLower(ctx, []any{"ABC"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "abc", l)
}

func TestHelperDefaultFallsBackOnFalsy(t *testing.T) {
	ctx := context.Background()

	v, err := helperDefault(ctx, []any{"", "fallback"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)

	v, err = helperDefault(ctx, []any{"set", "fallback"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "set", v)
}

func TestShellHelperRunsAndTrimsTrailingNewline(t *testing.T) {
	ctx := context.Background()
	r := &shellRunner{cache: map[string][]byte{}}

	out, err := r.shell(ctx, []any{"printf 'hi\\n'"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
}

func TestShellHelperCachesRepeatedCommands(t *testing.T) {
	ctx := context.Background()
	r := &shellRunner{cache: map[string][]byte{}}

	_, err := r.shell(ctx, []any{"echo once"}, nil)
	require.NoError(t, err)
	assert.Contains(t, r.cache, "echo once")

	// Pre-seed a different cached output to prove the second call
	// returns the cache, not a fresh process run.
	r.cache["echo once"] = []byte("cached-value\n")
	out, err := r.shell(ctx, []any{"echo once"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "cached-value", out)
}

func TestShellLinesHelperSplitsOutput(t *testing.T) {
	ctx := context.Background()
	r := &shellRunner{cache: map[string][]byte{}}

	out, err := r.shellLines(ctx, []any{"printf 'a\\nb\\nc\\n'"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, out)
}

func TestShellLinesHelperEmptyOutputIsEmptySlice(t *testing.T) {
	ctx := context.Background()
	r := &shellRunner{cache: map[string][]byte{}}

	out, err := r.shellLines(ctx, []any{"true"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []any{}, out)
}

func TestShellHelperPropagatesCommandFailure(t *testing.T) {
	ctx := context.Background()
	r := &shellRunner{cache: map[string][]byte{}}

	_, err := r.shell(ctx, []any{"exit 7"}, nil)
	require.Error(t, err)
}
