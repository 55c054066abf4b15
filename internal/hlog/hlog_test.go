package hlog

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsoleFormatterLevelAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewCore(NewConsole(&buf, false)))

	l.With("recipe", "build:compile").Info("running")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "INF| running"))
	assert.Contains(t, out, "recipe=build:compile")
}

func TestLevelEnablerFiltersBelowThreshold(t *testing.T) {
	var buf bytes.Buffer
	core := NewLevelEnabler(NewCore(NewConsole(&buf, false)), func(lvl Level) bool {
		return lvl >= WarnLevel
	})
	l := NewLogger(core)

	l.Info("skip me")
	assert.Empty(t, buf.String())

	l.Warn("keep me")
	assert.Contains(t, buf.String(), "keep me")
}

func TestTeeFansOutToAllCores(t *testing.T) {
	var a, b bytes.Buffer
	core := NewTee(
		NewCore(NewConsole(&a, false)),
		NewCore(NewConsole(&b, false)),
	)
	l := NewLogger(core)

	l.Info("hello")

	assert.Contains(t, a.String(), "hello")
	assert.Contains(t, b.String(), "hello")
}

func TestParseLevelRoundTrips(t *testing.T) {
	cases := map[string]Level{
		"trace": TraceLevel,
		"debug": DebugLevel,
		"info":  InfoLevel,
		"warn":  WarnLevel,
		"error": ErrorLevel,
	}
	for name, want := range cases {
		lvl, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, lvl)
	}

	_, err := ParseLevel("bogus")
	assert.Error(t, err)
}

func TestWithIsImmutable(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(NewCore(NewConsole(&buf, false)))

	derived := base.With("cookbook", "api")
	base.Info("base")
	derived.Info("derived")

	out := buf.String()
	assert.Contains(t, out, "base")
	assert.Contains(t, out, "derived")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "cookbook=api")
	assert.Contains(t, lines[1], "cookbook=api")
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewCore(NewConsole(&buf, false)))

	ctx := ContextWith(context.Background(), l)
	assert.Equal(t, buf.String(), "")

	FromContext(ctx).Info("via-context")
	assert.Contains(t, buf.String(), "via-context")
}

func TestLogrBridgeWritesThroughCore(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(NewCore(NewConsole(&buf, false)))

	lr := NewLogr(l)
	lr.WithName("s3").Info("uploading", "key", "abc")

	out := buf.String()
	assert.Contains(t, out, "uploading")
	assert.Contains(t, out, "logger=s3")
	assert.Contains(t, out, "key=abc")
}
