package hash

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/trinio-labs/bake/internal/hfs"
)

// debugDumpDir returns the directory NewDebuggableDigest dumps hash traces
// into, read from BAKE_DEBUG_HASH on every call. Debugging is a no-op
// unless BAKE_DEBUG_HASH is set, since the trace walk (runtime.Caller per
// field) is too expensive to pay on every action-key computation.
func debugDumpDir() string { return os.Getenv("BAKE_DEBUG_HASH") }

type traceEntry struct {
	Value any      `json:"value"`
	Trace []string `json:"trace"`
}

// recordingDigest wraps a Digest and records every field written to it
// along with the call site that wrote it, so a cache-miss investigation
// can diff two trace dumps and see exactly which component changed.
type recordingDigest struct {
	Digest
	file    string
	entries []traceEntry
}

func (r *recordingDigest) record(v any) {
	r.entries = append(r.entries, traceEntry{Value: v, Trace: callers(2)})
}

func (r *recordingDigest) String(s string) {
	r.record(s)
	r.Digest.String(s)
}

func (r *recordingDigest) I64(v int64) {
	r.record(v)
	r.Digest.I64(v)
}

func (r *recordingDigest) Bool(v bool) {
	r.record(v)
	r.Digest.Bool(v)
}

func (r *recordingDigest) Write(p []byte) (int, error) {
	r.record(fmt.Sprintf("<%d bytes>", len(p)))
	return r.Digest.Write(p)
}

func (r *recordingDigest) Sum() string {
	sum := r.Digest.Sum()
	if err := r.dump(sum); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "hash: writing debug trace %s: %v\n", r.file, err)
	}
	return sum
}

func (r *recordingDigest) dump(sum string) error {
	b, err := json.MarshalIndent(map[string]any{
		"sum":     sum,
		"entries": r.entries,
	}, "", "  ")
	if err != nil {
		return err
	}
	return hfs.AtomicWriteFile(r.file, b, 0o644)
}

var callerRoot string

func init() {
	_, file, _, _ := runtime.Caller(0)
	if i := strings.Index(file, string(filepath.Separator)+"hash"+string(filepath.Separator)); i >= 0 {
		callerRoot = file[:i+1]
	}
}

func callers(skip int) []string {
	var trace []string
	for i := skip; i < 64; i++ {
		_, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		trace = append(trace, fmt.Sprintf("%s:%d", strings.TrimPrefix(file, callerRoot), line))
	}
	return trace
}

// NewDebuggableDigest returns a plain Digest, unless BAKE_DEBUG_HASH is
// set, in which case id is called (lazily, only when debugging is on) to
// name a JSON trace file under BAKE_DEBUG_HASH recording every field
// written into the digest and the call site that wrote it.
func NewDebuggableDigest(algo Algo, id func() string) Digest {
	d := NewDigest(algo)
	dir := debugDumpDir()
	if dir == "" {
		return d
	}

	name := strings.ReplaceAll(id(), string(filepath.Separator), "_")
	return &recordingDigest{
		Digest: d,
		file:   filepath.Join(dir, name+".json"),
	}
}
