package cmd

import (
	"errors"

	"github.com/trinio-labs/bake/config"
	"github.com/trinio-labs/bake/graph"
)

// Exit codes per the CLI's documented contract.
const (
	exitSuccess       = 0
	exitLoadError     = 1
	exitRecipesFailed = 2
	exitValidation    = 3
	exitUpdate        = 4
)

// exitError carries the process exit code alongside the error cobra
// would otherwise just print and turn into a bare exit(1).
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func fail(code int, err error) error {
	if err == nil {
		return nil
	}
	return &exitError{code: code, err: err}
}

// classifyErr assigns an exit code to an error surfaced by the loader or
// graph packages, per the CLI's exit code table: validation errors (bad
// recipe declarations) get 3, everything else that prevents a run from
// starting gets 1.
func classifyErr(err error) error {
	if err == nil {
		return nil
	}

	var (
		dup     *config.DuplicateCookbookError
		runTmpl *config.RunAndTemplateError
		neither *config.NeitherRunNorTemplateError
		unknown *config.UnknownDependencyError
		self    *config.SelfDependencyError
		version *config.VersionMismatchError
		cycle   *graph.CycleError
	)

	switch {
	case errors.As(err, &dup), errors.As(err, &runTmpl), errors.As(err, &neither),
		errors.As(err, &unknown), errors.As(err, &self), errors.As(err, &version),
		errors.As(err, &cycle):
		return fail(exitValidation, err)
	default:
		return fail(exitLoadError, err)
	}
}

// exitCode maps a RunE error (or nil) back to a process exit code for
// main to pass to os.Exit.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitLoadError
}
