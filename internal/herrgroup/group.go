//go:build !errgroupdebug

// Package herrgroup wraps golang.org/x/sync/errgroup so callers have a
// single import to swap for a debug-instrumented build (see group_debug.go).
package herrgroup

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type Group = errgroup.Group

func WithContext(ctx context.Context) (*Group, context.Context) {
	return errgroup.WithContext(ctx)
}
