//go:build errgroupdebug

package herrgroup

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Group tracks in-flight goroutines so a debug build can report how many
// tasks are still running when a run hangs.
type Group struct {
	errgroup.Group
	m    sync.Mutex
	done []bool
}

func (g *Group) track() func() {
	g.m.Lock()
	i := len(g.done)
	g.done = append(g.done, false)
	g.m.Unlock()

	return func() {
		g.m.Lock()
		g.done[i] = true
		g.m.Unlock()
	}
}

func (g *Group) Go(f func() error) {
	done := g.track()

	g.Group.Go(func() error {
		defer done()

		return f()
	})
}

func (g *Group) TryGo(f func() error) bool {
	done := g.track()

	return g.Group.TryGo(func() error {
		defer done()

		return f()
	})
}

// InFlight returns the number of goroutines started but not yet finished.
func (g *Group) InFlight() int {
	g.m.Lock()
	defer g.m.Unlock()

	n := 0
	for _, d := range g.done {
		if !d {
			n++
		}
	}
	return n
}

func WithContext(ctx context.Context) (*Group, context.Context) {
	eg, ctx := errgroup.WithContext(ctx)
	return &Group{Group: *eg}, ctx
}
