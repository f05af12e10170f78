package pin

import (
	"fmt"
	"log/slog"
)

// Guard tracks the pins one owner holds on a shared Pinner. Nil values are
// skipped, so optional callables can be passed through unconditionally.
//
// Guard is not safe for concurrent use; it lives inside a single-writer model.
type Guard struct {
	pinner Pinner
	logger *slog.Logger
	held   map[any]int
}

// NewGuard returns a Guard over p. A nil logger uses slog.Default().
func NewGuard(p Pinner, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{pinner: p, logger: logger, held: make(map[any]int)}
}

// Acquire pins each non-nil value.
func (g *Guard) Acquire(vs ...any) {
	for _, v := range vs {
		if isNil(v) {
			continue
		}
		if err := g.pinner.Pin(v); err != nil {
			g.logger.Warn("Failed to pin value.", "type", fmt.Sprintf("%T", v), "error", err)
			continue
		}
		g.held[v]++
	}
}

// Release unpins each non-nil value previously acquired through this guard.
// Values the guard does not hold are logged and skipped.
func (g *Guard) Release(vs ...any) {
	for _, v := range vs {
		if isNil(v) {
			continue
		}
		n := g.held[v]
		if n == 0 {
			g.logger.Warn("Release of a value this model never pinned.", "type", fmt.Sprintf("%T", v))
			continue
		}
		if err := g.pinner.Unpin(v); err != nil {
			g.logger.Warn("Failed to unpin value.", "type", fmt.Sprintf("%T", v), "error", err)
		}
		if n == 1 {
			delete(g.held, v)
		} else {
			g.held[v] = n - 1
		}
	}
}

// Swap pins next before releasing prev, so a value present in both never
// loses its last pin in between.
func (g *Guard) Swap(prev, next []any) {
	g.Acquire(next...)
	g.Release(prev...)
}

// ReleaseAll drops every pin the guard holds.
func (g *Guard) ReleaseAll() {
	for v, n := range g.held {
		for ; n > 0; n-- {
			if err := g.pinner.Unpin(v); err != nil {
				g.logger.Warn("Failed to unpin value during teardown.", "type", fmt.Sprintf("%T", v), "error", err)
				break
			}
		}
	}
	g.held = make(map[any]int)
}

// Holds reports whether the guard holds at least one pin on v.
func (g *Guard) Holds(v any) bool {
	return g.held[v] > 0
}

// Len returns the total number of pins held.
func (g *Guard) Len() int {
	total := 0
	for _, n := range g.held {
		total += n
	}
	return total
}
