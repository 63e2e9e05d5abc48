package hook

import (
	"context"
	"sort"
	"sync"

	"github.com/hupe1980/agentcore/logging"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Logger records hook failures. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry stores hooks by point and executes them in priority order.
// Safe for concurrent use; registration normally happens once at startup.
type Registry struct {
	mu     sync.RWMutex
	hooks  map[Point][]Hook
	logger logging.Logger
}

// NewRegistry creates an empty hook registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{hooks: make(map[Point][]Hook), logger: opts.Logger}
}

// Register adds a hook at its point, keeping the slice sorted by priority.
// Registration order breaks priority ties (stable sort).
func (r *Registry) Register(h Hook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hooks := append(r.hooks[h.Point()], h)
	sort.SliceStable(hooks, func(i, j int) bool { return hooks[i].Priority() < hooks[j].Priority() })
	r.hooks[h.Point()] = hooks
}

// Unregister removes every hook with the given name across all points.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for point, hooks := range r.hooks {
		kept := hooks[:0]
		for _, h := range hooks {
			if h.Name() != name {
				kept = append(kept, h)
			}
		}
		r.hooks[point] = kept
	}
}

// Hooks returns a copy of the hooks registered at a point, in run order.
func (r *Registry) Hooks(point Point) []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Hook(nil), r.hooks[point]...)
}

// Run executes all hooks at a point in priority order.
//
// The first cancelling hook stops the chain and its result is returned as-is.
// ModifiedData from non-cancelling hooks replaces the context data so later
// hooks (and the caller, via the aggregate result) see the replacement. A
// hook that errors or panics is logged and skipped.
func (r *Registry) Run(ctx context.Context, point Point, hctx *Context) Result {
	result := Result{}

	for _, h := range r.Hooks(point) {
		hookResult, err := r.execute(ctx, h, point, hctx)
		if err != nil {
			r.logger.Error("hook.failed", "hook", h.Name(), "point", string(point), "error", err.Error())
			continue
		}

		if hookResult.Cancelled {
			return hookResult
		}
		if hookResult.ModifiedData != nil {
			hctx.Data = hookResult.ModifiedData
			result.ModifiedData = hookResult.ModifiedData
		}
	}

	return result
}

// execute runs one hook converting panics into errors.
func (r *Registry) execute(ctx context.Context, h Hook, point Point, hctx *Context) (result Result, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Result{}
			err = &panicError{point: point, value: rec}
		}
	}()
	return h.Execute(ctx, hctx)
}

type panicError struct {
	point Point
	value any
}

func (e *panicError) Error() string { return "hook panicked at " + string(e.point) }

// Clear removes all hooks.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = make(map[Point][]Hook)
}
